// Package service implements the waste entry operations on top of an
// EntryStore.
//
// Every operation checks its preconditions before touching the store, so a
// rejected call leaves stored state byte-for-byte unchanged. Mutations run
// under one service-wide mutex across their read-modify-write; reads go
// straight to the store, whose own locking keeps them from observing a
// half-applied write. Change events are published after the mutex is
// released.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/wastelog/internal/clock"
	"github.com/roach88/wastelog/internal/events"
	"github.com/roach88/wastelog/internal/identity"
	"github.com/roach88/wastelog/internal/idgen"
	"github.com/roach88/wastelog/internal/metrics"
	"github.com/roach88/wastelog/internal/store"
	"github.com/roach88/wastelog/internal/waste"
)

// Operation names used in logs and metrics labels.
const (
	OpCreate       = "create"
	OpGet          = "get"
	OpList         = "list"
	OpUpdate       = "update"
	OpDelete       = "delete"
	OpVerify       = "verify"
	OpListVerified = "list_verified"
	OpRecycle      = "recycle"
	OpStats        = "stats"
)

// Service is the waste entry service.
type Service struct {
	mu sync.Mutex // held across every read-modify-write

	store     store.EntryStore
	clock     clock.Clock
	identity  identity.Provider
	ids       idgen.Generator
	logger    *slog.Logger
	publisher events.Publisher
	metrics   *metrics.Recorder
}

// Option configures optional collaborators.
type Option func(*Service)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithPublisher sets the change-event sink. Default: events.Nop.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithMetrics sets the metrics recorder. Default: none.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a Service. The service does not own st; callers close it.
func New(
	st store.EntryStore,
	c clock.Clock,
	p identity.Provider,
	g idgen.Generator,
	opts ...Option,
) *Service {
	s := &Service{
		store:     st,
		clock:     c,
		identity:  p,
		ids:       g,
		logger:    slog.Default(),
		publisher: events.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats summarizes every stored entry.
type Stats struct {
	Entries     int     `json:"entries"`
	Verified    int     `json:"verified"`
	Outstanding float64 `json:"outstandingQuantity"`
	Recycled    float64 `json:"recycledQuantity"`
}

// Create validates p and stores a new unverified entry owned by the caller.
func (s *Service) Create(ctx context.Context, p waste.Payload) (e waste.Entry, err error) {
	defer s.observe(ctx, OpCreate, "", time.Now(), &err)

	if err := waste.ValidatePayload(p); err != nil {
		return waste.Entry{}, err
	}

	e, err = s.insertNew(ctx, p)
	if err != nil {
		return waste.Entry{}, err
	}

	s.logger.Info("entry created",
		"op", OpCreate,
		"id", e.ID,
		"owner", e.Owner,
		"waste_type", e.WasteType,
		"quantity", e.Quantity,
	)
	s.publish(ctx, events.Created, e, e.CreatedAt)
	return e, nil
}

func (s *Service) insertNew(ctx context.Context, p waste.Payload) (waste.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.ids.Next()
	_, exists, err := s.store.Get(ctx, id)
	if err != nil {
		return waste.Entry{}, waste.NewStorageFailure(id, "lookup", err)
	}
	if exists {
		return waste.Entry{}, waste.NewIdentityCollisionError(id)
	}

	e := waste.NewEntry(id, s.identity.Current(ctx), p, s.clock.Now())
	if err := s.store.Insert(ctx, id, e); err != nil {
		return waste.Entry{}, waste.NewStorageFailure(id, "insert", err)
	}
	return e, nil
}

// Get returns the entry stored under id.
func (s *Service) Get(ctx context.Context, id string) (e waste.Entry, err error) {
	defer s.observe(ctx, OpGet, id, time.Now(), &err)
	return s.load(ctx, id)
}

// ListAll returns every stored entry in the store's order.
func (s *Service) ListAll(ctx context.Context) (entries []waste.Entry, err error) {
	defer s.observe(ctx, OpList, "", time.Now(), &err)

	entries, err = s.store.Values(ctx)
	if err != nil {
		return nil, waste.NewStorageFailure("", "list", err)
	}
	return entries, nil
}

// Update replaces the descriptive fields of an existing entry. Id, owner,
// creation time and verification status are preserved; recycledQuantity is
// only overwritten when p supplies it.
func (s *Service) Update(ctx context.Context, id string, p waste.Payload) (e waste.Entry, err error) {
	defer s.observe(ctx, OpUpdate, id, time.Now(), &err)

	if err := waste.ValidatePayload(p); err != nil {
		return waste.Entry{}, err
	}
	return s.mutate(ctx, id, events.Updated, func(cur waste.Entry, now waste.Timestamp) (waste.Entry, error) {
		return cur.WithUpdate(p, now), nil
	})
}

// Delete removes the entry stored under id and returns it.
func (s *Service) Delete(ctx context.Context, id string) (e waste.Entry, err error) {
	defer s.observe(ctx, OpDelete, id, time.Now(), &err)

	prior, at, err := s.remove(ctx, id)
	if err != nil {
		return waste.Entry{}, err
	}

	s.logger.Info("entry deleted", "op", OpDelete, "id", id)
	s.publish(ctx, events.Deleted, prior, at)
	return prior, nil
}

func (s *Service) remove(ctx context.Context, id string) (waste.Entry, waste.Timestamp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, ok, err := s.store.Remove(ctx, id)
	if err != nil {
		return waste.Entry{}, 0, waste.NewStorageFailure(id, "remove", err)
	}
	if !ok {
		return waste.Entry{}, 0, waste.NewNotFoundError(id)
	}
	return prior, s.clock.Now(), nil
}

// Verify marks the entry as verified. Verifying twice succeeds and only
// advances updatedAt.
func (s *Service) Verify(ctx context.Context, id string) (e waste.Entry, err error) {
	defer s.observe(ctx, OpVerify, id, time.Now(), &err)

	return s.mutate(ctx, id, events.Verified, func(cur waste.Entry, now waste.Timestamp) (waste.Entry, error) {
		return cur.WithVerified(now), nil
	})
}

// ListVerified returns the verified subset of ListAll.
func (s *Service) ListVerified(ctx context.Context) (entries []waste.Entry, err error) {
	defer s.observe(ctx, OpListVerified, "", time.Now(), &err)

	if vl, ok := s.store.(store.VerifiedLister); ok {
		entries, err = vl.VerifiedValues(ctx)
		if err != nil {
			return nil, waste.NewStorageFailure("", "list verified", err)
		}
		return entries, nil
	}

	all, err := s.store.Values(ctx)
	if err != nil {
		return nil, waste.NewStorageFailure("", "list verified", err)
	}
	entries = make([]waste.Entry, 0, len(all))
	for _, e := range all {
		if e.Verified {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Recycle moves amount from the outstanding quantity into recycledQuantity.
// Asking for more than is outstanding fails with OverRecycle and changes
// nothing.
func (s *Service) Recycle(ctx context.Context, id string, amount float64) (e waste.Entry, err error) {
	defer s.observe(ctx, OpRecycle, id, time.Now(), &err)

	if err := waste.ValidateRecycleAmount(amount); err != nil {
		return waste.Entry{}, err
	}
	return s.mutate(ctx, id, events.Recycled, func(cur waste.Entry, now waste.Timestamp) (waste.Entry, error) {
		return cur.Recycle(amount, now)
	})
}

// Stats totals every stored entry.
func (s *Service) Stats(ctx context.Context) (st Stats, err error) {
	defer s.observe(ctx, OpStats, "", time.Now(), &err)

	all, err := s.store.Values(ctx)
	if err != nil {
		return Stats{}, waste.NewStorageFailure("", "stats", err)
	}
	for _, e := range all {
		st.Entries++
		if e.Verified {
			st.Verified++
		}
		st.Outstanding += e.Quantity
		st.Recycled += e.RecycledQuantity.OrZero()
	}
	return st, nil
}

// mutate loads id, applies fn and stores the result under s.mu. The change
// event goes out after the lock is released.
func (s *Service) mutate(
	ctx context.Context,
	id string,
	typ events.Type,
	fn func(cur waste.Entry, now waste.Timestamp) (waste.Entry, error),
) (waste.Entry, error) {
	next, err := s.replace(ctx, id, fn)
	if err != nil {
		return waste.Entry{}, err
	}

	s.logger.Info("entry "+string(typ),
		"op", opFor(typ),
		"id", id,
		"verified", next.Verified,
		"quantity", next.Quantity,
	)
	s.publish(ctx, typ, next, next.UpdatedAt.OrElse(next.CreatedAt))
	return next, nil
}

func (s *Service) replace(
	ctx context.Context,
	id string,
	fn func(cur waste.Entry, now waste.Timestamp) (waste.Entry, error),
) (waste.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.load(ctx, id)
	if err != nil {
		return waste.Entry{}, err
	}
	next, err := fn(cur, s.clock.Now())
	if err != nil {
		return waste.Entry{}, err
	}
	if err := s.store.Insert(ctx, id, next); err != nil {
		return waste.Entry{}, waste.NewStorageFailure(id, "insert", err)
	}
	return next, nil
}

func (s *Service) load(ctx context.Context, id string) (waste.Entry, error) {
	e, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return waste.Entry{}, waste.NewStorageFailure(id, "lookup", err)
	}
	if !ok {
		return waste.Entry{}, waste.NewNotFoundError(id)
	}
	return e, nil
}

// publish hands the event to the publisher. It runs outside s.mu since the
// publisher may block on a broker; the write has already committed, so
// failures are only logged.
func (s *Service) publish(ctx context.Context, typ events.Type, e waste.Entry, at waste.Timestamp) {
	ev := events.Event{Type: typ, EntryID: e.ID, Entry: e, At: at}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error("publish failed",
			"event", typ,
			"id", e.ID,
			"error", err,
		)
	}
}

// observe records metrics for a finished operation and logs rejections.
func (s *Service) observe(ctx context.Context, op, id string, start time.Time, errp *error) {
	outcome := metrics.OutcomeOK
	if err := *errp; err != nil {
		kind := waste.KindOf(err)
		outcome = string(kind)
		if kind == "" {
			outcome = "UNKNOWN"
		}
		level := slog.LevelWarn
		if kind == waste.KindStorageFailure {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "operation rejected",
			"op", op,
			"id", id,
			"kind", kind,
			"error", err,
		)
	}
	s.metrics.Observe(op, outcome, time.Since(start))
}

func opFor(typ events.Type) string {
	switch typ {
	case events.Updated:
		return OpUpdate
	case events.Verified:
		return OpVerify
	case events.Recycled:
		return OpRecycle
	default:
		return string(typ)
	}
}
