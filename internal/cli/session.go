package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wastelog/internal/clock"
	"github.com/roach88/wastelog/internal/config"
	"github.com/roach88/wastelog/internal/events"
	"github.com/roach88/wastelog/internal/identity"
	"github.com/roach88/wastelog/internal/idgen"
	"github.com/roach88/wastelog/internal/metrics"
	"github.com/roach88/wastelog/internal/service"
	"github.com/roach88/wastelog/internal/store"
	"github.com/roach88/wastelog/internal/waste"
)

// session is everything one command needs to run operations.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     store.EntryStore
	publisher *events.KafkaPublisher // nil when no brokers are configured
	metrics   *metrics.Recorder      // serve only
	svc       *service.Service
}

// sessionMode distinguishes the long-running server from one-shot commands.
type sessionMode int

const (
	oneShot sessionMode = iota
	serving
)

// loadConfig resolves the configuration and applies --as.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	lookup := o.lookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg, err := config.LoadWithEnv(o.ConfigPath, lookup)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.As != "" {
		cfg.Identity.Default = o.As
	}
	return cfg, nil
}

// openSession loads config, opens the store and builds the service.
// One-shot commands act as the configured identity and log at warn level
// unless --verbose is set; the server takes the caller from the request.
func (o *RootOptions) openSession(cmd *cobra.Command, mode sessionMode) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	level := ParseLevel(cfg.Log.Level)
	if mode == oneShot && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := NewLogger(cmd.ErrOrStderr(), cfg.Log.Format, level)

	logger.Debug("opening store", "backend", cfg.Store.Backend, "path", cfg.Store.Path)
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	s := &session{cfg: cfg, logger: logger, store: st}

	opts := []service.Option{service.WithLogger(logger)}
	if len(cfg.Events.KafkaBrokers) > 0 {
		s.publisher = events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		opts = append(opts, service.WithPublisher(s.publisher))
		logger.Debug("publishing change events", "brokers", cfg.Events.KafkaBrokers, "topic", cfg.Events.KafkaTopic)
	}

	var provider identity.Provider = identity.Static(waste.Identity(cfg.Identity.Default))
	if mode == serving {
		s.metrics = metrics.New()
		opts = append(opts, service.WithMetrics(s.metrics))
		provider = identity.ContextProvider{Fallback: waste.Identity(cfg.Identity.Default)}
	}

	s.svc = service.New(st, clock.NewSystem(), provider, idgen.UUIDv7Generator{}, opts...)
	return s, nil
}

// Close releases the publisher and the store.
func (s *session) Close() error {
	var errs []error
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	errs = append(errs, s.store.Close())
	if err := errors.Join(errs...); err != nil {
		s.logger.Error("error closing session", "error", err)
		return err
	}
	return nil
}

// NewLogger builds the root slog logger. format is "json" or "text".
func NewLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a config level name to a slog level. Unknown names are info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
