package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/roach88/wastelog/internal/waste"
)

// entryRow is the relational shape of a waste entry. Body holds the
// canonical encoding; Verified is denormalized for filtering.
type entryRow struct {
	Seq       uint64 `gorm:"primaryKey;autoIncrement"`
	EntryID   string `gorm:"column:entry_id;uniqueIndex;not null"`
	Body      string `gorm:"type:text;not null"`
	Verified  bool   `gorm:"index;not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (entryRow) TableName() string { return "waste_entries" }

// Gorm stores entries in a relational database through gorm.
type Gorm struct {
	db     *gorm.DB
	limits Limits
}

// OpenPostgres connects to PostgreSQL and migrates the entry table.
func OpenPostgres(dsn string, limits Limits) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewGorm(db, limits)
}

// NewGorm wraps an open gorm connection and migrates the entry table.
func NewGorm(db *gorm.DB, limits Limits) (*Gorm, error) {
	if err := db.AutoMigrate(&entryRow{}); err != nil {
		return nil, fmt.Errorf("migrate waste_entries: %w", err)
	}
	return &Gorm{db: db, limits: limits}, nil
}

// Close closes the underlying connection pool.
func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Insert upserts the record at id inside one transaction.
func (g *Gorm) Insert(ctx context.Context, id string, e waste.Entry) error {
	body, err := g.limits.encode(id, e)
	if err != nil {
		return err
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row entryRow
		err := tx.Where("entry_id = ?", id).Take(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			var count int64
			if err := tx.Model(&entryRow{}).Count(&count).Error; err != nil {
				return fmt.Errorf("count entries: %w", err)
			}
			if err := g.limits.admits(int(count)); err != nil {
				return err
			}
			row = entryRow{EntryID: id, Body: string(body), Verified: e.Verified}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert %s: %w", id, err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("load %s: %w", id, err)
		}

		row.Body = string(body)
		row.Verified = e.Verified
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("update %s: %w", id, err)
		}
		return nil
	})
}

// Get returns the record at id.
func (g *Gorm) Get(ctx context.Context, id string) (waste.Entry, bool, error) {
	var row entryRow
	err := g.db.WithContext(ctx).Where("entry_id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return waste.Entry{}, false, nil
	}
	if err != nil {
		return waste.Entry{}, false, fmt.Errorf("get %s: %w", id, err)
	}
	e, err := decode([]byte(row.Body))
	if err != nil {
		return waste.Entry{}, false, fmt.Errorf("get %s: %w", id, err)
	}
	return e, true, nil
}

// Remove deletes the record at id and returns the prior value.
func (g *Gorm) Remove(ctx context.Context, id string) (waste.Entry, bool, error) {
	var prior waste.Entry
	var found bool
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row entryRow
		err := tx.Where("entry_id = ?", id).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", id, err)
		}
		if prior, err = decode([]byte(row.Body)); err != nil {
			return err
		}
		if err := tx.Delete(&row).Error; err != nil {
			return fmt.Errorf("remove %s: %w", id, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return waste.Entry{}, false, err
	}
	return prior, found, nil
}

// Values returns every record in insertion order.
func (g *Gorm) Values(ctx context.Context) ([]waste.Entry, error) {
	return g.find(g.db.WithContext(ctx))
}

// VerifiedValues returns verified records in insertion order.
func (g *Gorm) VerifiedValues(ctx context.Context) ([]waste.Entry, error) {
	return g.find(g.db.WithContext(ctx).Where("verified = ?", true))
}

func (g *Gorm) find(q *gorm.DB) ([]waste.Entry, error) {
	var rows []entryRow
	if err := q.Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	out := make([]waste.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := decode([]byte(row.Body))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
