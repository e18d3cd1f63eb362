package debtqueue

import (
	"context"

	"keel/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

type debtQueueStore struct {
	db *db.DB
}

// New new debt queue store
func New(db *db.DB) core.DebtQueueStore {
	return &debtQueueStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.DebtQueueEntry{})
		if err := tx.AutoMigrate(core.DebtQueueEntry{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *debtQueueStore) Create(ctx context.Context, tx *db.DB, entry *core.DebtQueueEntry) error {
	return tx.Update().Create(entry).Error
}

func (s *debtQueueStore) List(ctx context.Context, fromID uint64, limit int) ([]*core.DebtQueueEntry, error) {
	var entries []*core.DebtQueueEntry
	if err := s.db.View().
		Where("id>?", fromID).
		Order("id").Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *debtQueueStore) Total(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := s.db.View().Model(core.DebtQueueEntry{}).
		Select("sum(amount)").
		Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}

	return total.Decimal, nil
}
