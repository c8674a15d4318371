package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm/clause"
)

// ErrDuplicateClosedOrder is returned when the external id was already journaled.
var ErrDuplicateClosedOrder = errors.New("duplicate closed order skipped")

func (p *PostgresClient) InsertClosedOrder(ctx context.Context, record *ClosedOrderRecord) error {
	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(record)

	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: external_id=%d", ErrDuplicateClosedOrder, record.ExternalID)
	}

	return nil
}

// DeleteClosedOrdersBefore prunes the journal and reports how many rows went.
func (p *PostgresClient) DeleteClosedOrdersBefore(ctx context.Context, before time.Time) (int64, error) {
	tx := p.DB.WithContext(ctx).
		Where("closed_at < ?", before).
		Delete(&ClosedOrderRecord{})
	return tx.RowsAffected, tx.Error
}
