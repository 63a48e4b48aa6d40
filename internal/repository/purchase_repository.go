// Package repository persists purchase runs in Postgres.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Proton-105/giftshop-bot/internal/domain"
)

// DefaultHistoryLimit is the number of runs shown by /history.
const DefaultHistoryLimit = 10

// ErrInvalidRun is returned when a run cannot be stored as given.
var ErrInvalidRun = errors.New("invalid purchase run")

// PurchaseRepository defines persistence operations for purchase runs.
type PurchaseRepository interface {
	Record(ctx context.Context, run domain.PurchaseRun) error
	ListRecent(ctx context.Context, purchaserID int64, limit int) ([]domain.PurchaseRun, error)
}

type purchaseRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPurchaseRepository creates a new SQL-backed purchase repository.
func NewPurchaseRepository(db *sql.DB, log *slog.Logger) PurchaseRepository {
	return &purchaseRepository{
		db:  db,
		log: log,
	}
}

// Record inserts one confirmed run.
func (r *purchaseRepository) Record(ctx context.Context, run domain.PurchaseRun) error {
	const query = `
		INSERT INTO purchase_runs (
			id, purchaser_id, item_id, item_label,
			recipient_kind, recipient_user, recipient_chan,
			unit_price, requested, attempted, succeeded, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	if run.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRun)
	}

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	userID, channel := recipientColumns(run.Recipient)

	if _, err := r.db.ExecContext(
		ctx,
		query,
		run.ID,
		run.PurchaserID,
		run.ItemID,
		run.ItemLabel,
		string(run.Recipient.Kind),
		userID,
		channel,
		run.UnitPrice,
		run.Requested,
		run.Attempted,
		run.Succeeded,
		run.CreatedAt,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidRun, run.ID)
		}

		if r.log != nil {
			r.log.Error("failed to insert purchase run",
				slog.String("run_id", run.ID),
				slog.Int64("purchaser_id", run.PurchaserID),
				slog.Any("error", err),
			)
		}
		return fmt.Errorf("insert purchase run: %w", err)
	}

	return nil
}

// ListRecent returns the newest runs of purchaserID, newest first.
func (r *purchaseRepository) ListRecent(ctx context.Context, purchaserID int64, limit int) ([]domain.PurchaseRun, error) {
	const query = `
		SELECT id, purchaser_id, item_id, item_label,
			recipient_kind, recipient_user, recipient_chan,
			unit_price, requested, attempted, succeeded, created_at
		FROM purchase_runs
		WHERE purchaser_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, query, purchaserID, limit)
	if err != nil {
		return nil, fmt.Errorf("select purchase runs: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.PurchaseRun, 0, limit)
	for rows.Next() {
		var (
			run     domain.PurchaseRun
			kind    string
			userID  sql.NullInt64
			channel sql.NullString
		)

		if err := rows.Scan(
			&run.ID,
			&run.PurchaserID,
			&run.ItemID,
			&run.ItemLabel,
			&kind,
			&userID,
			&channel,
			&run.UnitPrice,
			&run.Requested,
			&run.Attempted,
			&run.Succeeded,
			&run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan purchase run: %w", err)
		}

		run.Recipient = recipientFromColumns(kind, userID, channel)
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase runs: %w", err)
	}

	return runs, nil
}

func recipientColumns(r domain.Recipient) (sql.NullInt64, sql.NullString) {
	if r.IsChannel() {
		return sql.NullInt64{}, sql.NullString{String: r.Channel, Valid: true}
	}
	return sql.NullInt64{Int64: r.UserID, Valid: true}, sql.NullString{}
}

func recipientFromColumns(kind string, userID sql.NullInt64, channel sql.NullString) domain.Recipient {
	if domain.RecipientKind(kind) == domain.RecipientChannel {
		return domain.ChannelRecipient(channel.String)
	}
	return domain.UserRecipient(userID.Int64)
}
