package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/lib/pq"
)

var (
	ErrMergeReceiptNotFound = errors.New("merge receipt not found")
	ErrMergeReceiptConflict = errors.New("merge receipt already recorded")
)

type MergeReceiptRepository interface {
	Create(ctx context.Context, receipt *models.MergeReceipt) error
	GetByAnonymousUser(ctx context.Context, anonymousUserID string) (*models.MergeReceipt, error)
	Count(ctx context.Context) (int, error)
}

type postgresMergeReceiptRepository struct {
	db *sql.DB
}

func NewPostgresMergeReceiptRepository(db *sql.DB) MergeReceiptRepository {
	return &postgresMergeReceiptRepository{db: db}
}

func (r *postgresMergeReceiptRepository) Create(ctx context.Context, receipt *models.MergeReceipt) error {
	query := `
		INSERT INTO merge_receipts (anonymous_user_id, user_id, migrated)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		receipt.AnonymousUserID,
		receipt.UserID,
		receipt.Migrated,
	).Scan(&receipt.ID, &receipt.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrMergeReceiptConflict
		}
		return err
	}
	return nil
}

func (r *postgresMergeReceiptRepository) GetByAnonymousUser(ctx context.Context, anonymousUserID string) (*models.MergeReceipt, error) {
	query := `
		SELECT id, anonymous_user_id, user_id, migrated, created_at
		FROM merge_receipts
		WHERE anonymous_user_id = $1`

	receipt := &models.MergeReceipt{}
	err := r.db.QueryRowContext(ctx, query, anonymousUserID).Scan(
		&receipt.ID,
		&receipt.AnonymousUserID,
		&receipt.UserID,
		&receipt.Migrated,
		&receipt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMergeReceiptNotFound
		}
		return nil, err
	}
	return receipt, nil
}

func (r *postgresMergeReceiptRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM merge_receipts`).Scan(&count)
	return count, err
}
