// Package postgres provides PostgreSQL storage for visitors.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/txn2/storefront/pkg/cart"
	"github.com/txn2/storefront/pkg/visitor"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const table = "visitors"

var columns = []string{
	"id", "user_id", "created_at", "last_active_at", "expires_at", "guest_cart",
}

// notExpired restricts a query to live rows.
var notExpired = sq.Expr("expires_at > NOW()")

// Store implements visitor.Store using PostgreSQL.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
}

// Config configures the PostgreSQL visitor store.
type Config struct {
	TTL    time.Duration
	Logger *slog.Logger
}

// New creates a new PostgreSQL visitor store.
func New(db *sql.DB, cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     db,
		ttl:    cfg.TTL,
		logger: logger,
	}
}

// Create persists a new visitor.
func (s *Store) Create(ctx context.Context, v *visitor.Visitor) error {
	cartJSON, err := marshalCart(v.GuestCart)
	if err != nil {
		return err
	}

	query, args, err := psq.Insert(table).
		Columns(columns...).
		Values(v.ID, v.UserID, v.CreatedAt, v.LastActiveAt, v.ExpiresAt, string(cartJSON)).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting visitor: %w", err)
	}
	return nil
}

// Get retrieves a visitor by ID. Returns nil, nil if not found or expired.
func (s *Store) Get(ctx context.Context, id string) (*visitor.Visitor, error) {
	query, args, err := psq.Select(columns...).
		From(table).
		Where(sq.Eq{"id": id}).
		Where(notExpired).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	var (
		v        visitor.Visitor
		cartJSON []byte
	)
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&v.ID, &v.UserID, &v.CreatedAt, &v.LastActiveAt, &v.ExpiresAt, &cartJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning visitor: %w", err)
	}

	v.GuestCart = []cart.Line{}
	if len(cartJSON) > 0 {
		if err := json.Unmarshal(cartJSON, &v.GuestCart); err != nil {
			s.logger.Warn("discarding unreadable guest cart", "visitor_id", id, "error", err)
			v.GuestCart = []cart.Line{}
		}
	}
	return &v, nil
}

// Touch updates LastActiveAt and extends ExpiresAt by the store's TTL.
func (s *Store) Touch(ctx context.Context, id string) error {
	query, args, err := psq.Update(table).
		Set("last_active_at", sq.Expr("NOW()")).
		Set("expires_at", sq.Expr("NOW() + ?::interval", fmt.Sprintf("%d seconds", int(s.ttl.Seconds())))).
		Where(sq.Eq{"id": id}).
		Where(notExpired).
		ToSql()
	if err != nil {
		return fmt.Errorf("building touch: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("touching visitor: %w", err)
	}
	return nil
}

// Delete removes a visitor.
func (s *Store) Delete(ctx context.Context, id string) error {
	query, args, err := psq.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting visitor: %w", err)
	}
	return nil
}

// SaveCart replaces the guest cart snapshot.
func (s *Store) SaveCart(ctx context.Context, id string, lines []cart.Line) error {
	cartJSON, err := marshalCart(lines)
	if err != nil {
		return err
	}
	return s.update(ctx, id, "guest_cart", sq.Expr("?::jsonb", string(cartJSON)), "saving guest cart")
}

// SetUser records the authenticated identity of the visitor.
func (s *Store) SetUser(ctx context.Context, id, userID string) error {
	return s.update(ctx, id, "user_id", userID, "setting visitor user")
}

func (s *Store) update(ctx context.Context, id, column string, value any, op string) error {
	query, args, err := psq.Update(table).
		Set(column, value).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Cleanup removes expired visitors.
func (s *Store) Cleanup(ctx context.Context) error {
	query, args, err := psq.Delete(table).Where(sq.Expr("expires_at <= NOW()")).ToSql()
	if err != nil {
		return fmt.Errorf("building cleanup: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("cleaning up visitors: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Debug("expired visitors removed", "count", n)
	}
	return nil
}

// Close is a no-op. The database handle belongs to the caller.
func (*Store) Close() error {
	return nil
}

func marshalCart(lines []cart.Line) ([]byte, error) {
	if lines == nil {
		lines = []cart.Line{}
	}
	b, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("marshaling guest cart: %w", err)
	}
	return b, nil
}

// Verify interface compliance.
var _ visitor.Store = (*Store)(nil)
