package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legisflow/legisflow/domain/notification"
)

// NotificationStore is a PostgreSQL-backed implementation of notification.Store.
type NotificationStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewNotificationStore creates a new PostgreSQL notification store.
func NewNotificationStore(pool *pgxpool.Pool, schema string) *NotificationStore {
	if schema == "" {
		schema = "public"
	}
	return &NotificationStore{
		pool:   pool,
		schema: schema,
	}
}

// tableName returns the fully qualified table name.
func (s *NotificationStore) tableName() string {
	return fmt.Sprintf("%s.notifications", s.schema)
}

// Append persists notifications in a single transaction.
func (s *NotificationStore) Append(ctx context.Context, ns ...*notification.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	for _, n := range ns {
		if err := n.Validate(); err != nil {
			return err
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, stage_id, proposal_id, status, data) VALUES ($1, $2, $3, $4, $5)
	`, s.tableName())

	batch := &pgx.Batch{}
	for _, n := range ns {
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		batch.Queue(query, n.ID, n.StageID, n.ProposalID, string(n.Status), data)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isUniqueViolation(err) {
			return notification.ErrInvalidNotification
		}
		return wrapError(err)
	}

	return wrapError(tx.Commit(ctx))
}

// Get retrieves a notification by ID.
func (s *NotificationStore) Get(ctx context.Context, id string) (*notification.Notification, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, s.tableName()), id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notification.ErrNotificationNotFound
		}
		return nil, wrapError(err)
	}

	var n notification.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("unmarshal notification: %w", err)
	}
	return &n, nil
}

// List returns notifications matching the filter in append order.
func (s *NotificationStore) List(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, error) {
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	result := make([]*notification.Notification, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, wrapError(err)
		}
		var n notification.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, fmt.Errorf("unmarshal notification: %w", err)
		}
		result = append(result, &n)
	}

	return result, rows.Err()
}

// buildListQuery builds the SQL query for listing notifications.
func (s *NotificationStore) buildListQuery(filter notification.ListFilter) (string, []any) {
	var b whereBuilder

	if filter.ProposalID != "" {
		b.add("proposal_id = $%d", filter.ProposalID)
	}
	if filter.StageID != "" {
		b.add("stage_id = $%d", filter.StageID)
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, st := range filter.Status {
			statuses[i] = string(st)
		}
		b.add("status = ANY($%d)", statuses)
	}

	query := fmt.Sprintf("SELECT data FROM %s", s.tableName()) + b.clause() + " ORDER BY seq"
	args := b.args
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

// UpdateStatus stores the delivery fields of an existing notification.
func (s *NotificationStore) UpdateStatus(ctx context.Context, n *notification.Notification) error {
	patch, err := json.Marshal(map[string]any{
		"status":     n.Status,
		"attempts":   n.Attempts,
		"last_error": n.LastError,
	})
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	query := fmt.Sprintf(`UPDATE %s SET status = $2, data = data || $3::jsonb WHERE id = $1`, s.tableName())

	tag, err := s.pool.Exec(ctx, query, n.ID, string(n.Status), patch)
	if err != nil {
		return wrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotificationNotFound
	}
	return nil
}

// Discard removes notifications by ID.
func (s *NotificationStore) Discard(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, s.tableName()), ids)
	return wrapError(err)
}

var _ notification.Store = (*NotificationStore)(nil)
