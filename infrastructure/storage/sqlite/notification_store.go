package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/legisflow/legisflow/domain/notification"
)

// NotificationStore is a SQLite-backed implementation of notification.Store.
type NotificationStore struct {
	db *sql.DB
}

// NewNotificationStore creates a new SQLite notification store with the given configuration.
func NewNotificationStore(cfg Config, opts ...Option) (*NotificationStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &NotificationStore{db: db}

	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// NewNotificationStoreFromDB creates a notification store from an existing database connection.
func NewNotificationStoreFromDB(db *sql.DB) (*NotificationStore, error) {
	s := &NotificationStore{db: db}

	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

// migrate creates the notifications table if it doesn't exist.
func (s *NotificationStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS notifications (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			stage_id TEXT NOT NULL,
			proposal_id TEXT NOT NULL,
			status TEXT NOT NULL,
			data BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_proposal ON notifications(proposal_id);
		CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	return nil
}

// Append persists notifications atomically and in order.
func (s *NotificationStore) Append(ctx context.Context, ns ...*notification.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ns) == 0 {
		return nil
	}
	for _, n := range ns {
		if err := n.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO notifications (id, stage_id, proposal_id, status, data) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, n := range ns {
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, n.ID, n.StageID, n.ProposalID, string(n.Status), data); err != nil {
			if isUniqueViolation(err) {
				return notification.ErrInvalidNotification
			}
			return err
		}
	}

	return tx.Commit()
}

// Get retrieves a notification by ID.
func (s *NotificationStore) Get(ctx context.Context, id string) (*notification.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM notifications WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notification.ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}

	var n notification.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns notifications matching the filter in append order.
func (s *NotificationStore) List(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := "SELECT data FROM notifications"
	var conditions []string
	var args []interface{}

	if filter.ProposalID != "" {
		conditions = append(conditions, "proposal_id = ?")
		args = append(args, filter.ProposalID)
	}
	if filter.StageID != "" {
		conditions = append(conditions, "stage_id = ?")
		args = append(args, filter.StageID)
	}
	if len(filter.Status) > 0 {
		conditions = append(conditions, "status IN ("+placeholders(len(filter.Status))+")")
		for _, st := range filter.Status {
			args = append(args, string(st))
		}
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY seq"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]*notification.Notification, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var n notification.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		result = append(result, &n)
	}

	return result, rows.Err()
}

// UpdateStatus stores the delivery fields of an existing notification.
func (s *NotificationStore) UpdateStatus(ctx context.Context, n *notification.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored, err := s.Get(ctx, n.ID)
	if err != nil {
		return err
	}
	stored.Status = n.Status
	stored.Attempts = n.Attempts
	stored.LastError = n.LastError

	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE notifications SET status = ?, data = ? WHERE id = ?",
		string(stored.Status), data, stored.ID,
	)
	return err
}

// Discard removes notifications by ID.
func (s *NotificationStore) Discard(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE id IN ("+placeholders(len(ids))+")", args...)
	return err
}

// Close closes the database connection.
func (s *NotificationStore) Close() error {
	return s.db.Close()
}

var _ notification.Store = (*NotificationStore)(nil)
