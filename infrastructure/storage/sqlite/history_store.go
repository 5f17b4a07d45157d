package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/legisflow/legisflow/domain/history"
)

// HistoryStore is a SQLite-backed implementation of history.Store.
// Entries are read back in append order using an autoincrement sequence.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a new SQLite history store with the given configuration.
func NewHistoryStore(cfg Config, opts ...Option) (*HistoryStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &HistoryStore{db: db}

	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// NewHistoryStoreFromDB creates a history store from an existing database connection.
func NewHistoryStoreFromDB(db *sql.DB) (*HistoryStore, error) {
	s := &HistoryStore{db: db}

	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

// migrate creates the stage_history table if it doesn't exist.
func (s *HistoryStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS stage_history (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			stage_id TEXT NOT NULL,
			proposal_id TEXT NOT NULL,
			action TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			data BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_proposal ON stage_history(proposal_id);
		CREATE INDEX IF NOT EXISTS idx_history_stage ON stage_history(stage_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	return nil
}

// Append persists entries atomically and in order.
func (s *HistoryStore) Append(ctx context.Context, entries ...*history.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stage_history (id, stage_id, proposal_id, action, timestamp, data)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.StageID, e.ProposalID, string(e.Action), e.Timestamp.UnixNano(), data,
		); err != nil {
			if isUniqueViolation(err) {
				return history.ErrInvalidEntry
			}
			return err
		}
	}

	return tx.Commit()
}

// List returns entries matching the filter in append order.
func (s *HistoryStore) List(ctx context.Context, filter history.ListFilter) ([]*history.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := "SELECT data FROM stage_history"
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
	if len(filter.Actions) > 0 {
		conditions = append(conditions, "action IN ("+placeholders(len(filter.Actions))+")")
		for _, a := range filter.Actions {
			args = append(args, string(a))
		}
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]*history.Entry, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var e history.Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		result = append(result, &e)
	}

	return result, rows.Err()
}

// Discard removes entries by ID.
func (s *HistoryStore) Discard(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM stage_history WHERE id IN ("+placeholders(len(ids))+")", args...)
	return err
}

// Close closes the database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

var _ history.Store = (*HistoryStore)(nil)
