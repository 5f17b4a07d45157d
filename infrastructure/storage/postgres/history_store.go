package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legisflow/legisflow/domain/history"
)

// HistoryStore is a PostgreSQL-backed implementation of history.Store.
type HistoryStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewHistoryStore creates a new PostgreSQL history store.
func NewHistoryStore(pool *pgxpool.Pool, schema string) *HistoryStore {
	if schema == "" {
		schema = "public"
	}
	return &HistoryStore{
		pool:   pool,
		schema: schema,
	}
}

// tableName returns the fully qualified table name.
func (s *HistoryStore) tableName() string {
	return fmt.Sprintf("%s.stage_history", s.schema)
}

// Append persists entries in a single transaction.
func (s *HistoryStore) Append(ctx context.Context, entries ...*history.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, stage_id, proposal_id, action, timestamp, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.tableName())

	batch := &pgx.Batch{}
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal history entry: %w", err)
		}
		batch.Queue(query, e.ID, e.StageID, e.ProposalID, string(e.Action), e.Timestamp, data)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isUniqueViolation(err) {
			return history.ErrInvalidEntry
		}
		return wrapError(err)
	}

	return wrapError(tx.Commit(ctx))
}

// List returns entries matching the filter in append order.
func (s *HistoryStore) List(ctx context.Context, filter history.ListFilter) ([]*history.Entry, error) {
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	result := make([]*history.Entry, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, wrapError(err)
		}
		var e history.Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal history entry: %w", err)
		}
		result = append(result, &e)
	}

	return result, rows.Err()
}

// buildListQuery builds the SQL query for listing entries.
func (s *HistoryStore) buildListQuery(filter history.ListFilter) (string, []any) {
	var b whereBuilder

	if filter.ProposalID != "" {
		b.add("proposal_id = $%d", filter.ProposalID)
	}
	if filter.StageID != "" {
		b.add("stage_id = $%d", filter.StageID)
	}
	if len(filter.Actions) > 0 {
		actions := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			actions[i] = string(a)
		}
		b.add("action = ANY($%d)", actions)
	}

	return fmt.Sprintf("SELECT data FROM %s", s.tableName()) + b.clause() + " ORDER BY seq", b.args
}

// Discard removes entries by ID.
func (s *HistoryStore) Discard(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, s.tableName()), ids)
	return wrapError(err)
}

var _ history.Store = (*HistoryStore)(nil)
