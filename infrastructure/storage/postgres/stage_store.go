package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legisflow/legisflow/domain/stage"
)

// StageStore is a PostgreSQL-backed implementation of stage.Store.
type StageStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewStageStore creates a new PostgreSQL stage store.
func NewStageStore(pool *pgxpool.Pool, schema string) *StageStore {
	if schema == "" {
		schema = "public"
	}
	return &StageStore{
		pool:   pool,
		schema: schema,
	}
}

// tableName returns the fully qualified table name.
func (s *StageStore) tableName() string {
	return fmt.Sprintf("%s.stages", s.schema)
}

// Save persists a new stage instance.
func (s *StageStore) Save(ctx context.Context, inst *stage.Instance) error {
	if err := inst.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("marshal stage: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, proposal_id, status, entered_at, deadline, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.tableName())

	_, err = s.pool.Exec(ctx, query,
		inst.ID, inst.ProposalID, string(inst.Status), inst.EnteredAt, inst.Deadline, data,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return stage.ErrStageExists
		}
		return wrapError(err)
	}

	return nil
}

// Get retrieves a stage instance by ID.
func (s *StageStore) Get(ctx context.Context, id string) (*stage.Instance, error) {
	if id == "" {
		return nil, stage.ErrStageNotFound
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, s.tableName())

	var data []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, stage.ErrStageNotFound
		}
		return nil, wrapError(err)
	}

	var inst stage.Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("unmarshal stage: %w", err)
	}
	return &inst, nil
}

// List returns instances matching the filter ordered by EnteredAt, then ID.
func (s *StageStore) List(ctx context.Context, filter stage.ListFilter) ([]*stage.Instance, error) {
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	result := make([]*stage.Instance, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, wrapError(err)
		}
		var inst stage.Instance
		if err := json.Unmarshal(data, &inst); err != nil {
			return nil, fmt.Errorf("unmarshal stage: %w", err)
		}
		result = append(result, &inst)
	}

	return result, rows.Err()
}

// buildListQuery builds the SQL query for listing stages.
func (s *StageStore) buildListQuery(filter stage.ListFilter) (string, []any) {
	var b whereBuilder

	if filter.ProposalID != "" {
		b.add("proposal_id = $%d", filter.ProposalID)
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, st := range filter.Status {
			statuses[i] = string(st)
		}
		b.add("status = ANY($%d)", statuses)
	}
	if !filter.DeadlineBefore.IsZero() {
		b.add("deadline < $%d", filter.DeadlineBefore)
	}

	query := fmt.Sprintf("SELECT data FROM %s", s.tableName()) + b.clause() + " ORDER BY entered_at, id"
	args := b.args
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

// Update replaces an existing stage instance.
func (s *StageStore) Update(ctx context.Context, inst *stage.Instance) error {
	if err := inst.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("marshal stage: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s SET proposal_id = $2, status = $3, entered_at = $4, deadline = $5, data = $6
		WHERE id = $1
	`, s.tableName())

	tag, err := s.pool.Exec(ctx, query,
		inst.ID, inst.ProposalID, string(inst.Status), inst.EnteredAt, inst.Deadline, data,
	)
	if err != nil {
		return wrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return stage.ErrStageNotFound
	}

	return nil
}

// Delete removes a stage instance.
func (s *StageStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return stage.ErrStageNotFound
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.tableName()), id)
	if err != nil {
		return wrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return stage.ErrStageNotFound
	}

	return nil
}

var _ stage.Store = (*StageStore)(nil)
