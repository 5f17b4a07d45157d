package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/legisflow/legisflow/domain/stage"
)

// StageStore is a SQLite-backed implementation of stage.Store.
type StageStore struct {
	db *sql.DB
}

// NewStageStore creates a new SQLite stage store with the given configuration.
func NewStageStore(cfg Config, opts ...Option) (*StageStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &StageStore{db: db}

	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// NewStageStoreFromDB creates a stage store from an existing database connection.
func NewStageStoreFromDB(db *sql.DB) (*StageStore, error) {
	s := &StageStore{db: db}

	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

// migrate creates the stages table if it doesn't exist.
func (s *StageStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS stages (
			id TEXT PRIMARY KEY,
			proposal_id TEXT NOT NULL,
			status TEXT NOT NULL,
			entered_at INTEGER NOT NULL,
			deadline INTEGER,
			data BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_stages_proposal ON stages(proposal_id, entered_at);
		CREATE INDEX IF NOT EXISTS idx_stages_status ON stages(status);
		CREATE INDEX IF NOT EXISTS idx_stages_deadline ON stages(deadline);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	return nil
}

func stageColumns(inst *stage.Instance) ([]byte, sql.NullInt64, error) {
	data, err := json.Marshal(inst)
	if err != nil {
		return nil, sql.NullInt64{}, err
	}
	var deadline sql.NullInt64
	if inst.Deadline != nil {
		deadline = sql.NullInt64{Int64: inst.Deadline.UnixNano(), Valid: true}
	}
	return data, deadline, nil
}

// Save persists a new stage instance.
func (s *StageStore) Save(ctx context.Context, inst *stage.Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := inst.Validate(); err != nil {
		return err
	}

	data, deadline, err := stageColumns(inst)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO stages (id, proposal_id, status, entered_at, deadline, data)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		inst.ID, inst.ProposalID, string(inst.Status), inst.EnteredAt.UnixNano(), deadline, data,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return stage.ErrStageExists
		}
		return err
	}

	return nil
}

// Get retrieves a stage instance by ID.
func (s *StageStore) Get(ctx context.Context, id string) (*stage.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM stages WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, stage.ErrStageNotFound
	}
	if err != nil {
		return nil, err
	}

	var inst stage.Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// List returns instances matching the filter ordered by EnteredAt, then ID.
func (s *StageStore) List(ctx context.Context, filter stage.ListFilter) ([]*stage.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := "SELECT data FROM stages"
	var conditions []string
	var args []interface{}

	if filter.ProposalID != "" {
		conditions = append(conditions, "proposal_id = ?")
		args = append(args, filter.ProposalID)
	}
	if len(filter.Status) > 0 {
		conditions = append(conditions, "status IN ("+placeholders(len(filter.Status))+")")
		for _, st := range filter.Status {
			args = append(args, string(st))
		}
	}
	if !filter.DeadlineBefore.IsZero() {
		conditions = append(conditions, "deadline IS NOT NULL AND deadline < ?")
		args = append(args, filter.DeadlineBefore.UnixNano())
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY entered_at, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]*stage.Instance, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var inst stage.Instance
		if err := json.Unmarshal(data, &inst); err != nil {
			return nil, err
		}
		result = append(result, &inst)
	}

	return result, rows.Err()
}

// Update replaces an existing stage instance.
func (s *StageStore) Update(ctx context.Context, inst *stage.Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := inst.Validate(); err != nil {
		return err
	}

	data, deadline, err := stageColumns(inst)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE stages SET proposal_id = ?, status = ?, entered_at = ?, deadline = ?, data = ?
		 WHERE id = ?`,
		inst.ProposalID, string(inst.Status), inst.EnteredAt.UnixNano(), deadline, data, inst.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return stage.ErrStageNotFound
	}

	return nil
}

// Delete removes a stage instance.
func (s *StageStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM stages WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return stage.ErrStageNotFound
	}

	return nil
}

// Close closes the database connection.
func (s *StageStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *StageStore) DB() *sql.DB {
	return s.db
}

var _ stage.Store = (*StageStore)(nil)
