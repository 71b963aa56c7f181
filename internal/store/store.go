// Package store is the reference persistence layer for validation runs. It
// demonstrates the contracts the compliance core assumes of its caller:
// exactly one current ValidationResult per label, supersession of the prior
// result in the same transaction, and effective-status resolution applied at
// read time rather than by a background job.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"labelcheck/internal/logger"
	"labelcheck/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS labels (
	id                  TEXT PRIMARY KEY,
	brand_name          TEXT NOT NULL,
	beverage_type       TEXT NOT NULL,
	container_size_ml   INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL,
	correction_deadline TEXT,
	deadline_expired    INTEGER NOT NULL DEFAULT 0,
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS validation_results (
	id                 TEXT PRIMARY KEY,
	label_id           TEXT NOT NULL REFERENCES labels(id),
	is_current         INTEGER NOT NULL DEFAULT 0,
	status             TEXT NOT NULL,
	deadline_days      INTEGER NOT NULL DEFAULT 0,
	confidence         REAL NOT NULL DEFAULT 0,
	fields_json        TEXT NOT NULL,
	model_used         TEXT,
	processing_time_ms INTEGER NOT NULL DEFAULT 0,
	prompt_tokens      INTEGER NOT NULL DEFAULT 0,
	completion_tokens  INTEGER NOT NULL DEFAULT 0,
	created_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_label_current
	ON validation_results(label_id, is_current);
`

// Store persists labels and validation results in SQLite.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (and if needed initializes) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to initialize schema: %w", err)
	}
	return &Store{
		db:  db,
		log: logger.WithComponent("store"),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveLabel inserts or updates a label.
func (s *Store) SaveLabel(ctx context.Context, l *models.Label) error {
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO labels (id, brand_name, beverage_type, container_size_ml,
			status, correction_deadline, deadline_expired, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			brand_name = excluded.brand_name,
			beverage_type = excluded.beverage_type,
			container_size_ml = excluded.container_size_ml,
			status = excluded.status,
			correction_deadline = excluded.correction_deadline,
			deadline_expired = excluded.deadline_expired,
			updated_at = excluded.updated_at`,
		l.ID.String(), l.BrandName, string(l.BeverageType), l.ContainerSizeMl,
		string(l.Status), timePtrToString(l.CorrectionDeadline), boolToInt(l.DeadlineExpired),
		l.CreatedAt.Format(time.RFC3339Nano), l.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: failed to save label %s: %w", l.ID, err)
	}
	return nil
}

// GetLabel loads one label by ID.
func (s *Store) GetLabel(ctx context.Context, id uuid.UUID) (*models.Label, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, brand_name, beverage_type, container_size_ml,
			status, correction_deadline, deadline_expired, created_at, updated_at
		FROM labels WHERE id = ?`, id.String())
	return scanLabel(row)
}

// ListLabels returns all labels, most recently updated first.
func (s *Store) ListLabels(ctx context.Context) ([]*models.Label, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, brand_name, beverage_type, container_size_ml,
			status, correction_deadline, deadline_expired, created_at, updated_at
		FROM labels ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: failed to list labels: %w", err)
	}
	defer rows.Close()

	var labels []*models.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// SaveResult persists a new validation result as the label's current one,
// superseding any prior current result and updating the label's status and
// correction deadline, all in one transaction. No partial states are ever
// visible to readers.
func (s *Store) SaveResult(ctx context.Context, result *models.ValidationResult) error {
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	result.IsCurrent = true

	fieldsJSON, err := json.Marshal(result.Fields)
	if err != nil {
		return fmt.Errorf("store: failed to encode field results: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE validation_results SET is_current = 0 WHERE label_id = ? AND is_current = 1`,
		result.LabelID.String()); err != nil {
		return fmt.Errorf("store: failed to supersede prior results: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO validation_results (id, label_id, is_current, status,
			deadline_days, confidence, fields_json, model_used,
			processing_time_ms, prompt_tokens, completion_tokens, created_at)
		VALUES (?, ?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID.String(), result.LabelID.String(), string(result.Status),
		result.DeadlineDays, result.Confidence, string(fieldsJSON), result.ModelUsed,
		result.ProcessingTimeMs, result.PromptTokens, result.CompletionTokens,
		result.CreatedAt.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("store: failed to insert result: %w", err)
	}

	var deadline any
	if result.DeadlineDays > 0 {
		deadline = result.CreatedAt.Add(time.Duration(result.DeadlineDays) * 24 * time.Hour).Format(time.RFC3339Nano)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE labels SET status = ?, correction_deadline = ?, deadline_expired = 0, updated_at = ?
		WHERE id = ?`,
		string(result.Status), deadline, time.Now().UTC().Format(time.RFC3339Nano),
		result.LabelID.String()); err != nil {
		return fmt.Errorf("store: failed to update label status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: failed to commit result: %w", err)
	}

	s.log.Info().
		Str("label_id", result.LabelID.String()).
		Str("result_id", result.ID.String()).
		Str("status", string(result.Status)).
		Msg("Validation result saved as current")
	return nil
}

// CurrentResult loads the label's current validation result, or nil when the
// label has never been validated.
func (s *Store) CurrentResult(ctx context.Context, labelID uuid.UUID) (*models.ValidationResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, label_id, is_current, status, deadline_days, confidence,
			fields_json, model_used, processing_time_ms, prompt_tokens,
			completion_tokens, created_at
		FROM validation_results
		WHERE label_id = ? AND is_current = 1`, labelID.String())

	var r models.ValidationResult
	var id, lid, status, fieldsJSON, createdAt string
	var modelUsed sql.NullString
	var isCurrent int
	err := row.Scan(&id, &lid, &isCurrent, &status, &r.DeadlineDays, &r.Confidence,
		&fieldsJSON, &modelUsed, &r.ProcessingTimeMs, &r.PromptTokens,
		&r.CompletionTokens, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to load current result: %w", err)
	}

	r.ID, _ = uuid.Parse(id)
	r.LabelID, _ = uuid.Parse(lid)
	r.IsCurrent = isCurrent == 1
	r.Status = models.LabelStatus(status)
	r.ModelUsed = modelUsed.String
	if err := json.Unmarshal([]byte(fieldsJSON), &r.Fields); err != nil {
		return nil, fmt.Errorf("store: corrupt field results for %s: %w", id, err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &r, nil
}

// MarkDeadlineExpired eagerly sets the deadline-expired flag on a label.
// Callers may do this when they observe a passed deadline; the effective
// status resolver does not depend on it.
func (s *Store) MarkDeadlineExpired(ctx context.Context, labelID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE labels SET deadline_expired = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), labelID.String())
	if err != nil {
		return fmt.Errorf("store: failed to flag deadline expiry: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLabel(row rowScanner) (*models.Label, error) {
	var l models.Label
	var id, bt, status, createdAt, updatedAt string
	var deadline sql.NullString
	var expired int
	err := row.Scan(&id, &l.BrandName, &bt, &l.ContainerSizeMl,
		&status, &deadline, &expired, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("store: label not found")
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to scan label: %w", err)
	}

	l.ID, _ = uuid.Parse(id)
	l.BeverageType = models.BeverageType(bt)
	l.Status = models.LabelStatus(status)
	l.DeadlineExpired = expired == 1
	if deadline.Valid && deadline.String != "" {
		if t, err := time.Parse(time.RFC3339Nano, deadline.String); err == nil {
			l.CorrectionDeadline = &t
		}
	}
	l.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	l.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &l, nil
}

func timePtrToString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
