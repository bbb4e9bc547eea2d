package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openjournal/editorial-service/internal/domain"
)

// Compile-time interface verification.
var _ ManuscriptRepository = (*PgManuscriptRepository)(nil)

// PgManuscriptRepository is a PostgreSQL implementation of ManuscriptRepository.
type PgManuscriptRepository struct {
	db DBTX
}

// NewPgManuscriptRepository creates a new PostgreSQL manuscript repository.
func NewPgManuscriptRepository(db DBTX) *PgManuscriptRepository {
	return &PgManuscriptRepository{db: db}
}

const manuscriptColumns = `id, code, title, abstract, keywords, category, author_id,
		status, version, created_at, status_changed_at, updated_at`

// Create inserts a new manuscript in its initial state.
func (r *PgManuscriptRepository) Create(ctx context.Context, m *domain.Manuscript) error {
	if m == nil {
		return domain.NewValidationError("manuscript", "manuscript cannot be nil")
	}
	if m.ID == uuid.Nil {
		return domain.NewValidationError("id", "manuscript ID is required")
	}
	if m.Title == "" {
		return domain.NewValidationError("title", "title is required")
	}
	if m.AuthorID == "" {
		return domain.NewValidationError("author_id", "author ID is required")
	}
	if !m.Status.IsValid() {
		return domain.NewValidationError("status", "unknown manuscript status: "+string(m.Status))
	}

	keywordsJSON, err := json.Marshal(m.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}

	query := `
		INSERT INTO manuscripts (
			id, code, title, abstract, keywords, category, author_id,
			status, version, created_at, status_changed_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12
		)`

	_, err = r.db.Exec(ctx, query,
		m.ID, m.Code, m.Title, nullString(m.Abstract), keywordsJSON, m.Category, m.AuthorID,
		m.Status, m.Version, m.CreatedAt, m.StatusChangedAt, m.UpdatedAt,
	)

	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("manuscript", m.ID.String())
		}
		return fmt.Errorf("failed to create manuscript: %w", err)
	}

	return nil
}

// Get retrieves a manuscript by ID.
func (r *PgManuscriptRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Manuscript, error) {
	query := `
		SELECT ` + manuscriptColumns + `
		FROM manuscripts
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	m, err := scanManuscript(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("manuscript", id.String())
		}
		return nil, fmt.Errorf("failed to get manuscript: %w", err)
	}

	return m, nil
}

// List retrieves manuscripts matching the filter criteria.
func (r *PgManuscriptRepository) List(ctx context.Context, filter ManuscriptFilter) ([]*domain.Manuscript, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	// Build dynamic WHERE clause
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argIndex := 1

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, s)
			argIndex++
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	if filter.AuthorID != "" {
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", argIndex))
		args = append(args, filter.AuthorID)
		argIndex++
	}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, filter.Category)
		argIndex++
	}

	if filter.CreatedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("created_at > $%d", argIndex))
		args = append(args, *filter.CreatedAfter)
		argIndex++
	}

	if filter.CreatedBefore != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argIndex))
		args = append(args, *filter.CreatedBefore)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM manuscripts WHERE %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count manuscripts: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT `+manuscriptColumns+`
		FROM manuscripts
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list manuscripts: %w", err)
	}
	defer rows.Close()

	manuscripts := make([]*domain.Manuscript, 0, filter.Limit)
	for rows.Next() {
		m, err := scanManuscriptFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan manuscript: %w", err)
		}
		manuscripts = append(manuscripts, m)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating manuscripts: %w", err)
	}

	return manuscripts, totalCount, nil
}

// UpdateStatusCAS applies a status change with compare-and-swap semantics.
func (r *PgManuscriptRepository) UpdateStatusCAS(ctx context.Context, id uuid.UUID, expectedStatus domain.ManuscriptStatus, expectedVersion int, newStatus domain.ManuscriptStatus, changedAt time.Time) error {
	query := `
		UPDATE manuscripts
		SET status = $1,
			version = version + 1,
			status_changed_at = $2,
			updated_at = $2
		WHERE id = $3 AND status = $4 AND version = $5`

	result, err := r.db.Exec(ctx, query, newStatus, changedAt, id, expectedStatus, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update manuscript status: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing row from a lost race.
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM manuscripts WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check manuscript existence: %w", err)
		}
		if !exists {
			return domain.NewNotFoundError("manuscript", id.String())
		}
		return domain.NewConflictError("manuscript", id.String())
	}

	return nil
}

// AppendStatusHistory appends one status-history record.
func (r *PgManuscriptRepository) AppendStatusHistory(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	if entry == nil {
		return domain.NewValidationError("entry", "history entry cannot be nil")
	}

	query := `
		INSERT INTO manuscript_status_history (
			id, manuscript_id, from_status, to_status, actor_id, actor_role, note, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)`

	_, err := r.db.Exec(ctx, query,
		entry.ID, entry.ManuscriptID, entry.FromStatus, entry.ToStatus,
		entry.ActorID, entry.ActorRole, nullString(entry.Note), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}

	return nil
}

// ListStatusHistory returns a manuscript's status history, oldest first.
func (r *PgManuscriptRepository) ListStatusHistory(ctx context.Context, manuscriptID uuid.UUID) ([]*domain.StatusHistoryEntry, error) {
	query := `
		SELECT id, manuscript_id, from_status, to_status, actor_id, actor_role, note, created_at
		FROM manuscript_status_history
		WHERE manuscript_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, manuscriptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.StatusHistoryEntry
	for rows.Next() {
		var (
			entry domain.StatusHistoryEntry
			note  *string
		)
		if err := rows.Scan(
			&entry.ID, &entry.ManuscriptID, &entry.FromStatus, &entry.ToStatus,
			&entry.ActorID, &entry.ActorRole, &note, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan status history entry: %w", err)
		}
		if note != nil {
			entry.Note = *note
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status history: %w", err)
	}

	return entries, nil
}

// AppendDecision appends one decision-history record.
func (r *PgManuscriptRepository) AppendDecision(ctx context.Context, d *domain.Decision) error {
	if d == nil {
		return domain.NewValidationError("decision", "decision cannot be nil")
	}
	if d.EditorID == "" {
		return domain.NewValidationError("editor_id", "editor ID is required")
	}

	query := `
		INSERT INTO manuscript_decisions (
			id, manuscript_id, editor_id, value, note, decided_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)`

	_, err := r.db.Exec(ctx, query,
		d.ID, d.ManuscriptID, d.EditorID, d.Value, nullString(d.Note), d.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append decision: %w", err)
	}

	return nil
}

// ListDecisions returns a manuscript's decision history, oldest first.
func (r *PgManuscriptRepository) ListDecisions(ctx context.Context, manuscriptID uuid.UUID) ([]*domain.Decision, error) {
	query := `
		SELECT id, manuscript_id, editor_id, value, note, decided_at
		FROM manuscript_decisions
		WHERE manuscript_id = $1
		ORDER BY decided_at ASC`

	rows, err := r.db.Query(ctx, query, manuscriptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*domain.Decision
	for rows.Next() {
		var (
			d    domain.Decision
			note *string
		)
		if err := rows.Scan(&d.ID, &d.ManuscriptID, &d.EditorID, &d.Value, &note, &d.DecidedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		if note != nil {
			d.Note = *note
		}
		decisions = append(decisions, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}

	return decisions, nil
}

// manuscriptScanDest holds the destination pointers for scanning a manuscript row.
// This eliminates code duplication between pgx.Row and pgx.Rows scanning.
type manuscriptScanDest struct {
	m            domain.Manuscript
	abstract     *string
	keywordsJSON []byte
}

// destinations returns the slice of pointers for Scan operations.
func (d *manuscriptScanDest) destinations() []interface{} {
	return []interface{}{
		&d.m.ID, &d.m.Code, &d.m.Title, &d.abstract, &d.keywordsJSON, &d.m.Category, &d.m.AuthorID,
		&d.m.Status, &d.m.Version, &d.m.CreatedAt, &d.m.StatusChangedAt, &d.m.UpdatedAt,
	}
}

// finalize performs post-scan processing: sets nullable fields and unmarshals JSON.
func (d *manuscriptScanDest) finalize() (*domain.Manuscript, error) {
	if d.abstract != nil {
		d.m.Abstract = *d.abstract
	}

	if len(d.keywordsJSON) > 0 {
		if err := json.Unmarshal(d.keywordsJSON, &d.m.Keywords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
		}
	}

	return &d.m, nil
}

// scanManuscript scans a single row into a Manuscript.
func scanManuscript(row pgx.Row) (*domain.Manuscript, error) {
	var dest manuscriptScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// scanManuscriptFromRows scans the current row from pgx.Rows into a Manuscript.
func scanManuscriptFromRows(rows pgx.Rows) (*domain.Manuscript, error) {
	var dest manuscriptScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
