package issues

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicai/civicai/internal/classify"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when the requested issue does not exist.
var ErrNotFound = errors.New("issue not found")

const issueColumns = `id, reporter_id, is_anonymous, title, description, category,
	priority, status, latitude, longitude, address, photo_urls,
	ai_category, ai_confidence, created_at, updated_at`

// Store persists issues in PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a Store over an existing connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Connect opens a pgx connection pool and verifies it with a ping.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// Create inserts a new issue and returns it with generated fields filled.
// Anonymous issues are stored without a reporter even if one is supplied.
func (s *Store) Create(ctx context.Context, input Input) (*Issue, error) {
	issue := &Issue{
		ID:           uuid.New(),
		ReporterID:   input.ReporterID,
		Anonymous:    input.Anonymous,
		Title:        input.Title,
		Description:  input.Description,
		Category:     input.Category,
		Priority:     input.Priority,
		Status:       StatusPending,
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		Address:      input.Address,
		PhotoURLs:    input.PhotoURLs,
		AICategory:   input.AICategory,
		AIConfidence: input.AIConfidence,
	}
	if issue.Anonymous {
		issue.ReporterID = nil
	}
	if !issue.Category.IsValid() {
		issue.Category = classify.CategoryOthers
	}
	if !issue.Priority.IsValid() {
		issue.Priority = PriorityMedium
	}
	if issue.Address == "" {
		issue.Address = fmt.Sprintf("%v, %v", issue.Latitude, issue.Longitude)
	}
	if issue.PhotoURLs == nil {
		issue.PhotoURLs = []string{}
	}

	query := `
		INSERT INTO issues (
			id, reporter_id, is_anonymous, title, description, category,
			priority, status, latitude, longitude, address, photo_urls,
			ai_category, ai_confidence
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRow(ctx, query,
		issue.ID,
		issue.ReporterID,
		issue.Anonymous,
		issue.Title,
		issue.Description,
		string(issue.Category),
		string(issue.Priority),
		string(issue.Status),
		issue.Latitude,
		issue.Longitude,
		issue.Address,
		issue.PhotoURLs,
		issue.AICategory,
		issue.AIConfidence,
	).Scan(&issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating issue: %w", err)
	}

	log.Info().
		Str("issue_id", issue.ID.String()).
		Str("category", string(issue.Category)).
		Bool("anonymous", issue.Anonymous).
		Msg("Issue created")

	return issue, nil
}

// Get retrieves an issue by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Issue, error) {
	query := fmt.Sprintf(`SELECT %s FROM issues WHERE id = $1`, issueColumns)
	return scanIssue(s.db.QueryRow(ctx, query, id))
}

// List returns issues matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Issue, error) {
	query, args := buildListQuery(filter)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	defer rows.Close()

	return collectIssues(rows)
}

// ListByReporter returns non-anonymous issues filed by the given reporter,
// newest first.
func (s *Store) ListByReporter(ctx context.Context, reporterID uuid.UUID) ([]Issue, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM issues
		WHERE reporter_id = $1 AND is_anonymous = FALSE
		ORDER BY created_at DESC`, issueColumns)

	rows, err := s.db.Query(ctx, query, reporterID)
	if err != nil {
		return nil, fmt.Errorf("listing issues by reporter: %w", err)
	}
	defer rows.Close()

	return collectIssues(rows)
}

// Update applies the non-nil fields of upd to an issue and returns the
// updated row.
func (s *Store) Update(ctx context.Context, id uuid.UUID, upd Update) (*Issue, error) {
	query, args := buildUpdateQuery(id, upd)
	if query == "" {
		return s.Get(ctx, id)
	}

	issue, err := scanIssue(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}

	log.Info().Str("issue_id", id.String()).Msg("Issue updated")
	return issue, nil
}

// UpdateStatus transitions an issue to the given lifecycle status.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid status %q", status)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE issues SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("updating issue status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	log.Info().
		Str("issue_id", id.String()).
		Str("status", string(status)).
		Msg("Issue status updated")
	return nil
}

// Delete removes an issue.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM issues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting issue: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats aggregates issue counts by status, category, and priority.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.Query(ctx, `SELECT status, category, priority FROM issues`)
	if err != nil {
		return nil, fmt.Errorf("fetching issue stats: %w", err)
	}
	defer rows.Close()

	stats := NewStats()
	for rows.Next() {
		var status, category, priority string
		if err := rows.Scan(&status, &category, &priority); err != nil {
			return nil, fmt.Errorf("scanning stats row: %w", err)
		}
		stats.Total++
		stats.ByStatus[Status(status)]++
		stats.ByCategory[classify.Category(category)]++
		stats.ByPriority[Priority(priority)]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stats rows: %w", err)
	}
	return stats, nil
}

// buildListQuery assembles the filtered SELECT for List.
func buildListQuery(filter Filter) (string, []interface{}) {
	query := fmt.Sprintf(`SELECT %s FROM issues`, issueColumns)
	var args []interface{}
	argNum := 1

	appendCond := func(cond string, val interface{}) {
		if len(args) == 0 {
			query += " WHERE "
		} else {
			query += " AND "
		}
		query += fmt.Sprintf(cond, argNum)
		args = append(args, val)
		argNum++
	}

	if filter.Category != nil {
		appendCond("category = $%d", string(*filter.Category))
	}
	if filter.Priority != nil {
		appendCond("priority = $%d", string(*filter.Priority))
	}
	if filter.Status != nil {
		appendCond("status = $%d", string(*filter.Status))
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	return query, args
}

// buildUpdateQuery assembles the UPDATE for the non-nil fields of upd.
// Returns an empty query when there is nothing to update.
func buildUpdateQuery(id uuid.UUID, upd Update) (string, []interface{}) {
	sets := ""
	var args []interface{}
	argNum := 1

	appendSet := func(col string, val interface{}) {
		if sets != "" {
			sets += ", "
		}
		sets += fmt.Sprintf("%s = $%d", col, argNum)
		args = append(args, val)
		argNum++
	}

	if upd.Title != nil {
		appendSet("title", *upd.Title)
	}
	if upd.Description != nil {
		appendSet("description", *upd.Description)
	}
	if upd.Category != nil {
		appendSet("category", string(*upd.Category))
	}
	if upd.Priority != nil {
		appendSet("priority", string(*upd.Priority))
	}
	if upd.Status != nil {
		appendSet("status", string(*upd.Status))
	}
	if upd.PhotoURLs != nil {
		appendSet("photo_urls", *upd.PhotoURLs)
	}

	if sets == "" {
		return "", nil
	}

	query := fmt.Sprintf(
		`UPDATE issues SET %s, updated_at = now() WHERE id = $%d RETURNING %s`,
		sets, argNum, issueColumns)
	args = append(args, id)
	return query, args
}

func scanIssue(row pgx.Row) (*Issue, error) {
	var issue Issue
	var category, priority, status string

	err := row.Scan(
		&issue.ID,
		&issue.ReporterID,
		&issue.Anonymous,
		&issue.Title,
		&issue.Description,
		&category,
		&priority,
		&status,
		&issue.Latitude,
		&issue.Longitude,
		&issue.Address,
		&issue.PhotoURLs,
		&issue.AICategory,
		&issue.AIConfidence,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning issue: %w", err)
	}

	issue.Category = classify.Category(category)
	issue.Priority = Priority(priority)
	issue.Status = Status(status)
	return &issue, nil
}

func collectIssues(rows pgx.Rows) ([]Issue, error) {
	issues := []Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, *issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating issue rows: %w", err)
	}
	return issues, nil
}

// storeTimeout bounds store calls made from request handlers.
const storeTimeout = 10 * time.Second

// WithTimeout derives a context suitable for one store call.
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}
