package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type issueRepository struct {
	db *sql.DB
}

// NewIssueRepository creates a new maintenance issue repository
func NewIssueRepository(db *sql.DB) repository.IssueRepository {
	return &issueRepository{db: db}
}

const issueSelect = `SELECT i.id, i.title, i.description, i.category, i.location, i.status, i.reporter_id,
		i.closed_by_id, i.closed_at, i.closure_comment, i.created_at, i.updated_at, r.name, r.email
	FROM issues i JOIN residents r ON r.id = i.reporter_id`

func scanIssue(row interface{ Scan(...any) error }) (*models.Issue, error) {
	i := &models.Issue{Reporter: &models.Resident{}}
	err := row.Scan(&i.ID, &i.Title, &i.Description, &i.Category, &i.Location, &i.Status, &i.ReporterID,
		&i.ClosedByID, &i.ClosedAt, &i.ClosureComment, &i.CreatedAt, &i.UpdatedAt, &i.Reporter.Name, &i.Reporter.Email)
	i.Reporter.ID = i.ReporterID
	return i, err
}

func (r *issueRepository) Create(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
	query := `INSERT INTO issues (title, description, category, location, status, reporter_id, closure_comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, '', $7, $7)
		RETURNING id, created_at, updated_at`
	issue.Status = models.IssueStatusOpen
	err := r.db.QueryRowContext(ctx, query,
		issue.Title, issue.Description, issue.Category, issue.Location, issue.Status, issue.ReporterID, time.Now(),
	).Scan(&issue.ID, &issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}
	return issue, nil
}

func (r *issueRepository) GetByID(ctx context.Context, id int64) (*models.Issue, error) {
	issue, err := scanIssue(r.db.QueryRowContext(ctx, issueSelect+` WHERE i.id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}
	return issue, nil
}

func (r *issueRepository) List(ctx context.Context, filters repository.IssueFilters) ([]*models.Issue, error) {
	query := issueSelect + ` WHERE TRUE`
	var args []any
	argIdx := 1

	if filters.ReporterID != nil {
		query += fmt.Sprintf(" AND i.reporter_id = $%d", argIdx)
		args = append(args, *filters.ReporterID)
		argIdx++
	}
	if filters.Status != nil {
		query += fmt.Sprintf(" AND i.status = $%d", argIdx)
		args = append(args, *filters.Status)
		argIdx++
	}
	query += " ORDER BY i.created_at DESC"
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	var list []*models.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		list = append(list, issue)
	}
	return list, rows.Err()
}

// Close moves an OPEN issue to CLOSED and records the reporter notification in the same transaction
func (r *issueRepository) Close(ctx context.Context, id, closerID int64, comment string, at time.Time, n *models.Notification) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE issues SET status = $2, closed_by_id = $3, closed_at = $4, closure_comment = $5, updated_at = $4
			WHERE id = $1 AND status = $6`,
			id, models.IssueStatusClosed, closerID, at, comment, models.IssueStatusOpen)
		if err != nil {
			return fmt.Errorf("failed to close issue: %w", err)
		}
		if err := expectOne(result); err != nil {
			return repository.ErrStale
		}
		if n != nil {
			return insertNotification(ctx, tx, n)
		}
		return nil
	})
}
