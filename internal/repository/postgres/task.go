package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type taskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB) repository.TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, title, description, status, priority, due_date, creator_id, owner_id, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	t := &models.Task{}
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.DueDate, &t.CreatorID, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task, n *models.Notification) (*models.Task, error) {
	query := `INSERT INTO tasks (title, description, status, priority, due_date, creator_id, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	now := time.Now()
	if task.Status == "" {
		task.Status = models.TaskStatusOpen
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, query,
			task.Title, task.Description, task.Status, task.Priority,
			task.DueDate, task.CreatorID, task.OwnerID, now, now,
		).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return fmt.Errorf("failed to create task: %w", mapError(err))
		}
		if n != nil {
			id := task.ID
			n.TaskID = &id
			return insertNotification(ctx, tx, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (r *taskRepository) List(ctx context.Context, filters repository.TaskFilters) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE TRUE`
	var args []any
	argIdx := 1

	if filters.OwnerID != nil {
		query += fmt.Sprintf(" AND owner_id = $%d", argIdx)
		args = append(args, *filters.OwnerID)
		argIdx++
	}
	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filters.Status)
		argIdx++
	}
	query += " ORDER BY updated_at DESC"
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Transition changes the task status only if it still equals from, and
// records the audit comment and notification atomically with it.
func (r *taskRepository) Transition(ctx context.Context, taskID int64, from, to models.TaskStatus, audit *models.TaskComment, n *models.Notification) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE tasks SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`, taskID, from, to)
		if err != nil {
			return fmt.Errorf("failed to update task status: %w", err)
		}
		if err := expectOne(result); err != nil {
			return repository.ErrStale
		}
		if err := insertTaskComment(ctx, tx, audit); err != nil {
			return err
		}
		if n != nil {
			return insertNotification(ctx, tx, n)
		}
		return nil
	})
}

func (r *taskRepository) AddComment(ctx context.Context, c *models.TaskComment, n *models.Notification) (*models.TaskComment, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := insertTaskComment(ctx, tx, c); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET updated_at = NOW() WHERE id = $1`, c.TaskID); err != nil {
			return fmt.Errorf("failed to touch task: %w", err)
		}
		if n != nil {
			return insertNotification(ctx, tx, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func insertTaskComment(ctx context.Context, q querier, c *models.TaskComment) error {
	if c.Kind == "" {
		c.Kind = models.TaskCommentNote
	}
	err := q.QueryRowContext(ctx,
		`INSERT INTO task_comments (task_id, author_id, kind, body, from_status, to_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at`,
		c.TaskID, c.AuthorID, c.Kind, c.Body, c.FromStatus, c.ToStatus,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task comment: %w", mapError(err))
	}
	return nil
}

func (r *taskRepository) ListComments(ctx context.Context, taskID int64) ([]models.TaskComment, error) {
	query := `SELECT c.id, c.task_id, c.author_id, c.kind, c.body, c.from_status, c.to_status, c.created_at, r.name, r.role
		FROM task_comments c JOIN residents r ON r.id = c.author_id
		WHERE c.task_id = $1 ORDER BY c.created_at ASC, c.id ASC`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task comments: %w", err)
	}
	defer rows.Close()

	comments := []models.TaskComment{}
	for rows.Next() {
		c := models.TaskComment{Author: &models.Resident{}}
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Kind, &c.Body, &c.FromStatus, &c.ToStatus,
			&c.CreatedAt, &c.Author.Name, &c.Author.Role); err != nil {
			return nil, fmt.Errorf("failed to scan task comment: %w", err)
		}
		c.Author.ID = c.AuthorID
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
