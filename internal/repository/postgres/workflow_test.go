package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

func TestVisitorDecide_OnlyFromPending(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewVisitorRepository(db)

	at := time.Now()
	mock.ExpectExec(`UPDATE visitors SET status = \$2.* WHERE id = \$1 AND status = \$5`).
		WithArgs(8, "APPROVED", 3, at, "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE visitors SET status = \$2`).
		WithArgs(8, "REJECTED", 3, at, "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Decide(context.Background(), 8, models.VisitorStatusApproved, 3, at))
	err := repo.Decide(context.Background(), 8, models.VisitorStatusRejected, 3, at)

	assert.ErrorIs(t, err, repository.ErrStale)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitorList_FlatAndStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewVisitorRepository(db)

	flatID := int64(9)
	status := models.VisitorStatusPending
	now := time.Now()
	mock.ExpectQuery(`WHERE TRUE AND v.flat_id = \$1 AND v.status = \$2 ORDER BY v.created_at DESC LIMIT \$3`).
		WithArgs(9, "PENDING", 50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "phone", "purpose", "flat_id", "status", "created_by_id", "decided_by_id", "decided_at", "created_at",
			"block", "flat_number",
		}).AddRow(1, "Plumber", "+15550111", "Repair", 9, "PENDING", 3, nil, nil, now, 2, "104"))

	list, err := repo.List(context.Background(), repository.VisitorFilters{FlatID: &flatID, Status: &status, Limit: 50})

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsPending())
	assert.Equal(t, "B2-104", list[0].Flat.Label())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueClose_WritesNotification(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewIssueRepository(db)

	at := time.Now()
	n := models.NewNotification(3, models.NotificationIssue, 12, "Your issue was closed")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE issues SET status = \$2`).
		WithArgs(12, "CLOSED", 5, at, "Replaced the fuse", "OPEN").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(3, "ISSUE", "Your issue was closed", nil, nil, 12, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(100, at))
	mock.ExpectCommit()

	err := repo.Close(context.Background(), 12, 5, "Replaced the fuse", at, n)

	require.NoError(t, err)
	assert.Equal(t, int64(100), n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueClose_AlreadyClosed(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewIssueRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE issues SET status = \$2`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Close(context.Background(), 12, 5, "again", time.Now(), nil)

	assert.ErrorIs(t, err, repository.ErrStale)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskTransition_AuditAndNotification(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewTaskRepository(db)

	from, to := models.TaskStatusOpen, models.TaskStatusInProgress
	audit := &models.TaskComment{
		TaskID:     4,
		AuthorID:   7,
		Kind:       models.TaskCommentStatusChange,
		Body:       models.DefaultTransitionComment(from, to),
		FromStatus: &from,
		ToStatus:   &to,
	}
	n := models.NewNotification(2, models.NotificationTask, 4, "Task moved to IN_PROGRESS")
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tasks SET status = \$3, updated_at = NOW\(\) WHERE id = \$1 AND status = \$2`).
		WithArgs(4, "OPEN", "IN_PROGRESS").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO task_comments`).
		WithArgs(4, 7, "STATUS_CHANGE", "Status changed from OPEN to IN_PROGRESS", "OPEN", "IN_PROGRESS").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(30, now))
	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(2, "TASK", "Task moved to IN_PROGRESS", nil, nil, nil, 4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(31, now))
	mock.ExpectCommit()

	err := repo.Transition(context.Background(), 4, from, to, audit, n)

	require.NoError(t, err)
	assert.Equal(t, int64(30), audit.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskTransition_LostRace(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewTaskRepository(db)

	from, to := models.TaskStatusInProgress, models.TaskStatusClosed
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tasks SET status`).
		WithArgs(4, "IN_PROGRESS", "CLOSED").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), 4, from, to, &models.TaskComment{TaskID: 4}, nil)

	assert.ErrorIs(t, err, repository.ErrStale)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskCreate_NotifiesOwner(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewTaskRepository(db)

	now := time.Now()
	n := &models.Notification{ResidentID: 6, Kind: models.NotificationTask, Message: "New task assigned: Fix lift"}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs("Fix lift", "", "OPEN", "MEDIUM", nil, 1, 6, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(4, now, now))
	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(6, "TASK", "New task assigned: Fix lift", nil, nil, nil, 4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(9, now))
	mock.ExpectCommit()

	task, err := repo.Create(context.Background(), &models.Task{Title: "Fix lift", CreatorID: 1, OwnerID: 6}, n)

	require.NoError(t, err)
	assert.Equal(t, int64(4), task.ID)
	assert.Equal(t, models.TaskPriorityMedium, task.Priority)
	require.NotNil(t, n.TaskID)
	assert.Equal(t, int64(4), *n.TaskID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkAllRead(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(`UPDATE notifications SET read = TRUE WHERE resident_id = \$1 AND NOT read`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := repo.MarkAllRead(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationSetRead_OtherResident(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(`UPDATE notifications SET read = \$3 WHERE id = \$1 AND resident_id = \$2`).
		WithArgs(10, 3, true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetRead(context.Background(), 10, 3, true)

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
