package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ResidentHub/internal/models"
)

func TestVisitorDecidedOnce(t *testing.T) {
	f := newFixture(t)
	host := f.member(t, "host@example.com", models.RoleResident, 4, "401")
	mate := f.member(t, "mate@example.com", models.RoleResident, 4, "401")
	neighbour := f.member(t, "neighbour@example.com", models.RoleResident, 4, "402")
	guard := f.member(t, "gate@example.com", models.RoleSecurity, 0, "")

	in := VisitorInput{Name: "Plumber", Purpose: "repair", Block: 4, FlatNumber: "401"}
	_, err := f.svc.CreateVisitor(f.ctx, neighbour, in)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.CreateVisitor(f.ctx, host, VisitorInput{Name: "x", Block: 4, FlatNumber: "999"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	v, err := f.svc.CreateVisitor(f.ctx, host, in)
	require.NoError(t, err)
	assert.Equal(t, models.VisitorStatusPending, v.Status)
	assert.Len(t, f.notifications(t, mate.ResidentID), 1, "flatmates hear about the visitor")
	assert.Empty(t, f.notifications(t, host.ResidentID))

	_, err = f.svc.GetVisitor(f.ctx, neighbour, v.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.DecideVisitor(f.ctx, guard, v.ID, models.VisitorStatusPending)
	assert.ErrorAs(t, err, &verr)

	decided, err := f.svc.DecideVisitor(f.ctx, guard, v.ID, models.VisitorStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.VisitorStatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedByID)
	assert.Equal(t, guard.ResidentID, *decided.DecidedByID)

	notes := f.notifications(t, host.ResidentID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Visitor Plumber was approved", notes[0].Message)

	_, err = f.svc.DecideVisitor(f.ctx, mate, v.ID, models.VisitorStatusRejected)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, "visitor is already APPROVED", Describe(err))

	mine, err := f.svc.ListVisitors(f.ctx, neighbour, nil)
	require.NoError(t, err)
	assert.Empty(t, mine)
	all, err := f.svc.ListVisitors(f.ctx, guard, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCloseIssue(t *testing.T) {
	f := newFixture(t)
	reporter := f.member(t, "rep@example.com", models.RoleResident, 1, "110")
	other := f.member(t, "other@example.com", models.RoleResident, 1, "111")
	fm := f.member(t, "fm@example.com", models.RoleFacilityManager, 0, "")

	issue, err := f.svc.CreateIssue(f.ctx, reporter, IssueInput{Title: "Lift stuck", Description: "Tower A lift", Location: "Block 1"})
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusOpen, issue.Status)

	_, err = f.svc.GetIssue(f.ctx, other, issue.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	list, err := f.svc.ListIssues(f.ctx, other, nil)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.CloseIssue(f.ctx, reporter, issue.ID, IssueUpdate{Status: models.IssueStatusClosed, Comment: "fixed"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.CloseIssue(f.ctx, fm, issue.ID, IssueUpdate{Status: models.IssueStatusClosed})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr, "a closure comment is required")

	closed, err := f.svc.CloseIssue(f.ctx, fm, issue.ID, IssueUpdate{Status: models.IssueStatusClosed, Comment: "Motor replaced"})
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusClosed, closed.Status)
	assert.Equal(t, "Motor replaced", closed.ClosureComment)

	notes := f.notifications(t, reporter.ResidentID)
	require.Len(t, notes, 1)
	require.NotNil(t, notes[0].IssueID)
	assert.Equal(t, issue.ID, *notes[0].IssueID)

	_, err = f.svc.CloseIssue(f.ctx, fm, issue.ID, IssueUpdate{Status: models.IssueStatusClosed, Comment: "again"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTaskStatusMachine(t *testing.T) {
	f := newFixture(t)
	admin := f.member(t, "admin@example.com", models.RoleAdmin, 0, "")
	fm := f.member(t, "fm@example.com", models.RoleFacilityManager, 0, "")
	res := f.member(t, "res@example.com", models.RoleResident, 2, "220")

	_, err := f.svc.CreateTask(f.ctx, admin, TaskInput{Title: "Paint gate", OwnerID: res.ResidentID})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr, "residents cannot own tasks")
	_, err = f.svc.CreateTask(f.ctx, fm, TaskInput{Title: "Paint gate", OwnerID: fm.ResidentID})
	assert.ErrorIs(t, err, ErrForbidden)

	task, err := f.svc.CreateTask(f.ctx, admin, TaskInput{Title: "Paint gate", OwnerID: fm.ResidentID})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPriorityMedium, task.Priority)
	assert.Len(t, f.notifications(t, fm.ResidentID), 1)

	_, err = f.svc.UpdateTaskStatus(f.ctx, fm, task.ID, TaskUpdate{Status: models.TaskStatusClosed})
	assert.ErrorIs(t, err, ErrInvalidTransition, "OPEN cannot jump to CLOSED")

	for _, to := range []models.TaskStatus{models.TaskStatusInProgress, models.TaskStatusBlocked, models.TaskStatusInProgress, models.TaskStatusClosed} {
		_, err = f.svc.UpdateTaskStatus(f.ctx, fm, task.ID, TaskUpdate{Status: to})
		require.NoError(t, err, to)
	}

	_, err = f.svc.UpdateTaskStatus(f.ctx, fm, task.ID, TaskUpdate{Status: models.TaskStatusOpen})
	assert.ErrorIs(t, err, ErrForbidden, "only administrators reopen")

	reopened, err := f.svc.UpdateTaskStatus(f.ctx, admin, task.ID, TaskUpdate{Status: models.TaskStatusOpen, Comment: "Second coat"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusOpen, reopened.Status)
	require.Len(t, reopened.Comments, 5)
	last := reopened.Comments[4]
	assert.Equal(t, models.TaskCommentStatusChange, last.Kind)
	assert.Equal(t, "Second coat", last.Body)
	assert.Equal(t, "Status changed from OPEN to IN_PROGRESS", reopened.Comments[0].Body)

	// the creator heard about each move by the owner, the owner about the reopen
	assert.Len(t, f.notifications(t, admin.ResidentID), 4)
	assert.Len(t, f.notifications(t, fm.ResidentID), 2)

	_, err = f.svc.GetTask(f.ctx, res, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.ListTasks(f.ctx, res, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	c, err := f.svc.AddTaskComment(f.ctx, fm, task.ID, CommentInput{Body: "Paint ordered"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskCommentNote, c.Kind)
	assert.Len(t, f.notifications(t, admin.ResidentID), 5)
}

func TestAnnouncementVisibilityAndNotifications(t *testing.T) {
	f := newFixture(t)
	admin := f.member(t, "admin@example.com", models.RoleAdmin, 0, "")
	res := f.member(t, "res@example.com", models.RoleResident, 1, "101")
	pending := f.member(t, "new@example.com", models.RoleResident, 0, "")

	draft, err := f.svc.CreateAnnouncement(f.ctx, admin, AnnouncementInput{Title: "Water cut"})
	require.NoError(t, err)
	_, err = f.svc.GetAnnouncement(f.ctx, res, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound, "drafts are invisible to residents")
	assert.Empty(t, f.notifications(t, res.ResidentID))

	published := true
	_, err = f.svc.UpdateAnnouncement(f.ctx, admin, draft.ID, AnnouncementPatch{Published: &published})
	require.NoError(t, err)

	notes := f.notifications(t, res.ResidentID)
	require.Len(t, notes, 1)
	assert.Equal(t, "New announcement: Water cut", notes[0].Message)
	assert.Empty(t, f.notifications(t, pending.ResidentID), "only registered residents are notified")

	// republishing does not notify twice
	_, err = f.svc.UpdateAnnouncement(f.ctx, admin, draft.ID, AnnouncementPatch{Published: &published})
	require.NoError(t, err)
	assert.Len(t, f.notifications(t, res.ResidentID), 1)

	list, err := f.svc.ListAnnouncements(f.ctx, res)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.svc.DeleteAnnouncement(f.ctx, admin, draft.ID))
	assert.ErrorIs(t, f.svc.DeleteAnnouncement(f.ctx, admin, draft.ID), ErrNotFound)
}

func TestSportsRegistration(t *testing.T) {
	f := newFixture(t)
	admin := f.member(t, "admin@example.com", models.RoleAdmin, 0, "")
	res := f.member(t, "res@example.com", models.RoleResident, 2, "202")

	a, err := f.svc.CreateAnnouncement(f.ctx, admin, AnnouncementInput{Title: "Sports day", Published: true})
	require.NoError(t, err)
	cfg, err := f.svc.SetSportsConfig(f.ctx, admin, a.ID, SportsConfigInput{
		Deadline:      f.now.Add(72 * time.Hour),
		AgeCategories: []string{"U10", "Adult", "U10"},
		SportItems:    []SportItemInput{{Name: "Sprint", Fee: 100}, {Name: "Chess", Fee: 50}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"U10", "Adult"}, cfg.AgeCategories)
	sprint, chess := cfg.SportItems[0].ID, cfg.SportItems[1].ID

	_, err = f.svc.SubmitSportsRegistration(f.ctx, res, a.ID, SportsRegistrationInput{
		Participants: []ParticipantInput{{Name: "Kid", AgeCategory: "Senior", SportItemIDs: []int64{sprint}}},
	})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	reg, err := f.svc.SubmitSportsRegistration(f.ctx, res, a.ID, SportsRegistrationInput{
		Participants: []ParticipantInput{
			{Name: "Kid", AgeCategory: "U10", SportItemIDs: []int64{sprint, sprint}},
			{Name: "Parent", AgeCategory: "Adult", SportItemIDs: []int64{sprint, chess}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{sprint}, reg.Participants[0].SportItemIDs, "duplicate entries collapse")

	view, err := f.svc.GetSportsRegistration(f.ctx, res, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), view.TotalFee)

	require.NoError(t, f.svc.SetSportsPaid(f.ctx, admin, reg.ID, true))
	report, err := f.svc.SportsRegistrations(f.ctx, admin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Registrations)
	assert.Equal(t, 2, report.Summary.Participants)
	assert.Equal(t, int64(250), report.Summary.PaidFee)
	assert.Equal(t, SportSummary{SportItemID: sprint, Name: "Sprint", Fee: 100, Participants: 2, Amount: 200}, report.Summary.Sports[0])
	assert.Equal(t, []AgeCategorySummary{{Category: "U10", Participants: 1}, {Category: "Adult", Participants: 1}}, report.Summary.AgeCategories)

	// a sport with entries cannot be dropped
	_, err = f.svc.SetSportsConfig(f.ctx, admin, a.ID, SportsConfigInput{
		Deadline:      cfg.Deadline,
		AgeCategories: []string{"U10", "Adult"},
		SportItems:    []SportItemInput{{ID: chess, Name: "Chess", Fee: 50}},
	})
	assert.ErrorAs(t, err, &verr)

	f.now = cfg.Deadline.Add(1)
	assert.ErrorIs(t, f.svc.CancelSportsRegistration(f.ctx, res, a.ID), ErrDeadlinePassed)

	_, err = f.svc.SubmitSportsRegistration(f.ctx, res, a.ID, SportsRegistrationInput{
		Participants: []ParticipantInput{{Name: "Kid", AgeCategory: "U10", SportItemIDs: []int64{sprint}}},
	})
	assert.ErrorIs(t, err, ErrDeadlinePassed)

	// the deadline is reported before payload problems
	_, err = f.svc.SubmitSportsRegistration(f.ctx, res, a.ID, SportsRegistrationInput{
		Participants: []ParticipantInput{{Name: "Kid", AgeCategory: "Senior", SportItemIDs: []int64{9999}}},
	})
	assert.ErrorIs(t, err, ErrDeadlinePassed)

	view, err = f.svc.GetSportsRegistration(f.ctx, res, a.ID)
	require.NoError(t, err)
	assert.True(t, view.DeadlinePassed)
	require.NotNil(t, view.Registration, "reads stay open after the deadline")
}

func TestNotificationsReadState(t *testing.T) {
	f := newFixture(t)
	admin := f.member(t, "admin@example.com", models.RoleAdmin, 0, "")
	res := f.member(t, "res@example.com", models.RoleResident, 1, "101")
	other := f.member(t, "other@example.com", models.RoleResident, 1, "102")

	for _, title := range []string{"One", "Two"} {
		_, err := f.svc.CreateAnnouncement(f.ctx, admin, AnnouncementInput{Title: title, Published: true})
		require.NoError(t, err)
	}
	list, err := f.svc.ListNotifications(f.ctx, res, true)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.ErrorIs(t, f.svc.SetNotificationRead(f.ctx, other, list[0].ID, true), ErrNotFound)
	require.NoError(t, f.svc.SetNotificationRead(f.ctx, res, list[0].ID, true))

	n, err := f.svc.MarkAllNotificationsRead(f.ctx, res)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unread, err := f.svc.ListNotifications(f.ctx, res, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
