package service

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ResidentHub/internal/models"
)

func TestPriceOrder(t *testing.T) {
	cfg := &models.EventConfig{
		CustomFields: models.CustomFields{{Key: "diet", Label: "Dietary needs", Required: true}},
		MenuItems:    []models.MenuItem{{ID: 1, Name: "Veg Thali", PricePerPlate: 200}, {ID: 2, Name: "Sweets", PricePerPlate: 50}},
	}
	answers := map[string]string{"diet": " none ", "ignored": "x"}

	tests := []struct {
		name    string
		items   []OrderItemInput
		answers map[string]string
		wantErr string
	}{
		{name: "unknown item", items: []OrderItemInput{{MenuItemID: 9, Plates: 1}}, answers: answers, wantErr: "menu item 9 does not belong to this event"},
		{name: "listed twice", items: []OrderItemInput{{MenuItemID: 1, Plates: 1}, {MenuItemID: 1, Plates: 2}}, answers: answers, wantErr: `menu item "Veg Thali" is listed twice`},
		{name: "too many plates", items: []OrderItemInput{{MenuItemID: 1, Plates: 51}}, answers: answers, wantErr: "between 0 and 50"},
		{name: "no plates", items: []OrderItemInput{{MenuItemID: 1, Plates: 0}}, answers: answers, wantErr: "order at least one plate"},
		{name: "missing required field", items: []OrderItemInput{{MenuItemID: 1, Plates: 1}}, answers: map[string]string{}, wantErr: "Dietary needs is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := priceOrder(cfg, tt.items, tt.answers)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Message, tt.wantErr)
		})
	}

	items, responses, err := priceOrder(cfg, []OrderItemInput{{MenuItemID: 1, Plates: 2}, {MenuItemID: 2, Plates: 0}}, answers)
	require.NoError(t, err)
	require.Len(t, items, 1, "zero-plate lines are dropped")
	assert.Equal(t, int64(400), items[0].Amount())
	assert.Equal(t, models.Responses{"diet": "none"}, responses)
}

func TestSubmitRsvpReplacesOrder(t *testing.T) {
	f := newFixture(t)
	admin := f.member(t, "admin@example.com", models.RoleAdmin, 0, "")
	res := f.member(t, "res@example.com", models.RoleResident, 1, "101")
	a, cfg := f.event(t, admin, false)
	thali, sweets := cfg.MenuItems[0].ID, cfg.MenuItems[1].ID

	rsvp, err := f.svc.SubmitRsvp(f.ctx, res, a.ID, RsvpInput{
		Items:     []OrderItemInput{{MenuItemID: thali, Plates: 2}, {MenuItemID: sweets, Plates: 3}},
		Responses: map[string]string{"tower": "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, rsvp.Plates())
	assert.Equal(t, int64(550), rsvp.Amount())

	replaced, err := f.svc.SubmitRsvp(f.ctx, res, a.ID, RsvpInput{
		Items:     []OrderItemInput{{MenuItemID: sweets, Plates: 1}},
		Responses: map[string]string{"tower": "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, rsvp.ID, replaced.ID, "one RSVP per resident and event")

	view, err := f.svc.GetRsvp(f.ctx, res, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "r-"+strconv.FormatInt(rsvp.ID, 10), view.PassCode)
	assert.Equal(t, 1, view.TotalPlates)
	assert.Equal(t, int64(50), view.TotalAmount)
	assert.False(t, view.DeadlinePassed)
}

func TestRsvpDeadlineGate(t *testing.T) {
	f := newFixture(t)
	admin := f.member(t, "admin@example.com", models.RoleAdmin, 0, "")
	res := f.member(t, "res@example.com", models.RoleResident, 1, "101")
	a, cfg := f.event(t, admin, true)
	order := RsvpInput{Items: []OrderItemInput{{MenuItemID: cfg.MenuItems[0].ID, Plates: 1}}, Responses: map[string]string{"tower": "B"}}

	rsvp, err := f.svc.SubmitRsvp(f.ctx, res, a.ID, order)
	require.NoError(t, err)

	f.now = cfg.Deadline.Add(time.Second)
	_, err = f.svc.SubmitRsvp(f.ctx, res, a.ID, order)
	assert.ErrorIs(t, err, ErrDeadlinePassed)
	assert.ErrorIs(t, f.svc.CancelRsvp(f.ctx, res, a.ID), ErrDeadlinePassed)
	_, err = f.svc.SubmitGuestRsvp(f.ctx, a.ID, GuestRsvpInput{Name: "G", Email: "g@example.com", Items: order.Items, Responses: order.Responses})
	assert.ErrorIs(t, err, ErrDeadlinePassed)

	// payment is not deadline gated
	require.NoError(t, f.svc.SetRsvpPaid(f.ctx, admin, rsvp.ID, true))
	assert.ErrorIs(t, f.svc.SetRsvpPaid(f.ctx, res, rsvp.ID, true), ErrForbidden)
	assert.ErrorIs(t, f.svc.SetRsvpPaid(f.ctx, admin, 999, true), ErrNotFound)

	view, err := f.svc.GetRsvp(f.ctx, res, a.ID)
	require.NoError(t, err)
	assert.True(t, view.DeadlinePassed)
	assert.True(t, view.Rsvp.Paid)
}

func TestCancelRsvp(t *testing.T) {
	f := newFixture(t)
	admin := f.member(t, "admin@example.com", models.RoleAdmin, 0, "")
	res := f.member(t, "res@example.com", models.RoleResident, 1, "101")
	a, cfg := f.event(t, admin, false)

	assert.ErrorIs(t, f.svc.CancelRsvp(f.ctx, res, a.ID), ErrNotFound)

	_, err := f.svc.SubmitRsvp(f.ctx, res, a.ID, RsvpInput{
		Items:     []OrderItemInput{{MenuItemID: cfg.MenuItems[0].ID, Plates: 1}},
		Responses: map[string]string{"tower": "B"},
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.CancelRsvp(f.ctx, res, a.ID))

	view, err := f.svc.GetRsvp(f.ctx, res, a.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Rsvp)
	assert.Empty(t, view.PassCode)
}

func TestSubmitGuestRsvp(t *testing.T) {
	f := newFixture(t)
	admin := f.member(t, "admin@example.com", models.RoleAdmin, 0, "")
	closed, closedCfg := f.event(t, admin, false)
	open, cfg := f.event(t, admin, true)

	in := GuestRsvpInput{
		Name:      "Meera",
		Email:     "Meera@Example.com",
		Items:     []OrderItemInput{{MenuItemID: cfg.MenuItems[1].ID, Plates: 2}},
		Responses: map[string]string{"tower": "C"},
	}
	_, err := f.svc.SubmitGuestRsvp(f.ctx, closed.ID, GuestRsvpInput{
		Name: "x", Email: "x@example.com",
		Items: []OrderItemInput{{MenuItemID: closedCfg.MenuItems[0].ID, Plates: 1}},
	})
	assert.ErrorIs(t, err, ErrForbidden, "guests are only accepted when the event allows them")

	g, err := f.svc.SubmitGuestRsvp(f.ctx, open.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "meera@example.com", g.Email)
	assert.Equal(t, int64(100), g.Amount())

	require.Len(t, f.delivery.emails, 1)
	assert.Equal(t, g.PassCode(), f.delivery.emails[0].Code)
	assert.Equal(t, "Diwali dinner", f.delivery.emails[0].EventTitle)

	_, err = f.svc.SubmitGuestRsvp(f.ctx, open.ID, in)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "meera@example.com already has an RSVP for this event", Describe(err))
}

func TestEventRsvpsSummary(t *testing.T) {
	f := newFixture(t)
	admin := f.member(t, "admin@example.com", models.RoleAdmin, 0, "")
	r1 := f.member(t, "r1@example.com", models.RoleResident, 2, "201")
	r2 := f.member(t, "r2@example.com", models.RoleResident, 1, "105")
	a, cfg := f.event(t, admin, true)
	thali, sweets := cfg.MenuItems[0].ID, cfg.MenuItems[1].ID
	answers := map[string]string{"tower": "A"}

	first, err := f.svc.SubmitRsvp(f.ctx, r1, a.ID, RsvpInput{Items: []OrderItemInput{{MenuItemID: thali, Plates: 2}}, Responses: answers})
	require.NoError(t, err)
	_, err = f.svc.SubmitRsvp(f.ctx, r2, a.ID, RsvpInput{Items: []OrderItemInput{{MenuItemID: thali, Plates: 1}, {MenuItemID: sweets, Plates: 2}}, Responses: answers})
	require.NoError(t, err)
	g, err := f.svc.SubmitGuestRsvp(f.ctx, a.ID, GuestRsvpInput{Name: "G", Email: "g@example.com", Items: []OrderItemInput{{MenuItemID: sweets, Plates: 1}}, Responses: answers})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetRsvpPaid(f.ctx, admin, first.ID, true))
	require.NoError(t, f.svc.SetGuestRsvpPaid(f.ctx, admin, g.ID, true))
	_, err = f.svc.MarkAttendance(f.ctx, g.PassCode())
	require.NoError(t, err)

	_, err = f.svc.EventRsvps(f.ctx, r1, a.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	report, err := f.svc.EventRsvps(f.ctx, admin, a.ID)
	require.NoError(t, err)
	require.Len(t, report.Rsvps, 2)
	assert.Equal(t, r2.ResidentID, report.Rsvps[0].ResidentID, "ordered by block and flat")

	sum := report.Summary
	assert.Equal(t, 3, sum.TotalRsvps)
	assert.Equal(t, 2, sum.ResidentRsvps)
	assert.Equal(t, 1, sum.GuestRsvps)
	assert.Equal(t, 6, sum.TotalPlates)
	assert.Equal(t, int64(750), sum.TotalAmount)
	assert.Equal(t, 2, sum.PaidCount)
	assert.Equal(t, int64(450), sum.PaidAmount)
	assert.Equal(t, 1, sum.UnpaidCount)
	assert.Equal(t, int64(300), sum.UnpaidAmount)
	assert.Equal(t, 1, sum.AttendedCount)
	require.Len(t, sum.Items, 2)
	assert.Equal(t, ItemSummary{MenuItemID: thali, Name: "Veg Thali", PricePerPlate: 200, Plates: 3, Amount: 600}, sum.Items[0])
	assert.Equal(t, ItemSummary{MenuItemID: sweets, Name: "Sweets", PricePerPlate: 50, Plates: 3, Amount: 150}, sum.Items[1])
}
