package handlers

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ResidentHub/internal/metrics"
	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/service"
)

type chatLog struct {
	texts []string
}

func (c *chatLog) Send(m tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := m.(tgbotapi.MessageConfig)
	c.texts = append(c.texts, msg.Text)
	return tgbotapi.Message{}, nil
}

type stubScanner struct {
	passes   map[string]*models.Pass
	attended map[string]time.Time
	now      time.Time
}

func (s *stubScanner) LookupPass(_ context.Context, code string) (*models.Pass, error) {
	p, ok := s.passes[code]
	if !ok {
		return nil, service.ErrNotFound
	}
	return p, nil
}

func (s *stubScanner) MarkAttendance(_ context.Context, code string) (*models.AttendanceResult, error) {
	if _, ok := s.passes[code]; !ok {
		return nil, service.ErrNotFound
	}
	if at, ok := s.attended[code]; ok {
		return &models.AttendanceResult{Code: code, AlreadyAttended: true, AttendedAt: at}, nil
	}
	s.attended[code] = s.now
	return &models.AttendanceResult{Code: code, AttendedAt: s.now}, nil
}

func newStub() *stubScanner {
	return &stubScanner{
		now:      time.Date(2026, 11, 1, 19, 30, 0, 0, time.UTC),
		attended: map[string]time.Time{},
		passes: map[string]*models.Pass{
			"r-3": {
				Code:        "r-3",
				Kind:        models.PassKindResident,
				HolderName:  "Asha <Rao>",
				Flat:        "B2-1104",
				EventTitle:  "Diwali dinner",
				EventDate:   time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC),
				Venue:       "Clubhouse",
				Items:       []models.RsvpItem{{MenuItemID: 1, Name: "Veg Thali", Plates: 2, PricePerPlate: 200}},
				TotalPlates: 2,
				TotalAmount: 400,
			},
		},
	}
}

func msg(text string) *tgbotapi.Message {
	return &tgbotapi.Message{From: &tgbotapi.User{ID: 42}, Chat: &tgbotapi.Chat{ID: 9}, Text: text}
}

func TestPassHandler(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h := NewPassHandler(newStub(), logger)
	chat := &chatLog{}

	require.NoError(t, h.Handle(context.Background(), chat, msg("/pass"), nil))
	require.NoError(t, h.Handle(context.Background(), chat, msg("/pass x"), []string{"x-1"}))
	require.NoError(t, h.Handle(context.Background(), chat, msg("/pass r-3"), []string{"r-3"}))

	require.Len(t, chat.texts, 3)
	assert.Contains(t, chat.texts[0], "Usage")
	assert.Contains(t, chat.texts[1], "No pass found")
	assert.Contains(t, chat.texts[2], "Asha &lt;Rao&gt;")
	assert.Contains(t, chat.texts[2], "Veg Thali × 2")
	assert.Contains(t, chat.texts[2], "unpaid")
}

func TestAttendHandler(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := NewAttendHandler(newStub(), logger)
	chat := &chatLog{}

	admitted := testutil.ToFloat64(metrics.PassScansTotal.WithLabelValues("telegram", "admitted"))
	repeat := testutil.ToFloat64(metrics.PassScansTotal.WithLabelValues("telegram", "repeat"))
	unknown := testutil.ToFloat64(metrics.PassScansTotal.WithLabelValues("telegram", "unknown"))

	require.NoError(t, h.Handle(context.Background(), chat, msg("/attend r-3"), []string{"r-3"}))
	require.NoError(t, h.Handle(context.Background(), chat, msg("/attend r-3"), []string{"r-3"}))
	require.NoError(t, h.Handle(context.Background(), chat, msg("/attend g-99"), []string{"g-99"}))

	require.Len(t, chat.texts, 3)
	assert.Contains(t, chat.texts[0], "✅ Admitted")
	assert.Contains(t, chat.texts[1], "Already admitted at 19:30")
	assert.Contains(t, chat.texts[2], "Unknown pass")

	assert.Equal(t, admitted+1, testutil.ToFloat64(metrics.PassScansTotal.WithLabelValues("telegram", "admitted")))
	assert.Equal(t, repeat+1, testutil.ToFloat64(metrics.PassScansTotal.WithLabelValues("telegram", "repeat")))
	assert.Equal(t, unknown+1, testutil.ToFloat64(metrics.PassScansTotal.WithLabelValues("telegram", "unknown")))
	assert.Equal(t, "Pass scanned from Telegram", hook.LastEntry().Message)
}
