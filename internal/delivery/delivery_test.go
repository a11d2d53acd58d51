package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ResidentHub/internal/metrics"
	"github.com/Kerhoff/ResidentHub/internal/models"
)

func testPass() *models.Pass {
	return &models.Pass{
		Code:        "r-12",
		Kind:        models.PassKindResident,
		HolderName:  "Asha Rao",
		Email:       "asha@example.com",
		Phone:       "+15550100",
		Flat:        "B2-104",
		EventTitle:  "Diwali Dinner",
		EventDate:   time.Date(2026, 11, 8, 19, 30, 0, 0, time.UTC),
		Venue:       "Clubhouse",
		Items:       []models.RsvpItem{{MenuItemID: 1, Name: "Veg thali", Plates: 2, PricePerPlate: 250}},
		TotalPlates: 2,
		TotalAmount: 500,
	}
}

func passURL(code string) string { return "https://portal.example.com/pass/" + code }

func TestRenderQR_PNG(t *testing.T) {
	png, err := RenderQR(passURL("g-4"), 128)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))
}

func TestPassText(t *testing.T) {
	text := PassText(testPass(), passURL("r-12"))

	assert.Contains(t, text, "Hi Asha Rao")
	assert.Contains(t, text, "Diwali Dinner")
	assert.Contains(t, text, "Veg thali x 2")
	assert.Contains(t, text, "Amount: 500 (unpaid)")
	assert.Contains(t, text, "https://portal.example.com/pass/r-12")
}

func TestPassHTML_Escapes(t *testing.T) {
	p := testPass()
	p.HolderName = "<script>"

	html := PassHTML(p, passURL(p.Code), "pass-qr")

	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, `src="cid:pass-qr"`)
}

func TestSendGridMailer_SendPass(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGridMailer("SG.key", "ResidentHub", "noreply@example.com").WithHost(srv.URL)
	err := m.SendPass(context.Background(), testPass(), passURL("r-12"), []byte("png"))

	require.NoError(t, err)
	attachments := body["attachments"].([]any)
	require.Len(t, attachments, 1)
	a := attachments[0].(map[string]any)
	assert.Equal(t, "inline", a["disposition"])
	assert.Equal(t, "r-12.png", a["filename"])
	assert.Equal(t, "pass-qr", a["content_id"])
}

func TestSendGridMailer_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	m := NewSendGridMailer("nope", "ResidentHub", "noreply@example.com").WithHost(srv.URL)
	err := m.SendPass(context.Background(), testPass(), passURL("r-12"), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestTwilioWhatsApp_SendPass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "whatsapp:+15550000", r.PostForm.Get("From"))
		assert.Equal(t, "whatsapp:+15550100", r.PostForm.Get("To"))
		assert.Contains(t, r.PostForm.Get("Body"), "r-12")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer srv.Close()

	c := NewTwilioWhatsApp(srv.URL, "AC123", "secret", "+15550000")
	assert.NoError(t, c.SendPass(context.Background(), testPass(), passURL("r-12")))
}

func TestTwilioWhatsApp_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
	}))
	defer srv.Close()

	c := NewTwilioWhatsApp(srv.URL, "AC123", "secret", "whatsapp:+15550000")
	err := c.SendPass(context.Background(), testPass(), passURL("r-12"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "21211")
}

func TestTwilioWhatsApp_SentRequestsAreNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			// first call outlives the client timeout
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewTwilioWhatsApp(srv.URL, "AC123", "secret", "+15550000")
	c.httpClient.SetTimeout(50 * time.Millisecond).SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(2 * time.Millisecond)

	require.Error(t, c.SendPass(context.Background(), testPass(), passURL("r-12")))
	assert.Equal(t, int32(1), hits.Load())

	c.httpClient.SetTimeout(time.Second)
	err := c.SendPass(context.Background(), testPass(), passURL("r-12"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Equal(t, int32(2), hits.Load())
}

func TestTwilioWhatsApp_RetriesWhenConnectionFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewTwilioWhatsApp(url, "AC123", "secret", "+15550000")
	attempts := 0
	c.httpClient.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(2 * time.Millisecond).
		AddRetryHook(func(*resty.Response, error) { attempts++ })

	require.Error(t, c.SendPass(context.Background(), testPass(), passURL("r-12")))
	assert.Equal(t, 4, attempts)
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []string
	qr    []byte
	err   error
	block chan struct{}
}

func (f *fakeMailer) SendPass(ctx context.Context, pass *models.Pass, link string, qr []byte) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, link)
	f.qr = qr
	return f.err
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeMessenger) SendPass(_ context.Context, pass *models.Pass, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, pass.Phone)
	return f.err
}

func TestDispatcher_DeliversInBackground(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	mailer := &fakeMailer{block: make(chan struct{})}
	messenger := &fakeMessenger{}
	d := NewDispatcher(mailer, messenger, passURL, 64, logger)

	sentBefore := testutil.ToFloat64(metrics.PassDeliveriesTotal.WithLabelValues("email", "sent"))

	d.DeliverEmail(testPass())
	d.DeliverWhatsApp(testPass())

	mailer.mu.Lock()
	assert.Empty(t, mailer.sent, "email must not be sent before the caller returns")
	mailer.mu.Unlock()

	close(mailer.block)
	d.Wait()

	assert.Equal(t, []string{passURL("r-12")}, mailer.sent)
	assert.NotEmpty(t, mailer.qr)
	assert.Equal(t, []string{"+15550100"}, messenger.sent)
	assert.Equal(t, sentBefore+1, testutil.ToFloat64(metrics.PassDeliveriesTotal.WithLabelValues("email", "sent")))
}

func TestDispatcher_FailureIsLogged(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	d := NewDispatcher(nil, &fakeMessenger{err: errors.New("twilio down")}, passURL, 64, logger)

	d.DeliverWhatsApp(testPass())
	d.Wait()

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "Pass delivery failed", entry.Message)
	assert.Equal(t, "r-12", entry.Data["pass_code"])
}

func TestDispatcher_TimeoutAndSkip(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	mailer := &fakeMailer{block: make(chan struct{})}
	d := NewDispatcher(mailer, nil, passURL, 64, logger)
	d.SetTimeout(20 * time.Millisecond)

	d.DeliverEmail(testPass())
	d.Wait()
	assert.Equal(t, "Pass delivery failed", hook.LastEntry().Message)
	assert.ErrorIs(t, hook.LastEntry().Data[logrus.ErrorKey].(error), context.DeadlineExceeded)

	d.DeliverWhatsApp(testPass())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "whatsapp", hook.LastEntry().Data["channel"])
}
