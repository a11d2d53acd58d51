package delivery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Kerhoff/ResidentHub/internal/models"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// twilioMessage is the subset of the Messages resource we read back
type twilioMessage struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// TwilioWhatsApp sends passes as WhatsApp messages via the Twilio REST API
type TwilioWhatsApp struct {
	httpClient *resty.Client
	accountSID string
	from       string
}

// NewTwilioWhatsApp creates a client for the given account. from is the
// WhatsApp-enabled sender number in E.164 form.
func NewTwilioWhatsApp(baseURL, accountSID, authToken, from string) *TwilioWhatsApp {
	if baseURL == "" {
		baseURL = twilioBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		AddRetryCondition(retryUnsent).
		SetBasicAuth(accountSID, authToken).
		SetHeader("Accept", "application/json")

	return &TwilioWhatsApp{
		httpClient: client,
		accountSID: accountSID,
		from:       from,
	}
}

// retryUnsent allows a retry only when the connection was never made.
// Sending a message is not idempotent, so a timeout or a 5xx after the
// request went out must not be repeated.
func retryUnsent(_ *resty.Response, err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func whatsappAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

// SendPass sends the pass text and link to the holder's phone
func (c *TwilioWhatsApp) SendPass(ctx context.Context, pass *models.Pass, link string) error {
	var (
		result  twilioMessage
		failure twilioError
	)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"From": whatsappAddress(c.from),
			"To":   whatsappAddress(pass.Phone),
			"Body": PassText(pass, link),
		}).
		SetResult(&result).
		SetError(&failure).
		Post("/Accounts/" + c.accountSID + "/Messages.json")
	if err != nil {
		return fmt.Errorf("failed to call Twilio API: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("twilio rejected message: status %d code %d: %s", resp.StatusCode(), failure.Code, failure.Message)
	}
	if result.ErrorCode != nil {
		return fmt.Errorf("twilio message %s failed: code %d: %s", result.SID, *result.ErrorCode, result.ErrorMessage)
	}
	return nil
}
