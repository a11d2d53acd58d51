package delivery

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/Kerhoff/ResidentHub/internal/models"
)

const (
	sendGridEndpoint = "/v3/mail/send"
	qrContentID      = "pass-qr"
)

// SendGridMailer emails passes through the SendGrid v3 mail API
type SendGridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendGridMailer creates a mailer sending as fromName <fromEmail>
func NewSendGridMailer(key, fromName, fromEmail string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(key),
		from:   sgmail.NewEmail(fromName, fromEmail),
	}
}

// WithHost points the mailer at another API host, e.g. a sandbox
func (m *SendGridMailer) WithHost(host string) *SendGridMailer {
	m.client.BaseURL = host + sendGridEndpoint
	return m
}

func (m *SendGridMailer) prepare(pass *models.Pass, link string, qr []byte) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = PassSubject(pass)
	p.AddTos(sgmail.NewEmail(pass.HolderName, pass.Email))

	msg := sgmail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.AddPersonalizations(p)

	cid := ""
	if len(qr) > 0 {
		cid = qrContentID
	}
	msg.AddContent(
		sgmail.NewContent("text/plain", PassText(pass, link)),
		sgmail.NewContent("text/html", PassHTML(pass, link, cid)),
	)

	if len(qr) > 0 {
		a := sgmail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(qr))
		a.SetType("image/png")
		a.SetFilename(pass.Code + ".png")
		a.SetDisposition("inline")
		a.SetContentID(qrContentID)
		msg.AddAttachment(a)
	}
	return msg
}

// SendPass emails the pass with its QR code inlined
func (m *SendGridMailer) SendPass(ctx context.Context, pass *models.Pass, link string, qr []byte) error {
	res, err := m.client.SendWithContext(ctx, m.prepare(pass, link, qr))
	if err != nil {
		return fmt.Errorf("failed to send pass email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected pass email: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
