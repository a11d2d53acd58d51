package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/metrics"
	"github.com/Kerhoff/ResidentHub/internal/models"
)

// DefaultTimeout bounds a single background delivery
const DefaultTimeout = 30 * time.Second

// Mailer sends a pass by email
type Mailer interface {
	SendPass(ctx context.Context, pass *models.Pass, link string, qr []byte) error
}

// Messenger sends a pass by chat message
type Messenger interface {
	SendPass(ctx context.Context, pass *models.Pass, link string) error
}

// Dispatcher delivers passes in the background. Callers return before
// delivery finishes; failures are logged and counted, never reported back.
type Dispatcher struct {
	mailer    Mailer
	messenger Messenger
	passURL   func(code string) string
	qrSize    int
	timeout   time.Duration
	logger    *logrus.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher. A nil mailer or messenger disables
// that channel. passURL maps a pass code to its public page.
func NewDispatcher(mailer Mailer, messenger Messenger, passURL func(string) string, qrSize int, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:    mailer,
		messenger: messenger,
		passURL:   passURL,
		qrSize:    qrSize,
		timeout:   DefaultTimeout,
		logger:    logger,
	}
}

// SetTimeout changes the per-delivery deadline
func (d *Dispatcher) SetTimeout(timeout time.Duration) {
	d.timeout = timeout
}

// DeliverEmail queues the pass for email delivery
func (d *Dispatcher) DeliverEmail(pass *models.Pass) {
	if d.mailer == nil {
		d.skip("email", pass)
		return
	}
	link := d.passURL(pass.Code)
	d.spawn("email", pass, func(ctx context.Context) error {
		qr, err := RenderQR(link, d.qrSize)
		if err != nil {
			d.logger.WithError(err).WithField("pass_code", pass.Code).Warn("Sending pass email without QR image")
			qr = nil
		}
		return d.mailer.SendPass(ctx, pass, link, qr)
	})
}

// DeliverWhatsApp queues the pass for WhatsApp delivery
func (d *Dispatcher) DeliverWhatsApp(pass *models.Pass) {
	if d.messenger == nil {
		d.skip("whatsapp", pass)
		return
	}
	link := d.passURL(pass.Code)
	d.spawn("whatsapp", pass, func(ctx context.Context) error {
		return d.messenger.SendPass(ctx, pass, link)
	})
}

// Wait blocks until queued deliveries finish
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) skip(channel string, pass *models.Pass) {
	metrics.PassDeliveriesTotal.WithLabelValues(channel, "skipped").Inc()
	d.logger.WithFields(logrus.Fields{
		"channel":   channel,
		"pass_code": pass.Code,
	}).Warn("Pass delivery channel is not configured")
}

func (d *Dispatcher) spawn(channel string, pass *models.Pass, send func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.PassDeliveriesTotal.WithLabelValues(channel, "failed").Inc()
				d.logger.Errorf("Panic in %s pass delivery: %v", channel, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		fields := logrus.Fields{"channel": channel, "pass_code": pass.Code}
		if err := send(ctx); err != nil {
			metrics.PassDeliveriesTotal.WithLabelValues(channel, "failed").Inc()
			d.logger.WithFields(fields).WithError(err).Error("Pass delivery failed")
			return
		}
		metrics.PassDeliveriesTotal.WithLabelValues(channel, "sent").Inc()
		d.logger.WithFields(fields).Info("Pass delivered")
	}()
}
