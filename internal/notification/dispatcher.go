// Package notification delivers candidate emails off the request path.
package notification

import (
	"context"
	"sync"
	"time"

	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/common/logger"
	"codavert-workers/internal/common/metrics"
	"codavert-workers/internal/models"

	"github.com/google/uuid"
)

type Config struct {
	FromEmail   string
	FromName    string
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
	Branding    Branding
	// SMSKinds lists the events that also get a text message.
	SMSKinds map[models.EventKind]bool
}

// Dispatcher is a bounded queue drained by a fixed pool of workers.
// Enqueue never blocks; events that do not fit are dropped.
type Dispatcher struct {
	cfg    Config
	mailer Mailer
	sms    SMSSender
	logger logger.Logger

	queue chan models.Event
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(cfg Config, mailer Mailer, sms SMSSender, log logger.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	return &Dispatcher{
		cfg:    cfg,
		mailer: mailer,
		sms:    sms,
		logger: log.WithFields(map[string]interface{}{"component": "notification", "transport": mailer.Name()}),
		queue:  make(chan models.Event, cfg.QueueSize),
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	d.logger.Info("Notification dispatcher started", map[string]interface{}{
		"workers":   d.cfg.Workers,
		"queueSize": d.cfg.QueueSize,
	})
}

// Enqueue hands evt to the pool and reports whether it was accepted.
func (d *Dispatcher) Enqueue(evt models.Event) bool {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(evt, "closed")
		return false
	}

	select {
	case d.queue <- evt:
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		return true
	default:
		d.drop(evt, "queue_full")
		return false
	}
}

// Shutdown stops intake and waits for queued events until ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Notification dispatcher drained", nil)
		return nil
	case <-ctx.Done():
		d.logger.Warn("Notification dispatcher shutdown timed out", map[string]interface{}{
			"pending": len(d.queue),
		})
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for evt := range d.queue {
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		d.deliver(evt)
	}
}

func (d *Dispatcher) deliver(evt models.Event) {
	log := d.logger.WithFields(map[string]interface{}{
		"eventId":       evt.ID,
		"event":         evt.Kind,
		"applicationId": evt.Applicant.ApplicationID,
	})

	rendered, err := Render(evt, d.cfg.Branding)
	if err != nil {
		log.Error("Failed to render notification", map[string]interface{}{"error": err})
		d.drop(evt, "render")
		return
	}

	if d.sms != nil && d.cfg.SMSKinds[evt.Kind] && evt.Applicant.Phone != "" && rendered.SMS != "" {
		d.sendSMS(log, evt, rendered.SMS)
	}

	msg := Message{
		To:         evt.Applicant.Email,
		From:       d.cfg.FromEmail,
		FromName:   d.cfg.FromName,
		Subject:    rendered.Subject,
		HTML:       rendered.HTML,
		Text:       rendered.Text,
		Attachment: evt.Attachment,
	}

	firstErr := d.send(msg)
	if firstErr == nil {
		metrics.NotificationsSent.WithLabelValues(string(evt.Kind), "email", "sent").Inc()
		log.Info("Notification sent", nil)
		return
	}
	metrics.NotificationsSent.WithLabelValues(string(evt.Kind), "email", "failed").Inc()
	log.Warn("Notification send failed, trying plain text", map[string]interface{}{"error": firstErr})

	plain := Message{
		To:       msg.To,
		From:     msg.From,
		FromName: msg.FromName,
		Subject:  msg.Subject,
		Text:     rendered.Text,
	}
	if err := d.send(plain); err != nil {
		metrics.NotificationsSent.WithLabelValues(string(evt.Kind), "email_fallback", "failed").Inc()
		log.Error("Notification dropped after fallback", map[string]interface{}{
			"error": errors.NewNotificationSendFailedError(string(evt.Kind), err),
		})
		d.drop(evt, "delivery_failed")
		return
	}
	metrics.NotificationsSent.WithLabelValues(string(evt.Kind), "email_fallback", "sent").Inc()
	log.Info("Notification sent as plain text", nil)
}

func (d *Dispatcher) send(msg Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()
	return d.mailer.Send(ctx, msg)
}

func (d *Dispatcher) sendSMS(log logger.Logger, evt models.Event, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()
	if err := d.sms.SendSMS(ctx, evt.Applicant.Phone, text); err != nil {
		metrics.NotificationsSent.WithLabelValues(string(evt.Kind), "sms", "failed").Inc()
		log.Warn("SMS send failed", map[string]interface{}{"error": err})
		return
	}
	metrics.NotificationsSent.WithLabelValues(string(evt.Kind), "sms", "sent").Inc()
}

func (d *Dispatcher) drop(evt models.Event, reason string) {
	metrics.NotificationsDropped.WithLabelValues(string(evt.Kind), reason).Inc()
	d.logger.Warn("Notification dropped", map[string]interface{}{
		"eventId":       evt.ID,
		"event":         evt.Kind,
		"applicationId": evt.Applicant.ApplicationID,
		"reason":        reason,
	})
}
