// Package notify is the best-effort outbound notification channel for
// submission decisions. Delivery is asynchronous with bounded retries;
// failures are logged and never reach the caller.
package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type message struct {
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload"`
	SentAt  time.Time              `json:"sent_at"`
}

// Dispatcher posts decision notifications to a configured webhook URL from a
// background worker. Enqueueing never blocks: if the queue is full the
// message is dropped with a log line.
type Dispatcher struct {
	url        string
	maxRetries int
	retryDelay time.Duration
	client     *http.Client
	queue      chan message
	done       chan struct{}
	log        *zap.Logger
}

// NewDispatcher creates and starts a dispatcher. An empty URL disables
// delivery; Notify becomes a no-op.
func NewDispatcher(url string, maxRetries int, retryDelay time.Duration, log *zap.Logger) *Dispatcher {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = 1 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	d := &Dispatcher{
		url:        url,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		client:     &http.Client{Timeout: 10 * time.Second},
		queue:      make(chan message, 128),
		done:       make(chan struct{}),
		log:        log,
	}
	go d.run()
	return d
}

// Notify enqueues a notification. Implements submission.Notifier.
func (d *Dispatcher) Notify(event string, payload map[string]interface{}) {
	if d.url == "" {
		return
	}
	msg := message{Event: event, Payload: payload, SentAt: time.Now()}
	select {
	case d.queue <- msg:
	default:
		d.log.Warn("notification queue full, dropping message", zap.String("event", event))
	}
}

// Close stops the background worker after draining queued messages.
func (d *Dispatcher) Close() {
	close(d.queue)
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg message) {
	body, err := json.Marshal(msg)
	if err != nil {
		d.log.Error("failed to marshal notification", zap.Error(err))
		return
	}

	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		resp, err := d.client.Post(d.url, "application/json", bytes.NewReader(body))
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return
			}
			d.log.Warn("notification delivery failed",
				zap.String("event", msg.Event),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt))
		} else {
			d.log.Warn("notification delivery failed",
				zap.String("event", msg.Event),
				zap.Error(err),
				zap.Int("attempt", attempt))
		}

		if attempt < d.maxRetries {
			time.Sleep(d.retryDelay)
		}
	}

	d.log.Error("notification dropped after retries", zap.String("event", msg.Event))
}
