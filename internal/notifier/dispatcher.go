// Package notifier delivers marketplace events to external subscribers:
// signed webhooks fed by a worker pool, and a redis channel.
package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/frahmantamala/chatmate/internal/core/events"
)

const (
	HeaderEvent     = "X-Chatmate-Event"
	HeaderEventID   = "X-Chatmate-Event-ID"
	HeaderSignature = "X-Chatmate-Signature"
)

var ErrQueueFull = errors.New("notification queue full")

type Config struct {
	URLs           []string
	SigningSecret  string
	Timeout        time.Duration
	MaxWorkers     int
	JobQueueSize   int
	WorkerPoolSize int
	MaxAttempts    int
	RetryBackoff   time.Duration
}

// Dispatcher posts event envelopes to every configured URL.
type Dispatcher struct {
	urls        []string
	secret      []byte
	maxAttempts int
	backoff     time.Duration
	httpClient  *http.Client
	logger      *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	onDelivery func(eventType string, ok bool)
}

func NewDispatcher(config Config, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	workerPoolSize := config.WorkerPoolSize
	if workerPoolSize <= 0 {
		workerPoolSize = maxWorkers
	}

	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	backoff := config.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	d := &Dispatcher{
		urls:        config.URLs,
		secret:      []byte(config.SigningSecret),
		maxAttempts: maxAttempts,
		backoff:     backoff,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, jobQueueSize),
		workerPool: make(chan chan Job, workerPoolSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	d.startWorkerPool()

	return d
}

// OnDelivery installs a hook called after each job settles.
func (d *Dispatcher) OnDelivery(fn func(eventType string, ok bool)) {
	d.onDelivery = fn
}

func (d *Dispatcher) startWorkerPool() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.deliver)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("webhook worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue),
			"endpoints", len(d.urls))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					d.logger.Info("dispatcher shutting down")
					return
				}
			case <-d.ctx.Done():
				d.logger.Info("dispatcher shutting down")
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("dispatcher shutting down")
			return
		}
	}
}

// Register subscribes the dispatcher to every marketplace event.
func (d *Dispatcher) Register(bus *events.EventBus) {
	bus.SubscribeAll(d.HandleEvent)
}

func (d *Dispatcher) HandleEvent(ctx context.Context, event events.Event) error {
	body, err := events.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return d.enqueue(event.EventID(), event.EventType(), body)
}

// HandlePayload enqueues an envelope that was already serialized, as
// received from the redis channel.
func (d *Dispatcher) HandlePayload(ctx context.Context, payload []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	return d.enqueue(env.ID, env.Type, payload)
}

func (d *Dispatcher) enqueue(eventID, eventType string, body []byte) error {
	for _, url := range d.urls {
		job := Job{URL: url, EventID: eventID, EventType: eventType, Body: body}
		select {
		case d.jobQueue <- job:
			d.logger.Debug("webhook job queued",
				"event_id", eventID,
				"url", url,
				"queue_length", len(d.jobQueue))
		default:
			d.logger.Warn("webhook queue full, dropping notification",
				"event_id", eventID,
				"url", url,
				"queue_capacity", cap(d.jobQueue))
			return ErrQueueFull
		}
	}
	return nil
}

func (d *Dispatcher) Shutdown() {
	d.logger.Info("shutting down webhook dispatcher")
	d.cancel()
	d.wg.Wait()
	d.logger.Info("webhook dispatcher shutdown complete")
}

// Sign returns the hex HMAC-SHA256 of body under secret, prefixed "sha256=".
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (d *Dispatcher) deliver(job Job) {
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err = d.post(job); err == nil {
			d.logger.Info("webhook delivered",
				"event_id", job.EventID,
				"event_type", job.EventType,
				"url", job.URL,
				"attempt", attempt)
			d.settled(job.EventType, true)
			return
		}

		d.logger.Warn("webhook delivery failed",
			"event_id", job.EventID,
			"url", job.URL,
			"attempt", attempt,
			"error", err)

		if attempt == d.maxAttempts {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * d.backoff):
		case <-d.ctx.Done():
			d.logger.Info("webhook job cancelled", "event_id", job.EventID)
			return
		}
	}

	d.logger.Error("webhook delivery abandoned",
		"event_id", job.EventID,
		"url", job.URL,
		"attempts", d.maxAttempts,
		"error", err)
	d.settled(job.EventType, false)
}

func (d *Dispatcher) settled(eventType string, ok bool) {
	if d.onDelivery != nil {
		d.onDelivery(eventType, ok)
	}
}

func (d *Dispatcher) post(job Job) error {
	req, err := http.NewRequestWithContext(d.ctx, http.MethodPost, job.URL, bytes.NewReader(job.Body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, job.EventType)
	req.Header.Set(HeaderEventID, job.EventID)
	if len(d.secret) > 0 {
		req.Header.Set(HeaderSignature, Sign(d.secret, job.Body))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
