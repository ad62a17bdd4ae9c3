// Package webhook exposes the provider endpoints and feeds every payload
// through a single submission worker.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baely/txnsync/internal/common/errors"
	commonHttp "github.com/baely/txnsync/internal/common/http"
	"github.com/baely/txnsync/internal/common/logger"
	"github.com/baely/txnsync/internal/provider"
	"github.com/baely/txnsync/internal/submission"
)

// Submitter pushes a decoded webhook to the ledger
type Submitter interface {
	Submit(ctx context.Context, wh provider.Webhook) (submission.Outcome, error)
}

// Config contains configuration for the Service
type Config struct {
	// QueueSize is the number of payloads buffered ahead of the worker
	QueueSize int
	// MaxBodyBytes caps the size of a webhook payload
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// DefaultConfig returns the default service configuration
func DefaultConfig() *Config {
	return &Config{
		QueueSize:    100,
		MaxBodyBytes: 1 << 20,
		Logger:       slog.Default(),
	}
}

type result struct {
	outcome submission.Outcome
	err     error
}

type job struct {
	ctx     context.Context
	webhook provider.Webhook
	reply   chan result
}

// Service handles webhook requests from every provider
type Service struct {
	submitter Submitter
	jobs      chan job
	done      chan struct{}
	router    chi.Router
	maxBody   int64
	logger    *slog.Logger
}

// New creates a Service with the default configuration
func New(submitter Submitter) *Service {
	return NewWithConfig(submitter, DefaultConfig())
}

// NewWithConfig creates a Service with a custom configuration and starts
// its worker.
func NewWithConfig(submitter Submitter, cfg *Config) *Service {
	defaults := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = defaults.Logger
	}

	s := &Service{
		submitter: submitter,
		jobs:      make(chan job, cfg.QueueSize),
		done:      make(chan struct{}),
		maxBody:   cfg.MaxBodyBytes,
		logger:    cfg.Logger,
	}

	r := commonHttp.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Post("/transactions", s.handle(decoder(provider.DecodeGeneric)))
	r.Post("/ofx", s.handle(decoder(provider.DecodeOFX)))
	r.Post("/starling", s.handle(decoder(provider.DecodeStarling)))
	r.Post("/monzo", s.handle(decoder(provider.DecodeMonzo)))
	r.Post("/up", s.handle(decoder(provider.DecodeUp)))
	r.Post("/csv", s.handle(decoder(provider.DecodeCSV)))
	s.router = r

	go s.process()

	return s
}

// Chi returns the router for this service
func (s *Service) Chi() chi.Router {
	return s.router
}

// Close stops the worker once queued payloads are drained. Requests
// arriving afterwards must not be served.
func (s *Service) Close() {
	close(s.jobs)
	<-s.done
}

type decodeFunc func(body []byte) (provider.Webhook, error)

// decoder adapts a typed provider decoder
func decoder[W provider.Webhook](decode func([]byte) (W, error)) decodeFunc {
	return func(body []byte) (provider.Webhook, error) {
		wh, err := decode(body)
		if err != nil {
			return nil, err
		}
		return wh, nil
	}
}

func (s *Service) handle(decode decodeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.WithContext(r.Context(), s.logger)

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Info("Rejected oversized webhook", "path", r.URL.Path, "limit", tooLarge.Limit)
			commonHttp.Error(w, errors.Wrap(err, "request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			commonHttp.Error(w, errors.Wrap(err, "failed to read request body"), http.StatusInternalServerError)
			return
		}

		wh, err := decode(body)
		if err != nil {
			log.Info("Rejected webhook", "path", r.URL.Path, "error", err)
			commonHttp.HandleError(w, err)
			return
		}

		res, err := s.enqueue(r.Context(), wh)
		if err != nil {
			commonHttp.HandleError(w, err)
			return
		}
		commonHttp.JSON(w, res.StatusCode(), res)
	}
}

// enqueue hands wh to the worker and waits for its outcome
func (s *Service) enqueue(ctx context.Context, wh provider.Webhook) (submission.Outcome, error) {
	j := job{ctx: ctx, webhook: wh, reply: make(chan result, 1)}

	select {
	case s.jobs <- j:
	case <-ctx.Done():
		return submission.Outcome{}, ctx.Err()
	}

	select {
	case res := <-j.reply:
		return res.outcome, res.err
	case <-ctx.Done():
		return submission.Outcome{}, ctx.Err()
	}
}

// process runs submissions one at a time
func (s *Service) process() {
	defer close(s.done)

	s.logger.Info("Starting webhook processor")
	for j := range s.jobs {
		if err := j.ctx.Err(); err != nil {
			s.logger.Warn("Dropping abandoned webhook", "provider", string(j.webhook.Provider()), "error", err)
			j.reply <- result{err: err}
			continue
		}

		outcome, err := s.submitter.Submit(j.ctx, j.webhook)
		j.reply <- result{outcome: outcome, err: err}
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	commonHttp.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
