package llm

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/jonathan/postcraft/internal/logging"
)

// Providers groups the backends a Service dispatches to. Any of them may be nil,
// in which case calls of that class fail with ErrServiceUnavailable.
type Providers struct {
	Text  TextProvider
	Image ImageProvider
	Video VideoProvider
}

// Service wraps the providers with per-class timeouts, a retry policy for transient
// failures and one concurrency and rate budget shared by every caller.
type Service struct {
	providers Providers
	cfg       ServiceConfig
	sem       *semaphore.Weighted
	limiter   *rate.Limiter
	logger    *logrus.Logger
	metrics   *Metrics
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for call outcomes.
func WithLogger(l *logrus.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a Service.
func NewService(providers Providers, cfg ServiceConfig, opts ...ServiceOption) *Service {
	cfg = normalizeServiceConfig(cfg)

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	s := &Service{
		providers: providers,
		cfg:       cfg,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		limiter:   rate.NewLimiter(limit, cfg.Burst),
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether a provider is configured for the class.
func (s *Service) Available(class CallClass) bool {
	switch class {
	case ClassText:
		return s.providers.Text != nil
	case ClassImage:
		return s.providers.Image != nil
	case ClassVideo:
		return s.providers.Video != nil
	default:
		return false
	}
}

// GenerateText runs a text call through the shared budget and retry policy.
func (s *Service) GenerateText(ctx context.Context, prompt string, opts TextOptions) (string, error) {
	if s.providers.Text == nil {
		return "", ErrServiceUnavailable
	}
	return execute(ctx, s, ClassText, opts.Stage, func(ctx context.Context) (string, error) {
		return s.providers.Text.GenerateText(ctx, prompt, opts)
	})
}

// GenerateImage runs an image call through the shared budget and retry policy.
func (s *Service) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (*Asset, error) {
	if s.providers.Image == nil {
		return nil, ErrServiceUnavailable
	}
	return execute(ctx, s, ClassImage, opts.Stage, func(ctx context.Context) (*Asset, error) {
		return s.providers.Image.GenerateImage(ctx, prompt, opts)
	})
}

// GenerateVideo runs a video call through the shared budget and retry policy.
func (s *Service) GenerateVideo(ctx context.Context, prompt string, opts VideoOptions) (*Asset, error) {
	if s.providers.Video == nil {
		return nil, ErrServiceUnavailable
	}
	return execute(ctx, s, ClassVideo, opts.Stage, func(ctx context.Context) (*Asset, error) {
		return s.providers.Video.GenerateVideo(ctx, prompt, opts)
	})
}

func (s *Service) timeout(class CallClass) time.Duration {
	switch class {
	case ClassImage:
		return s.cfg.ImageTimeout
	case ClassVideo:
		return s.cfg.VideoTimeout
	default:
		return s.cfg.TextTimeout
	}
}

// acquire waits for a rate token and a concurrency slot. The returned func releases the slot.
func (s *Service) acquire(ctx context.Context) (func(), error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	s.metrics.acquire()
	return func() {
		s.metrics.release()
		s.sem.Release(1)
	}, nil
}

func execute[T any](ctx context.Context, s *Service, class CallClass, stage string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	attempts := 0

	policy := retrypolicy.NewBuilder[T]().
		HandleIf(func(_ T, err error) bool { return IsRetryable(err) }).
		WithBackoff(s.cfg.BaseDelay, s.cfg.MaxDelay).
		WithJitterFactor(0.1).
		WithMaxRetries(s.cfg.MaxRetries).
		Build()

	result, err := failsafe.With[T](policy).WithContext(ctx).Get(func() (T, error) {
		var zero T
		release, err := s.acquire(ctx)
		if err != nil {
			return zero, classify(class, err)
		}
		defer release()

		attempts++
		s.metrics.observeAttempt(class)

		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout(class))
		defer cancel()

		out, err := fn(attemptCtx)
		if err != nil {
			return zero, classify(class, err)
		}
		return out, nil
	})

	elapsed := time.Since(start)
	fields := logging.Fields{
		"stage":       stage,
		"call_class":  class,
		"attempts":    attempts,
		"duration_ms": elapsed.Milliseconds(),
	}

	if err != nil {
		var zero T
		se := classify(class, err)
		se.Attempts = attempts
		s.metrics.observeCall(class, stage, string(se.Kind), elapsed.Seconds())
		s.logger.WithFields(fields).WithField("error_kind", se.Kind).WithError(se).Warn("generative call failed")
		return zero, se
	}

	s.metrics.observeCall(class, stage, "ok", elapsed.Seconds())
	s.logger.WithFields(fields).Debug("generative call succeeded")
	return result, nil
}
