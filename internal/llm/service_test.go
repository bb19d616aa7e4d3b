package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedText struct {
	mu     sync.Mutex
	errs   []error
	calls  int
	output string
}

func (p *scriptedText) GenerateText(_ context.Context, _ string, _ TextOptions) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return "", err
	}
	return p.output, nil
}

type slowImage struct {
	active  int32
	maxSeen int32
	delay   time.Duration
}

func (p *slowImage) GenerateImage(ctx context.Context, _ string, _ ImageOptions) (*Asset, error) {
	n := atomic.AddInt32(&p.active, 1)
	defer atomic.AddInt32(&p.active, -1)
	for {
		seen := atomic.LoadInt32(&p.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&p.maxSeen, seen, n) {
			break
		}
	}
	select {
	case <-time.After(p.delay):
		return &Asset{Data: []byte{1}, MIMEType: "image/png"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type hangingVideo struct{}

func (hangingVideo) GenerateVideo(ctx context.Context, _ string, _ VideoOptions) (*Asset, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func testServiceConfig() ServiceConfig {
	return ServiceConfig{
		TextTimeout:   time.Second,
		ImageTimeout:  time.Second,
		VideoTimeout:  50 * time.Millisecond,
		MaxRetries:    2,
		BaseDelay:     time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		MaxConcurrent: 4,
		Burst:         10,
	}
}

func TestService_RetriesTransientFailures(t *testing.T) {
	provider := &scriptedText{
		errs:   []error{statusError(ClassText, 503, "busy"), statusError(ClassText, 429, "slow down")},
		output: "hello",
	}
	svc := NewService(Providers{Text: provider}, testServiceConfig())

	out, err := svc.GenerateText(context.Background(), "p", TextOptions{Stage: "text"})

	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, 3, provider.calls)
}

func TestService_DoesNotRetryInvalidInput(t *testing.T) {
	provider := &scriptedText{errs: []error{statusError(ClassText, 400, "bad prompt")}}
	svc := NewService(Providers{Text: provider}, testServiceConfig())

	_, err := svc.GenerateText(context.Background(), "p", TextOptions{})

	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindInvalidInput, se.Kind)
	assert.Equal(t, 1, se.Attempts)
	assert.Equal(t, 1, provider.calls)
}

func TestService_GivesUpAfterMaxRetries(t *testing.T) {
	boom := statusError(ClassText, 500, "down")
	provider := &scriptedText{errs: []error{boom, boom, boom, boom}}
	svc := NewService(Providers{Text: provider}, testServiceConfig())

	_, err := svc.GenerateText(context.Background(), "p", TextOptions{})

	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindUnavailable, se.Kind)
	assert.Equal(t, 3, se.Attempts)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestService_MissingProviderIsUnavailable(t *testing.T) {
	svc := NewService(Providers{}, testServiceConfig())

	_, err := svc.GenerateText(context.Background(), "p", TextOptions{})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	_, err = svc.GenerateImage(context.Background(), "p", ImageOptions{})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	_, err = svc.GenerateVideo(context.Background(), "p", VideoOptions{})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.False(t, svc.Available(ClassText))
}

func TestService_PerAttemptTimeout(t *testing.T) {
	cfg := testServiceConfig()
	cfg.MaxRetries = 1
	svc := NewService(Providers{Video: hangingVideo{}}, cfg)

	start := time.Now()
	_, err := svc.GenerateVideo(context.Background(), "p", VideoOptions{})

	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindTimeout, se.Kind)
	assert.Equal(t, 2, se.Attempts)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestService_CallerCancellation(t *testing.T) {
	svc := NewService(Providers{Video: hangingVideo{}}, testServiceConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GenerateVideo(ctx, "p", VideoOptions{})

	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestService_BoundsConcurrency(t *testing.T) {
	cfg := testServiceConfig()
	cfg.MaxConcurrent = 2
	provider := &slowImage{delay: 20 * time.Millisecond}
	svc := NewService(Providers{Image: provider}, cfg)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GenerateImage(context.Background(), "p", ImageOptions{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&provider.maxSeen), int32(2))
}

func TestService_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	provider := &scriptedText{errs: []error{statusError(ClassText, 503, "busy")}, output: "ok"}
	svc := NewService(Providers{Text: provider}, testServiceConfig(), WithMetrics(metrics))

	_, err := svc.GenerateText(context.Background(), "p", TextOptions{Stage: "context"})
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.calls.WithLabelValues("text", "context", "ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.attempts.WithLabelValues("text")))
}

func TestService_NilMetricsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeCall(ClassText, "x", "ok", 1)
		m.observeAttempt(ClassText)
		m.acquire()
		m.release()
	})
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindCancelled, classify(ClassText, context.Canceled).Kind)
	assert.Equal(t, KindTimeout, classify(ClassText, context.DeadlineExceeded).Kind)
	assert.Equal(t, KindInternal, classify(ClassText, errors.New("odd")).Kind)

	wrapped := classify(ClassImage, statusError("", 429, "x"))
	assert.Equal(t, ClassImage, wrapped.Class)
	assert.True(t, wrapped.Retryable())
}

func TestKindForStatus(t *testing.T) {
	assert.Equal(t, KindRateLimited, kindForStatus(429))
	assert.Equal(t, KindTimeout, kindForStatus(504))
	assert.Equal(t, KindUnauthorized, kindForStatus(401))
	assert.Equal(t, KindUnavailable, kindForStatus(502))
	assert.Equal(t, KindInvalidInput, kindForStatus(422))
}
