package sheetrec_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/ideamans/go-sheetrec"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type recordingProfiler struct {
	events []string
}

func (p *recordingProfiler) ProfilingEnabled() bool { return true }

func (p *recordingProfiler) ProfileEvent(kind, name string) {
	p.events = append(p.events, kind+": "+name)
}

func newTestPolicy(maxAttempts int) (*sheetrec.RetryPolicy, *[]time.Duration, *test.Hook) {
	logger, hook := test.NewNullLogger()
	p := sheetrec.NewRetryPolicy(&sheetrec.Config{MaxAttempts: maxAttempts, Logger: logger})

	var sleeps []time.Duration
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return p, &sleeps, hook
}

// failing returns an op that fails with errs in turn, then succeeds
func failing(errs ...error) (func(context.Context) error, *int) {
	calls := 0
	return func(ctx context.Context) error {
		calls++
		if calls <= len(errs) {
			return errs[calls-1]
		}
		return nil
	}, &calls
}

func serverError() error {
	return &googleapi.Error{Code: 503, Message: "backend unavailable"}
}

func TestRetryPolicy_RecoversFromTransientFailures(t *testing.T) {
	p, sleeps, hook := newTestPolicy(10)
	op, calls := failing(serverError(), serverError())

	require.NoError(t, p.Execute(context.Background(), op))
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, *sleeps)

	var warnings int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 4, warnings)
}

func TestRetryPolicy_GivesUp(t *testing.T) {
	p, sleeps, hook := newTestPolicy(3)
	op, calls := failing(serverError(), serverError(), serverError(), serverError())

	err := p.Execute(context.Background(), op)
	var ge *googleapi.Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, 503, ge.Code)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, *sleeps)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "Giving up", last.Message)
	assert.Equal(t, 3, last.Data["attempt"])
}

func TestRetryPolicy_FatalErrorIsNotRetried(t *testing.T) {
	p, sleeps, hook := newTestPolicy(10)
	boom := &googleapi.Error{Code: 400, Message: "bad range"}
	op, calls := failing(boom)

	err := p.Execute(context.Background(), op)
	assert.Equal(t, error(boom), err)
	assert.Equal(t, 1, *calls)
	assert.Empty(t, *sleeps)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestRetryPolicy_RateLimit(t *testing.T) {
	p, sleeps, hook := newTestPolicy(10)
	limited := &googleapi.Error{
		Code: 429,
		Body: `{"error":{"code":429,"message":"Quota exceeded for quota metric 'Read requests'"}}`,
	}
	op, _ := failing(limited)

	require.NoError(t, p.Execute(context.Background(), op, sheetrec.WithProfile("get_range", "People!1:1")))
	assert.Equal(t, []time.Duration{5 * time.Second}, *sleeps)

	first := hook.AllEntries()[0]
	assert.Equal(t, "rate_limit", first.Data["kind"])
	assert.Equal(t, "People!1:1", first.Data["label"])
	assert.Contains(t, first.Message, "Quota exceeded for quota metric")
}

func TestRetryPolicy_WithMaxAttempts(t *testing.T) {
	p, sleeps, _ := newTestPolicy(10)
	op, calls := failing(serverError(), serverError())

	require.Error(t, p.Execute(context.Background(), op, sheetrec.WithMaxAttempts(1)))
	assert.Equal(t, 1, *calls)
	assert.Empty(t, *sleeps)
}

func TestRetryPolicy_BackoffUnit(t *testing.T) {
	p, sleeps, _ := newTestPolicy(10)
	p.BackoffUnit = time.Millisecond
	op, _ := failing(serverError(), serverError(), serverError())

	require.NoError(t, p.Execute(context.Background(), op))
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 15 * time.Millisecond}, *sleeps)
}

func TestRetryPolicy_CanceledDuringSleep(t *testing.T) {
	p, _, _ := newTestPolicy(10)
	ctx, cancel := context.WithCancel(context.Background())
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	failure := serverError()
	op, calls := failing(failure, failure)

	err := p.Execute(ctx, op)
	assert.Equal(t, failure, err)
	assert.Equal(t, 1, *calls)
}

func TestRetryPolicy_RealSleepHonoursContext(t *testing.T) {
	p := sheetrec.NewRetryPolicy(&sheetrec.Config{BackoffUnit: time.Hour, Logger: logrus.New()})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	op, calls := failing(serverError(), serverError())
	start := time.Now()
	require.Error(t, p.Execute(ctx, op))
	assert.Less(t, time.Since(start), time.Minute)
	assert.Equal(t, 1, *calls)
}

func TestRetryPolicy_Profile(t *testing.T) {
	p, _, _ := newTestPolicy(10)
	prof := &recordingProfiler{}
	p.Profiler = prof

	op, _ := failing(serverError())
	require.NoError(t, p.Execute(context.Background(), op, sheetrec.WithProfile("batch_write", "doc")))
	require.NoError(t, p.Execute(context.Background(), op))

	// one event per call, not per attempt
	assert.Equal(t, []string{"batch_write: doc"}, prof.events)
}

func TestCall(t *testing.T) {
	p, _, _ := newTestPolicy(10)
	attempts := 0

	got, err := sheetrec.Call(context.Background(), p, func(ctx context.Context) ([]string, error) {
		attempts++
		if attempts == 1 {
			return nil, io.ErrUnexpectedEOF
		}
		return []string{"People"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"People"}, got)
	assert.Equal(t, 2, attempts)
}

func TestDefaultClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want sheetrec.FailureKind
	}{
		{"plain error", errors.New("boom"), sheetrec.KindFatal},
		{"canceled", context.Canceled, sheetrec.KindFatal},
		{"tagged", &sheetrec.RemoteError{Kind: sheetrec.KindTransientRateLimit}, sheetrec.KindTransientRateLimit},
		{"wrapped tag", fmt.Errorf("write: %w", &sheetrec.RemoteError{Kind: sheetrec.KindTransientServer}), sheetrec.KindTransientServer},
		{"429", &googleapi.Error{Code: 429}, sheetrec.KindTransientRateLimit},
		{"403 quota", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}}}, sheetrec.KindTransientRateLimit},
		{"403 denied", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "forbidden"}}}, sheetrec.KindFatal},
		{"404", &googleapi.Error{Code: 404}, sheetrec.KindFatal},
		{"500", &googleapi.Error{Code: 500}, sheetrec.KindTransientServer},
		{"502 wrapped", fmt.Errorf("read: %w", &googleapi.Error{Code: 502}), sheetrec.KindTransientServer},
		{"unexpected eof", io.ErrUnexpectedEOF, sheetrec.KindTransientTransport},
		{"connection reset", &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}, sheetrec.KindTransientTransport},
		{"url error", &url.Error{Op: "Get", URL: "https://sheets.googleapis.com", Err: io.EOF}, sheetrec.KindTransientTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sheetrec.DefaultClassifier(tt.err))
		})
	}
}

func TestFailureKind_String(t *testing.T) {
	assert.Equal(t, "fatal", sheetrec.KindFatal.String())
	assert.Equal(t, "transmission", sheetrec.KindTransientTransport.String())
	assert.Equal(t, "server", sheetrec.KindTransientServer.String())
	assert.Equal(t, "rate_limit", sheetrec.KindTransientRateLimit.String())
	assert.False(t, sheetrec.KindFatal.Retryable())
	assert.True(t, sheetrec.KindTransientServer.Retryable())
}
