package sheetrec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
)

// FailureKind classifies an error returned by a remote call
type FailureKind int

const (
	KindFatal FailureKind = iota
	KindTransientTransport
	KindTransientServer
	KindTransientRateLimit
)

func (k FailureKind) String() string {
	switch k {
	case KindTransientTransport:
		return "transmission"
	case KindTransientServer:
		return "server"
	case KindTransientRateLimit:
		return "rate_limit"
	default:
		return "fatal"
	}
}

// Retryable reports whether failures of this kind are retried
func (k FailureKind) Retryable() bool {
	return k != KindFatal
}

// RemoteError lets a Service tag a failure with its kind explicitly
type RemoteError struct {
	Kind    FailureKind
	Code    int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s error %d: %s", e.Kind, e.Code, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Profiler receives one event per profiled remote call
type Profiler interface {
	ProfilingEnabled() bool
	ProfileEvent(kind, name string)
}

// RetryPolicy runs remote calls, retrying transient failures with linear backoff
type RetryPolicy struct {
	MaxAttempts int
	BackoffUnit time.Duration
	Classify    func(error) FailureKind
	Logger      logrus.FieldLogger
	Profiler    Profiler

	// Sleep waits between attempts. It returns early with ctx.Err() when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy creates a policy from the client configuration
func NewRetryPolicy(config *Config) *RetryPolicy {
	if config == nil {
		config = DefaultConfig()
	}
	c := *config
	c.applyDefaults()

	return &RetryPolicy{
		MaxAttempts: c.MaxAttempts,
		BackoffUnit: c.BackoffUnit,
		Classify:    DefaultClassifier,
		Logger:      c.Logger,
		Sleep:       sleepContext,
	}
}

type callOptions struct {
	maxAttempts int
	profileType string
	profileName string
}

// CallOption customizes a single Execute call
type CallOption func(*callOptions)

// WithMaxAttempts overrides the attempt ceiling for one call
func WithMaxAttempts(n int) CallOption {
	return func(o *callOptions) {
		o.maxAttempts = n
	}
}

// WithProfile records a profiling event of the given type when profiling is enabled
func WithProfile(kind, name string) CallOption {
	return func(o *callOptions) {
		o.profileType = kind
		o.profileName = name
	}
}

// Execute runs op until it succeeds, fails with a fatal error, or the attempt
// ceiling is reached. Retry n sleeps n*5 backoff units. The error returned is
// the one op returned last, unwrapped.
func (p *RetryPolicy) Execute(ctx context.Context, op func(ctx context.Context) error, opts ...CallOption) error {
	o := callOptions{maxAttempts: p.MaxAttempts}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxAttempts <= 0 {
		o.maxAttempts = defaultMaxAttempts
	}

	if o.profileType != "" && p.Profiler != nil && p.Profiler.ProfilingEnabled() {
		p.Profiler.ProfileEvent(o.profileType, o.profileName)
	}

	log := p.logger()
	classify := p.Classify
	if classify == nil {
		classify = DefaultClassifier
	}

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		kind := classify(err)
		if ctx.Err() != nil {
			kind = KindFatal
		}
		entry := log.WithFields(logrus.Fields{
			"attempt": attempt,
			"kind":    kind.String(),
		})
		if o.profileName != "" {
			entry = entry.WithField("label", o.profileName)
		}

		switch kind {
		case KindTransientTransport:
			entry.Warnf("Transmission error: %v", err)
		case KindTransientServer:
			entry.Warnf("Server error: %v", err)
		case KindTransientRateLimit:
			entry.Warnf("Rate limit error: %s", rateLimitMessage(err))
		default:
			entry.Errorf("Unexpected error: %v", err)
			return err
		}

		if attempt >= o.maxAttempts {
			entry.Error("Giving up")
			return err
		}

		delay := time.Duration(attempt*5) * p.BackoffUnit
		entry.Warnf("Retrying after %v", delay)
		if serr := p.sleep(ctx, delay); serr != nil {
			entry.Errorf("Retry aborted: %v", serr)
			return err
		}
	}
}

// Call is Execute for operations that produce a value
func Call[T any](ctx context.Context, p *RetryPolicy, op func(ctx context.Context) (T, error), opts ...CallOption) (T, error) {
	var result T
	err := p.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	}, opts...)
	return result, err
}

func (p *RetryPolicy) logger() logrus.FieldLogger {
	if p.Logger == nil {
		return logrus.StandardLogger()
	}
	return p.Logger
}

func (p *RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep == nil {
		return sleepContext(ctx, d)
	}
	return p.Sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DefaultClassifier sorts errors from the Sheets API and the network stack
func DefaultClassifier(err error) FailureKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindFatal
	}

	var ge *googleapi.Error
	if errors.As(err, &ge) {
		switch {
		case ge.Code == http.StatusTooManyRequests:
			return KindTransientRateLimit
		case ge.Code == http.StatusForbidden && hasRateLimitReason(ge):
			return KindTransientRateLimit
		case ge.Code >= 500:
			return KindTransientServer
		default:
			return KindFatal
		}
	}

	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return KindTransientTransport
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return KindTransientTransport
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return KindTransientTransport
	}
	return KindFatal
}

func hasRateLimitReason(ge *googleapi.Error) bool {
	for _, item := range ge.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}

// rateLimitMessage extracts the human readable quota message from the error body
func rateLimitMessage(err error) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}

	var ge *googleapi.Error
	if errors.As(err, &ge) {
		if ge.Message != "" {
			return ge.Message
		}
		var body struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal([]byte(ge.Body), &body) == nil && body.Error.Message != "" {
			return body.Error.Message
		}
	}
	return err.Error()
}
