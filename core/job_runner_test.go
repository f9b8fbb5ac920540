package core

import (
	"context"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedJob struct {
	mu      sync.Mutex
	handle  func(ctx context.Context, attempt int) error
	calls   int
	failed  int
	lastErr error
}

func (j *scriptedJob) Handle(ctx context.Context) error {
	j.mu.Lock()
	j.calls++
	attempt := j.calls
	j.mu.Unlock()
	return j.handle(ctx, attempt)
}

func (j *scriptedJob) Failed(_ context.Context, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failed++
	j.lastErr = err
}

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func TestRunJobRetriesUntilSuccess(t *testing.T) {
	job := &scriptedJob{handle: func(_ context.Context, attempt int) error {
		if attempt < 3 {
			return errors.New("BD no disponible")
		}
		return nil
	}}
	sleeper := &sleepRecorder{}
	var retried []int
	err := RunJob(context.Background(), job, JobOptions{
		JitterMax: time.Nanosecond,
		Sleep:     sleeper.Sleep,
		OnRetry:   func(_ context.Context, attempt int, _ error) { retried = append(retried, attempt) },
	})
	require.NoError(t, err)
	assert.Equal(t, 3, job.calls)
	assert.Equal(t, 0, job.failed)
	assert.Equal(t, []int{1, 2}, retried)
	require.Len(t, sleeper.waits, 2)
	assert.GreaterOrEqual(t, sleeper.waits[0], time.Second)
	assert.GreaterOrEqual(t, sleeper.waits[1], 2*time.Second)
}

func TestRunJobExhaustsAttempts(t *testing.T) {
	boom := errors.New("error persistent")
	job := &scriptedJob{handle: func(context.Context, int) error { return boom }}
	err := RunJob(context.Background(), job, JobOptions{Sleep: (&sleepRecorder{}).Sleep})
	require.Error(t, err)
	assert.Equal(t, 3, job.calls)
	assert.Equal(t, 1, job.failed, "Failed s'ha de cridar una sola vegada")
	assert.Equal(t, boom, job.lastErr)
}

func TestRunJobPermanentErrorSkipsRetries(t *testing.T) {
	job := &scriptedJob{handle: func(context.Context, int) error {
		return Permanent(errors.New("fitxer il·legible"))
	}}
	sleeper := &sleepRecorder{}
	err := RunJob(context.Background(), job, JobOptions{Sleep: sleeper.Sleep})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, job.calls)
	assert.Equal(t, 1, job.failed)
	assert.Empty(t, sleeper.waits)
}

func TestRunJobTimeoutCountsAsAttempt(t *testing.T) {
	before := testutil.ToFloat64(getMetrics().attempts.WithLabelValues(resultTimeout))
	job := &scriptedJob{handle: func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return errors.Wrap(ctx.Err(), "consulta cancel·lada")
	}}
	err := RunJob(context.Background(), job, JobOptions{
		MaxAttempts: 2,
		Timeout:     20 * time.Millisecond,
		Sleep:       (&sleepRecorder{}).Sleep,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 2, job.calls)
	assert.Equal(t, 1, job.failed)
	assert.Equal(t, before+2, testutil.ToFloat64(getMetrics().attempts.WithLabelValues(resultTimeout)))
}

func TestRunJobWrapsErrorsAfterDeadline(t *testing.T) {
	job := &scriptedJob{handle: func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return errors.New("sql: connexió tancada")
	}}
	err := RunJob(context.Background(), job, JobOptions{
		MaxAttempts: 1,
		Timeout:     10 * time.Millisecond,
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "connexió tancada")
}

func TestRunJobUsesPermanentFailureHook(t *testing.T) {
	job := &scriptedJob{handle: func(context.Context, int) error { return Permanent(errors.New("no")) }}
	var hooked error
	_ = RunJob(context.Background(), job, JobOptions{
		OnPermanentFailure: func(_ context.Context, err error) { hooked = err },
	})
	assert.Error(t, hooked)
	assert.Equal(t, 0, job.failed, "el hook substitueix Failed")
}

func TestRunJobStopsWhenParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &scriptedJob{handle: func(context.Context, int) error {
		cancel()
		return errors.New("interromput")
	}}
	err := RunJob(ctx, job, JobOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, job.calls)
	assert.Equal(t, 0, job.failed, "una aturada no és una fallada")
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Duration(0), backoff(0, time.Minute))
	assert.Equal(t, time.Second, backoff(1, time.Minute))
	assert.Equal(t, 2*time.Second, backoff(2, time.Minute))
	assert.Equal(t, 4*time.Second, backoff(3, time.Minute))
	assert.Equal(t, time.Minute, backoff(10, time.Minute))
}

func TestTruncateStringKeepsUTF8(t *testing.T) {
	assert.Equal(t, "à", truncateString("àààà", 3))
	assert.Equal(t, "curt", truncateString("curt", 10))
	assert.Equal(t, "", truncateString("res", 0))

	long := errors.New(string(make([]byte, 5000)))
	got := truncateError(long, 2048)
	assert.Len(t, got, 2048)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "", truncateError(nil, 10))
}
