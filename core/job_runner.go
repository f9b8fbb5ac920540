package core

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Job és una unitat de treball reintentable. Failed és l'únic camí de fallada definitiva.
type Job interface {
	Handle(ctx context.Context) error
	Failed(ctx context.Context, err error)
}

type JobOptions struct {
	MaxAttempts     int
	Timeout         time.Duration
	MaxBackoff      time.Duration
	JitterMax       time.Duration
	LastErrorMaxLen int

	// OnRetry es crida quan un intent falla i en queden més.
	OnRetry func(ctx context.Context, attempt int, err error)
	// OnPermanentFailure substitueix job.Failed si s'informa.
	OnPermanentFailure func(ctx context.Context, err error)

	Logger *logrus.Entry
	Rand   *rand.Rand
	Sleep  func(ctx context.Context, d time.Duration) error
}

func (o *JobOptions) setDefaults() {
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 3
	}
	if o.Timeout == 0 {
		o.Timeout = 5 * time.Minute
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = 60 * time.Second
	}
	if o.JitterMax == 0 {
		o.JitterMax = 200 * time.Millisecond
	}
	if o.LastErrorMaxLen == 0 {
		o.LastErrorMaxLen = 2048
	}
	if o.Logger == nil {
		o.Logger = logEntry(logrus.Fields{"component": "jobs"})
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marca un error com a no reintentable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// RunJob executa el treball fins a MaxAttempts vegades, cadascuna amb el seu timeout.
// Un timeout compta com a intent. Quan s'esgoten els intents o l'error és Permanent
// es crida OnPermanentFailure (per defecte job.Failed) i es retorna l'últim error.
// Si el context pare es cancel·la, torna sense marcar el treball com a fallat.
func RunJob(ctx context.Context, job Job, opts JobOptions) error {
	opts.setDefaults()
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err := runAttempt(ctx, job, opts.Timeout)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if IsPermanent(err) || attempt == opts.MaxAttempts {
			break
		}
		opts.Logger.WithField("attempt", attempt).Warnf("intent fallat, es reintentarà: %s",
			truncateError(err, opts.LastErrorMaxLen))
		if opts.OnRetry != nil {
			opts.OnRetry(ctx, attempt, err)
		}
		if err := opts.Sleep(ctx, backoff(attempt, opts.MaxBackoff)+jitter(opts.Rand, opts.JitterMax)); err != nil {
			return err
		}
	}
	if opts.OnPermanentFailure != nil {
		opts.OnPermanentFailure(ctx, lastErr)
	} else {
		job.Failed(ctx, lastErr)
	}
	return lastErr
}

// runAttempt executa un sol intent sota timeout i n'actualitza les mètriques.
func runAttempt(ctx context.Context, job Job, timeout time.Duration) error {
	m := getMetrics()
	m.inflight.Inc()
	defer m.inflight.Dec()

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	err := job.Handle(attemptCtx)
	if err != nil && attemptCtx.Err() == context.DeadlineExceeded && !errors.Is(err, context.DeadlineExceeded) {
		err = errors.Wrapf(context.DeadlineExceeded, "temps d'importació esgotat: %v", err)
	}

	result := resultSuccess
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		result = resultTimeout
	case IsPermanent(err):
		result = resultFailed
	default:
		result = resultRetry
	}
	m.attempts.WithLabelValues(result).Inc()
	m.duration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	return err
}

func backoff(attempts int, maxBackoff time.Duration) time.Duration {
	if attempts <= 0 {
		return 0
	}
	// 1s * 2^(attempts-1)
	seconds := math.Pow(2, float64(attempts-1))
	d := time.Duration(seconds * float64(time.Second))
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func jitter(r *rand.Rand, maxJitter time.Duration) time.Duration {
	if maxJitter <= 0 || r == nil {
		return 0
	}
	return time.Duration(r.Int63n(int64(maxJitter) + 1)) //nolint:gosec
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
