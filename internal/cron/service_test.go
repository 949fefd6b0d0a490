package cron

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/liftbooks-backend/pkg/logger"
	"github.com/angelmondragon/liftbooks-backend/pkg/metrics"
)

type stubLock struct {
	held     bool
	releases int
	owner    string
}

func (l *stubLock) Acquire(context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *stubLock) Release(context.Context) error {
	l.held = false
	l.releases++
	return nil
}

func (l *stubLock) Holder(context.Context) (string, error) { return l.owner, nil }

type countingJob struct {
	name string
	err  error
	runs int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func newTestService(t *testing.T, lock Lock, m *metrics.CronJobMetrics, out *bytes.Buffer, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	opts := logger.Options{ServiceName: "cron-test", Format: logger.FormatJSON}
	if out != nil {
		opts.Output = out
	}
	svc, err := NewService(ServiceParams{Logger: logger.New(opts), Registry: registry, Lock: lock, Metrics: m})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRunOnceKeepsGoingAfterJobFailure(t *testing.T) {
	ok := &countingJob{name: "outbox-retention"}
	bad := &countingJob{name: "recurring-invoicing", err: errors.New("boom")}
	lock := &stubLock{}
	svc := newTestService(t, lock, metrics.NewCronJobMetrics(prometheus.NewRegistry()), nil, bad, ok)

	err := svc.RunOnce(context.Background())
	if got := len(multierr.Errors(err)); got != 1 {
		t.Fatalf("expected one joined failure, got %d (%v)", got, err)
	}
	if !strings.HasPrefix(err.Error(), "recurring-invoicing: ") {
		t.Fatalf("failure should name the job, got %q", err)
	}
	if ok.runs != 1 || bad.runs != 1 {
		t.Fatalf("each job should run once, ok=%d bad=%d", ok.runs, bad.runs)
	}
	if lock.releases != 1 || lock.held {
		t.Fatalf("lock should be released once, releases=%d held=%v", lock.releases, lock.held)
	}
}

func TestRunOnceSkipsWhileLockHeldElsewhere(t *testing.T) {
	job := &countingJob{name: "recurring-invoicing"}
	var logs bytes.Buffer
	svc := newTestService(t, &stubLock{held: true, owner: "worker-2/abc"}, metrics.NewCronJobMetrics(prometheus.NewRegistry()), &logs, job)

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job should not run without the lock, ran %d", job.runs)
	}
	if !strings.Contains(logs.String(), `"lock_holder":"worker-2/abc"`) {
		t.Fatalf("skip log should name the holder: %s", logs.String())
	}
}

func TestRunReturnsWhenContextCanceled(t *testing.T) {
	job := &countingJob{name: "recurring-invoicing"}
	svc := newTestService(t, &stubLock{}, nil, nil, job)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("first cycle should run immediately, ran %d", job.runs)
	}
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: &stubLock{}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewService(ServiceParams{Logger: logger.New(logger.Options{})}); err == nil {
		t.Fatal("expected error without lock")
	}
}
