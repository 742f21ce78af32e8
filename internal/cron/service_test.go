package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/metrics"
)

type fakeLocker struct {
	held     map[string]bool
	released []string
	err      error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (f *fakeLocker) TryLock(_ context.Context, name string) (Release, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	if f.held[name] {
		return nil, false, nil
	}
	f.held[name] = true
	return func(context.Context) error {
		delete(f.held, name)
		f.released = append(f.released, name)
		return nil
	}, true, nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, locker Locker, reg prometheus.Registerer, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Locker:   locker,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestRunOnceRunsAllJobsAndCombinesFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	ok := &testJob{name: "ok"}
	bad := &testJob{name: "bad", err: errors.New("boom")}
	alsoBad := &testJob{name: "also-bad", err: errors.New("bang")}
	locker := newFakeLocker()
	svc := newTestService(t, locker, reg, ok, bad, alsoBad)

	err := svc.RunOnce(context.Background())
	if len(multierr.Errors(err)) != 2 {
		t.Fatalf("expected two combined failures, got %v", err)
	}
	if ok.runs != 1 || bad.runs != 1 || alsoBad.runs != 1 {
		t.Fatalf("expected every job to run once: %d %d %d", ok.runs, bad.runs, alsoBad.runs)
	}
	if len(locker.held) != 0 || len(locker.released) != 3 {
		t.Fatalf("expected all locks released, held=%v released=%v", locker.held, locker.released)
	}

	failures := map[string]float64{}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "kardex_cron_job_runs_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["outcome"] == metrics.OutcomeFailure {
				failures[labels["job"]] = metric.GetCounter().GetValue()
			}
		}
	}
	if failures["bad"] != 1 || failures["also-bad"] != 1 || failures["ok"] != 0 {
		t.Fatalf("unexpected failure counters %v", failures)
	}
}

func TestRunJobSkipsWhenLockedElsewhere(t *testing.T) {
	job := &testJob{name: "busy"}
	locker := newFakeLocker()
	locker.held["busy"] = true
	svc := newTestService(t, locker, nil, job)

	if err := svc.RunJob(context.Background(), job); err != nil {
		t.Fatalf("RunJob: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("locked job must not run")
	}
}

func TestRunJobReportsLockErrors(t *testing.T) {
	job := &testJob{name: "any"}
	locker := newFakeLocker()
	locker.err = errors.New("redis down")
	svc := newTestService(t, locker, nil, job)

	if err := svc.RunJob(context.Background(), job); err == nil {
		t.Fatalf("expected lock error")
	}
	if job.runs != 0 {
		t.Fatalf("job must not run without its lock")
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: logger.Nop()}); err == nil {
		t.Fatalf("expected missing locker error")
	}
}
