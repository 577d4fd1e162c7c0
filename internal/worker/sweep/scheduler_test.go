package sweep

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingRunner struct {
	count   atomic.Int64
	block   chan struct{} // 非nilの場合、RunOnceはチャネルが閉じるまでブロックする
	started chan struct{}
}

func (r *countingRunner) RunOnce(ctx context.Context) error {
	r.count.Add(1)
	if r.started != nil {
		select {
		case r.started <- struct{}{}:
		default:
		}
	}
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
		}
	}
	return nil
}

func waitForCount(t *testing.T, r *countingRunner, want int64) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if r.count.Load() >= want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d runs, got %d", want, r.count.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type busyRunner struct {
	count atomic.Int64
}

func (r *busyRunner) RunOnce(ctx context.Context) error {
	r.count.Add(1)
	return ErrSweepInProgress
}

// TestSchedulerSkipsWhenSweepInProgress はスイープ重複時の定期実行が
// エラーではなく見送りとして扱われることをテストする。
func TestSchedulerSkipsWhenSweepInProgress(t *testing.T) {
	var buf bytes.Buffer
	runner := &busyRunner{}
	s := NewScheduler(runner, slog.New(slog.NewJSONHandler(&buf, nil)))

	s.Start(10 * time.Millisecond)
	deadline := time.After(2 * time.Second)
	for runner.count.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for scheduler ticks")
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Stop()

	logs := buf.String()
	if strings.Contains(logs, `"level":"ERROR"`) {
		t.Errorf("重複スイープがエラーとして記録されています: %s", logs)
	}
	if !strings.Contains(logs, "見送ります") {
		t.Errorf("見送りの警告ログがありません: %s", logs)
	}
}

func TestSchedulerRunsImmediately(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, testLogger())

	s.Start(time.Hour)
	defer s.Stop()

	waitForCount(t, runner, 1)
	if !s.IsRunning() {
		t.Error("scheduler should be running after Start")
	}
}

func TestSchedulerStartWhileRunningIsNoop(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, testLogger())

	s.Start(time.Hour)
	defer s.Stop()
	waitForCount(t, runner, 1)

	s.Start(time.Hour)
	time.Sleep(20 * time.Millisecond)

	if got := runner.count.Load(); got != 1 {
		t.Errorf("second Start should not trigger another immediate run, got %d runs", got)
	}
}

func TestSchedulerStopWhileStoppedIsNoop(t *testing.T) {
	s := NewScheduler(&countingRunner{}, testLogger())

	s.Stop()
	if s.IsRunning() {
		t.Error("scheduler should remain stopped")
	}
}

func TestSchedulerStopJoinsInflightSweep(t *testing.T) {
	runner := &countingRunner{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := NewScheduler(runner, testLogger())

	s.Start(time.Hour)
	<-runner.started

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after in-flight sweep was cancelled")
	}
	if s.IsRunning() {
		t.Error("scheduler should be stopped after Stop")
	}
}

func TestSchedulerRestartAfterStop(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, testLogger())

	s.Start(time.Hour)
	waitForCount(t, runner, 1)
	s.Stop()

	s.Start(time.Hour)
	defer s.Stop()
	waitForCount(t, runner, 2)
}

func TestSchedulerTicks(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, testLogger())

	s.Start(10 * time.Millisecond)
	defer s.Stop()

	waitForCount(t, runner, 3)
}
