package sweep

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Runner は1回のスイープを実行するインターフェース。
type Runner interface {
	RunOnce(ctx context.Context) error
}

// Scheduler はスイープを一定間隔で繰り返し実行する。
// 停止/稼働の2状態を持ち、稼働中のStartと停止中のStopは何もしない。
type Scheduler struct {
	runner Runner
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScheduler はSchedulerを生成する。
func NewScheduler(runner Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		logger: logger,
	}
}

// Start は定期スイープを開始する。最初のスイープは待ち時間なしで即座に実行される。
// すでに稼働中の場合は何もしない。
func (s *Scheduler) Start(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("スケジューラはすでに稼働中です")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	s.logger.Info("スケジューラを開始します", slog.Duration("interval", interval))

	go s.loop(ctx, interval, s.done)
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.runner.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		// 手動トリガーとの重複は異常ではないので警告に留める
		if errors.Is(err, ErrSweepInProgress) {
			s.logger.Warn("スイープが実行中のため今回の定期実行を見送ります")
			return
		}
		s.logger.Error("スイープの実行に失敗しました", slog.String("error", err.Error()))
	}
}

// Stop は定期スイープを停止し、実行中のスイープの完了を待ってから戻る。
// すでに停止中の場合は何もしない。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Warn("スケジューラはすでに停止しています")
		return
	}
	cancel := s.cancel
	done := s.done
	s.running = false
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done

	s.logger.Info("スケジューラを停止しました")
}

// IsRunning は稼働中かどうかを返す。
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
