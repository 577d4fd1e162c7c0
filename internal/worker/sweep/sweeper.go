// Package sweep はアクティブサイトの巡回パイプラインを提供する。
// スケジューラ、スイーパー（抽出→差分検出→ルール照合→通知の逐次実行）を含む。
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hitoshi/listingwatch/internal/model"
	"github.com/hitoshi/listingwatch/internal/repository"
)

// ListingDispatcher はサイトに応じたアダプタ選択と抽出のインターフェース。
type ListingDispatcher interface {
	Dispatch(ctx context.Context, site *model.Site) ([]model.ScrapedListing, error)
}

// DiffService は差分検出と永続化のインターフェース。
type DiffService interface {
	DetectNew(ctx context.Context, siteID string, candidates []model.ScrapedListing) ([]model.ScrapedListing, error)
	PersistNew(ctx context.Context, siteID string, fresh []model.ScrapedListing) []*model.Listing
}

// RuleMatcher はルール照合と検証のインターフェース。
type RuleMatcher interface {
	Matches(r *model.AlertRule, listing *model.Listing) bool
	Validate(r *model.AlertRule) error
}

// Notifier は新着リスティングの通知送信インターフェース。
type Notifier interface {
	Notify(ctx context.Context, r *model.AlertRule, listing *model.Listing)
}

// ScheduledSender は定期エクスポートメールの処理インターフェース。
type ScheduledSender interface {
	ProcessScheduledRules(ctx context.Context, rules []*model.AlertRule, now time.Time)
}

// SweepRecorder はスイープメトリクスの記録インターフェース。
type SweepRecorder interface {
	RecordSweep(duration time.Duration)
	RecordSourceError(sourceName string)
	RecordListingsScraped(count int)
	RecordListingsNew(count int)
}

// Sweeper は1回のスイープを実行する。
// アクティブサイトを順に処理し、サイト単位のエラーは隔離して次のサイトへ進む。
// サイトは逐次処理される。各サイトへのレートリミットを守り、
// 同一サイトのデータへの並行書き込みを避けるためにあえて並列化しない。
type Sweeper struct {
	siteRepo   repository.SiteRepository
	ruleRepo   repository.RuleRepository
	dispatcher ListingDispatcher
	differ     DiffService
	matcher    RuleMatcher
	notifier   Notifier
	scheduled  ScheduledSender // nilの場合は定期エクスポートを行わない
	recorder   SweepRecorder   // nilの場合はメトリクスを記録しない
	logger     *slog.Logger

	inFlight atomic.Bool
}

// ErrSweepInProgress は別のスイープが実行中のときにRunOnceが返すエラー。
var ErrSweepInProgress = errors.New("スイープがすでに実行中です")

// NewSweeper はSweeperを生成する。
func NewSweeper(
	siteRepo repository.SiteRepository,
	ruleRepo repository.RuleRepository,
	dispatcher ListingDispatcher,
	differ DiffService,
	matcher RuleMatcher,
	notifier Notifier,
	scheduled ScheduledSender,
	recorder SweepRecorder,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		siteRepo:   siteRepo,
		ruleRepo:   ruleRepo,
		dispatcher: dispatcher,
		differ:     differ,
		matcher:    matcher,
		notifier:   notifier,
		scheduled:  scheduled,
		recorder:   recorder,
		logger:     logger,
	}
}

// RunOnce はアクティブサイト全件に対して1回のスイープを実行する。
// サイト単位の失敗はログとメトリクスに記録して次のサイトへ進み、
// スイープ全体を中断するのはコンテキストのキャンセルだけ。
// 別のスイープが実行中の場合は何もせずErrSweepInProgressを返す。
func (s *Sweeper) RunOnce(ctx context.Context) error {
	// 手動トリガーと定期実行の重複を防ぐ。スイープは常に1本だけ走る
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrSweepInProgress
	}
	defer s.inFlight.Store(false)

	start := time.Now()

	sites, err := s.siteRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("アクティブサイトの取得に失敗しました: %w", err)
	}

	s.logger.Info("スイープを開始します", slog.Int("site_count", len(sites)))

	for _, site := range sites {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.processSite(ctx, site); err != nil {
			s.logger.Error("サイトの処理に失敗しました",
				slog.String("site_id", site.ID),
				slog.String("site_name", site.Name),
				slog.String("error", err.Error()),
			)
			if s.recorder != nil {
				s.recorder.RecordSourceError(site.Name)
			}
		}
	}

	if s.scheduled != nil {
		s.processScheduledEmails(ctx)
	}

	duration := time.Since(start)
	if s.recorder != nil {
		s.recorder.RecordSweep(duration)
	}
	s.logger.Info("スイープが完了しました",
		slog.Int("site_count", len(sites)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// processSite は1サイト分の 抽出→差分検出→保存→ルール照合→通知 を実行する。
func (s *Sweeper) processSite(ctx context.Context, site *model.Site) error {
	candidates, err := s.dispatcher.Dispatch(ctx, site)
	if err != nil {
		return err
	}
	if s.recorder != nil {
		s.recorder.RecordListingsScraped(len(candidates))
	}
	if len(candidates) == 0 {
		return nil
	}

	fresh, err := s.differ.DetectNew(ctx, site.ID, candidates)
	if err != nil {
		return err
	}
	if len(fresh) == 0 {
		s.logger.Info("新着リスティングはありません", slog.String("site_name", site.Name))
		return nil
	}

	persisted := s.differ.PersistNew(ctx, site.ID, fresh)
	if s.recorder != nil {
		s.recorder.RecordListingsNew(len(persisted))
	}
	s.logger.Info("新着リスティングを保存しました",
		slog.String("site_name", site.Name),
		slog.Int("new_count", len(persisted)),
	)
	if len(persisted) == 0 {
		return nil
	}

	rules, err := s.ruleRepo.ListActiveForSite(ctx, site.ID)
	if err != nil {
		return err
	}

	for _, r := range rules {
		// 条件が1つもないルールは全リスティングに一致してしまうため照合しない
		if err := s.matcher.Validate(r); err != nil {
			s.logger.Warn("不正なルールをスキップします",
				slog.String("rule_id", r.ID),
				slog.String("reason", err.Error()),
			)
			continue
		}
		for _, listing := range persisted {
			if s.matcher.Matches(r, listing) {
				s.notifier.Notify(ctx, r, listing)
			}
		}
	}

	return nil
}

// processScheduledEmails は定期送信が有効なルールの再送期限を処理する。
func (s *Sweeper) processScheduledEmails(ctx context.Context) {
	rules, err := s.ruleRepo.ListActive(ctx)
	if err != nil {
		s.logger.Error("定期送信ルールの取得に失敗しました", slog.String("error", err.Error()))
		return
	}
	s.scheduled.ProcessScheduledRules(ctx, rules, time.Now())
}
