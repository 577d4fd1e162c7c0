// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/listingwatch/internal/model"
)

// SiteRepository は監視対象サイトの永続化インターフェース。
type SiteRepository interface {
	// FindByID は指定IDのサイトをParserConfig込みで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Site, error)

	// ListActive はアクティブなサイトの一覧をParserConfig込みで返す。
	// スケジューラのスイープ対象を決定するために使用される。
	ListActive(ctx context.Context) ([]*model.Site, error)
}

// ListingRepository はリスティングデータの永続化インターフェース。
type ListingRepository interface {
	// ListExternalIDs は指定サイトで永続化済みの全ExternalIDを返す。
	// 差分検出エンジンが重複判定に使用する。
	ListExternalIDs(ctx context.Context, siteID string) ([]string, error)

	// Create はリスティングを1件挿入する。
	// (site_id, external_id) の一意制約違反は呼び出し側で捕捉・スキップされる。
	Create(ctx context.Context, listing *model.Listing) error

	// ListForExport は一括メール送信用にリスティング一覧を返す。
	// siteIDが空の場合は全サイトを対象とし、first_seen_at降順で返す。
	ListForExport(ctx context.Context, siteID string) ([]*model.Listing, error)
}

// RuleRepository は通知ルールの永続化インターフェース。
type RuleRepository interface {
	// ListActive は全アクティブルールを返す。定期送信の期限確認に使用される。
	ListActive(ctx context.Context) ([]*model.AlertRule, error)

	// ListActiveForSite は指定サイトに適用されるアクティブなルールを返す。
	// サイトスコープのルールに加え、全サイト対象（site_id IS NULL）のルールも含む。
	ListActiveForSite(ctx context.Context, siteID string) ([]*model.AlertRule, error)

	// UpdateEmailSchedule はスケジュール送信ルールの送信時刻を更新する。
	UpdateEmailSchedule(ctx context.Context, ruleID string, lastSentAt, nextSendAt time.Time) error
}

// NotificationRepository は通知ログの永続化インターフェース。追記専用。
type NotificationRepository interface {
	// Append は通知ログを1件追記する。
	Append(ctx context.Context, entry *model.NotificationLog) error

	// ListRecent は直近の通知ログをsent_at降順で返す。
	ListRecent(ctx context.Context, limit int) ([]*model.NotificationLog, error)

	// DeleteOlderThan は指定時刻より古い通知ログを削除し、削除件数を返す。
	// 保持期間を過ぎたログのクリーンアップジョブから使用される。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
