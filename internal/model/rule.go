// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRule は新着リスティングに対する通知条件を表す。
// 各条件はすべて任意であり、設定された条件のみがAND結合で評価される。
type AlertRule struct {
	ID              string
	Name            string
	SiteID          string // 空の場合は全サイト対象
	Keywords        string // カンマ区切りのキーワードリスト
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	City            string
	OnlyNewListings bool
	EmailsToNotify  string // カンマ区切りの宛先メールアドレス
	IsActive        bool

	// メール再送スケジューリング
	EnableScheduledEmail bool
	EmailIntervalHours   int
	LastEmailSentAt      *time.Time
	NextEmailSendAt      *time.Time

	CreatedAt time.Time
}
