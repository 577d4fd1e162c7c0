// Package model はドメインモデルを定義する。
package model

import "time"

// NotificationStatus は通知送信の結果を表す。
type NotificationStatus string

const (
	// NotificationStatusSuccess は送信成功。
	NotificationStatusSuccess NotificationStatus = "success"
	// NotificationStatusFailed は送信失敗。
	NotificationStatusFailed NotificationStatus = "failed"
)

// NotificationLog は通知送信の記録を表す。追記専用で、パイプラインからは更新・削除されない。
// RuleID/ListingIDが空のレコードは一括送信やテストメールなどの汎用ログを表す。
type NotificationLog struct {
	ID           string
	RuleID       string
	ListingID    string
	ToEmail      string
	SentAt       time.Time
	Status       NotificationStatus
	ErrorMessage string
}
