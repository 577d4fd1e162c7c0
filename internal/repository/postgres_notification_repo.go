package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/listingwatch/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知履歴リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Append は通知結果を履歴に追記する。IDが未設定なら採番する。
func (r *PostgresNotificationRepo) Append(ctx context.Context, entry *model.NotificationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notification_logs (id, rule_id, listing_id, to_email, sent_at, status, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID,
		nullString(entry.RuleID),
		nullString(entry.ListingID),
		entry.ToEmail,
		entry.SentAt,
		string(entry.Status),
		nullString(entry.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("通知履歴の追記に失敗しました: %w", err)
	}

	return nil
}

// ListRecent は直近の通知履歴を新しい順に返す。
func (r *PostgresNotificationRepo) ListRecent(ctx context.Context, limit int) ([]*model.NotificationLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, rule_id, listing_id, to_email, sent_at, status, error_message
		 FROM notification_logs
		 ORDER BY sent_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("通知履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var logs []*model.NotificationLog
	for rows.Next() {
		entry := &model.NotificationLog{}
		var ruleID, listingID, errMsg sql.NullString
		var status string

		err := rows.Scan(&entry.ID, &ruleID, &listingID, &entry.ToEmail, &entry.SentAt, &status, &errMsg)
		if err != nil {
			return nil, fmt.Errorf("通知履歴行のスキャンに失敗しました: %w", err)
		}

		entry.RuleID = ruleID.String
		entry.ListingID = listingID.String
		entry.Status = model.NotificationStatus(status)
		entry.ErrorMessage = errMsg.String

		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("通知履歴行の走査に失敗しました: %w", err)
	}

	return logs, nil
}

// DeleteOlderThan は指定時刻より古い通知履歴を削除し、削除件数を返す。
func (r *PostgresNotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notification_logs WHERE sent_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("通知履歴の削除に失敗しました: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}

	return deleted, nil
}
