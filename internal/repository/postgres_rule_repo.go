package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/listingwatch/internal/model"
)

// ruleSelectColumns はAlertRuleの取得で共通に使用する列リスト。
const ruleSelectColumns = `id, name, site_id, keywords, min_price, max_price, city,
	only_new_listings, emails_to_notify, is_active,
	enable_scheduled_email, email_interval_hours,
	last_email_sent_at, next_email_send_at, created_at`

// PostgresRuleRepo はPostgreSQLを使用した通知ルールリポジトリ。
type PostgresRuleRepo struct {
	db *sql.DB
}

// NewPostgresRuleRepo はPostgresRuleRepoを生成する。
func NewPostgresRuleRepo(db *sql.DB) *PostgresRuleRepo {
	return &PostgresRuleRepo{db: db}
}

// ListActive は全アクティブルールを返す。
func (r *PostgresRuleRepo) ListActive(ctx context.Context) ([]*model.AlertRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleSelectColumns+`
		 FROM alert_rules
		 WHERE is_active = TRUE
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("アクティブルールの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// ListActiveForSite は指定サイトに適用されるアクティブなルールを返す。
// サイトスコープのルールに加え、全サイト対象（site_id IS NULL）のルールも含む。
func (r *PostgresRuleRepo) ListActiveForSite(ctx context.Context, siteID string) ([]*model.AlertRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleSelectColumns+`
		 FROM alert_rules
		 WHERE is_active = TRUE AND (site_id IS NULL OR site_id = $1)
		 ORDER BY created_at`,
		siteID,
	)
	if err != nil {
		return nil, fmt.Errorf("サイト対象ルールの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// UpdateEmailSchedule はスケジュール送信ルールの送信時刻を更新する。
func (r *PostgresRuleRepo) UpdateEmailSchedule(ctx context.Context, ruleID string, lastSentAt, nextSendAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE alert_rules
		 SET last_email_sent_at = $2, next_email_send_at = $3
		 WHERE id = $1`,
		ruleID, lastSentAt, nextSendAt,
	)
	if err != nil {
		return fmt.Errorf("ルールの送信時刻更新に失敗しました: %w", err)
	}

	return nil
}

// scanRules は結果セットをAlertRuleのスライスに変換する。
func scanRules(rows *sql.Rows) ([]*model.AlertRule, error) {
	var rules []*model.AlertRule
	for rows.Next() {
		rule := &model.AlertRule{}
		var siteID sql.NullString
		var minPrice, maxPrice decimal.NullDecimal
		var lastSentAt, nextSendAt sql.NullTime

		err := rows.Scan(
			&rule.ID, &rule.Name, &siteID, &rule.Keywords, &minPrice, &maxPrice, &rule.City,
			&rule.OnlyNewListings, &rule.EmailsToNotify, &rule.IsActive,
			&rule.EnableScheduledEmail, &rule.EmailIntervalHours,
			&lastSentAt, &nextSendAt, &rule.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ルール行のスキャンに失敗しました: %w", err)
		}

		rule.SiteID = siteID.String
		if minPrice.Valid {
			p := minPrice.Decimal
			rule.MinPrice = &p
		}
		if maxPrice.Valid {
			p := maxPrice.Decimal
			rule.MaxPrice = &p
		}
		if lastSentAt.Valid {
			t := lastSentAt.Time
			rule.LastEmailSentAt = &t
		}
		if nextSendAt.Valid {
			t := nextSendAt.Time
			rule.NextEmailSendAt = &t
		}

		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ルール行の走査に失敗しました: %w", err)
	}

	return rules, nil
}
