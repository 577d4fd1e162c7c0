package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/listingwatch/internal/model"
)

// PostgresListingRepo はPostgreSQLを使用したリスティングリポジトリ。
type PostgresListingRepo struct {
	db *sql.DB
}

// NewPostgresListingRepo はPostgresListingRepoを生成する。
func NewPostgresListingRepo(db *sql.DB) *PostgresListingRepo {
	return &PostgresListingRepo{db: db}
}

// ListExternalIDs は指定サイトで永続化済みの全ExternalIDを返す。
func (r *PostgresListingRepo) ListExternalIDs(ctx context.Context, siteID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT external_id FROM listings WHERE site_id = $1`,
		siteID,
	)
	if err != nil {
		return nil, fmt.Errorf("ExternalIDの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ExternalID行のスキャンに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExternalID行の走査に失敗しました: %w", err)
	}

	return ids, nil
}

// Create はリスティングを1件挿入する。
// (site_id, external_id) の一意制約違反はそのままエラーとして返り、
// 呼び出し側（差分エンジン）が行単位で捕捉する。
func (r *PostgresListingRepo) Create(ctx context.Context, listing *model.Listing) error {
	var price decimal.NullDecimal
	if listing.Price != nil {
		price = decimal.NewNullDecimal(*listing.Price)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO listings
		   (id, site_id, external_id, title, company, price, url, city,
		    created_at_on_site, first_seen_at, last_seen_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		listing.ID, listing.SiteID, listing.ExternalID, listing.Title,
		nullString(listing.Company), price, listing.URL, nullString(listing.City),
		nullTime(listing.CreatedAtOnSite), listing.FirstSeenAt, listing.LastSeenAt, listing.IsActive,
	)
	if err != nil {
		return fmt.Errorf("リスティングの挿入に失敗しました: %w", err)
	}

	return nil
}

// ListForExport は一括メール送信用にリスティング一覧を返す。
// siteIDが空の場合は全サイトを対象とし、first_seen_at降順で返す。
func (r *PostgresListingRepo) ListForExport(ctx context.Context, siteID string) ([]*model.Listing, error) {
	query := `SELECT id, site_id, external_id, title, company, price, url, city,
	                 created_at_on_site, first_seen_at, last_seen_at, is_active
	          FROM listings`
	var args []any
	if siteID != "" {
		query += ` WHERE site_id = $1`
		args = append(args, siteID)
	}
	query += ` ORDER BY first_seen_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("リスティング一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var listings []*model.Listing
	for rows.Next() {
		listing := &model.Listing{}
		var company, city sql.NullString
		var price decimal.NullDecimal
		var createdAtOnSite sql.NullTime

		err := rows.Scan(
			&listing.ID, &listing.SiteID, &listing.ExternalID, &listing.Title,
			&company, &price, &listing.URL, &city,
			&createdAtOnSite, &listing.FirstSeenAt, &listing.LastSeenAt, &listing.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("リスティング行のスキャンに失敗しました: %w", err)
		}

		listing.Company = company.String
		listing.City = city.String
		if price.Valid {
			p := price.Decimal
			listing.Price = &p
		}
		if createdAtOnSite.Valid {
			t := createdAtOnSite.Time
			listing.CreatedAtOnSite = &t
		}

		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リスティング行の走査に失敗しました: %w", err)
	}

	return listings, nil
}

// nullString は空文字列をNULLとして扱うsql.NullStringを返す。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime はnilをNULLとして扱うsql.NullTimeを返す。
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
