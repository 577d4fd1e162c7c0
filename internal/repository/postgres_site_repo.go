package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/listingwatch/internal/model"
)

// PostgresSiteRepo はPostgreSQLを使用したサイトリポジトリ。
type PostgresSiteRepo struct {
	db *sql.DB
}

// NewPostgresSiteRepo はPostgresSiteRepoを生成する。
func NewPostgresSiteRepo(db *sql.DB) *PostgresSiteRepo {
	return &PostgresSiteRepo{db: db}
}

const siteSelectColumns = `
	s.id, s.name, s.base_url, s.site_type, s.check_interval_minutes,
	s.is_active, s.created_at, s.updated_at,
	p.id, p.listing_item_selector, p.title_selector, p.price_selector,
	p.url_selector, p.date_selector, p.listing_id_selector,
	p.selector_syntax, p.encoding`

// FindByID は指定IDのサイトをParserConfig込みで取得する。見つからない場合はnilを返す。
func (r *PostgresSiteRepo) FindByID(ctx context.Context, id string) (*model.Site, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+siteSelectColumns+`
		 FROM sites s
		 LEFT JOIN site_parser_configs p ON p.site_id = s.id
		 WHERE s.id = $1`,
		id,
	)

	site, err := scanSite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("サイトの取得に失敗しました: %w", err)
	}

	return site, nil
}

// ListActive はアクティブなサイトの一覧をParserConfig込みで返す。
func (r *PostgresSiteRepo) ListActive(ctx context.Context) ([]*model.Site, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+siteSelectColumns+`
		 FROM sites s
		 LEFT JOIN site_parser_configs p ON p.site_id = s.id
		 WHERE s.is_active = TRUE
		 ORDER BY s.created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("アクティブサイトの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var sites []*model.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("サイト行のスキャンに失敗しました: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("サイト行の走査に失敗しました: %w", err)
	}

	return sites, nil
}

// rowScanner はsql.Rowとsql.Rowsの共通スキャンインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSite はサイト行をLEFT JOINされたParserConfig込みでスキャンする。
func scanSite(row rowScanner) (*model.Site, error) {
	site := &model.Site{}
	var configID, itemSel, titleSel, priceSel, urlSel, dateSel, idSel, syntax, encoding sql.NullString

	err := row.Scan(
		&site.ID, &site.Name, &site.BaseURL, &site.SiteType, &site.CheckIntervalMinutes,
		&site.IsActive, &site.CreatedAt, &site.UpdatedAt,
		&configID, &itemSel, &titleSel, &priceSel,
		&urlSel, &dateSel, &idSel,
		&syntax, &encoding,
	)
	if err != nil {
		return nil, err
	}

	if configID.Valid {
		site.ParserConfig = &model.SiteParserConfig{
			ID:                  configID.String,
			SiteID:              site.ID,
			ListingItemSelector: itemSel.String,
			TitleSelector:       titleSel.String,
			PriceSelector:       priceSel.String,
			URLSelector:         urlSel.String,
			DateSelector:        dateSel.String,
			ListingIDSelector:   idSel.String,
			SelectorSyntax:      model.SelectorSyntax(syntax.String),
			Encoding:            encoding.String,
		}
	}

	return site, nil
}
