// Package model はドメインモデルを定義する。
package model

import "time"

// SiteType はサイトのスクレイピング方式を表す。
type SiteType string

const (
	// SiteTypeAuto は専用アダプタでスクレイピングするサイト。
	SiteTypeAuto SiteType = "auto"
	// SiteTypeManual はユーザー定義のセレクタ設定でスクレイピングするサイト。
	SiteTypeManual SiteType = "manual"
)

// SelectorSyntax はSiteParserConfigのセレクタ記法を表す。
type SelectorSyntax string

const (
	// SelectorSyntaxCSS はCSSセレクタ記法。
	SelectorSyntaxCSS SelectorSyntax = "css"
	// SelectorSyntaxXPath はXPath記法。
	SelectorSyntaxXPath SelectorSyntax = "xpath"
)

// Site は監視対象の外部求人・奨学金サイトを表す。
type Site struct {
	ID                   string
	Name                 string
	BaseURL              string
	SiteType             SiteType
	CheckIntervalMinutes int // 0の場合はグローバル設定のスイープ間隔を使用
	IsActive             bool
	ParserConfig         *SiteParserConfig // SiteTypeManualの場合は必須
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SiteParserConfig はManualサイト用のセレクタ設定を表す。
type SiteParserConfig struct {
	ID                  string
	SiteID              string
	ListingItemSelector string
	TitleSelector       string
	PriceSelector       string
	URLSelector         string
	DateSelector        string
	ListingIDSelector   string
	SelectorSyntax      SelectorSyntax
	Encoding            string // 例: "utf-8", "windows-1254"
}
