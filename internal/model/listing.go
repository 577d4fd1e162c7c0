// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScrapedListing はアダプタが抽出した未保存の求人・奨学金情報を表す。
// 差分検出エンジンに渡され、新規と判定されたものだけがListingとして永続化される。
type ScrapedListing struct {
	Source          string // 取得元サイト名（例: "youthall", "microfon"）
	ExternalID      string // サイト内で一意なID（サイトIDまたはURLハッシュ）
	Title           string
	Company         string
	URL             string
	Price           *decimal.Decimal
	City            string
	Description     string
	ListingType     string // "job" | "scholarship"
	CreatedAtOnSite *time.Time
}

// Listing は永続化された求人・奨学金情報を表す。
// (SiteID, ExternalID) の組が重複排除キーであり、一意制約で保護される。
type Listing struct {
	ID              string
	SiteID          string
	ExternalID      string
	Title           string
	Company         string
	Price           *decimal.Decimal
	URL             string
	City            string
	CreatedAtOnSite *time.Time
	FirstSeenAt     time.Time
	LastSeenAt      time.Time
	IsActive        bool
}
