// Package rule は通知ルールと新着リスティングの照合を行う。
package rule

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/listingwatch/internal/model"
)

// minKeywordLength はキーワードトークンの最小長。
// 1文字トークンはほぼすべてのタイトルに一致してしまうため弾く。
const minKeywordLength = 2

// Matcher はルールの各条件をAND結合で評価する。
// 各条件は任意であり、未設定の条件は常に成立として扱われる。
type Matcher struct {
	// newListingWindow はOnlyNewListings条件の判定窓。
	// FirstSeenAtが評価時刻からこの時間以内のリスティングだけが「新着」となる。
	newListingWindow time.Duration
}

// NewMatcher はMatcherを生成する。
func NewMatcher(newListingWindow time.Duration) *Matcher {
	return &Matcher{newListingWindow: newListingWindow}
}

// Matches はリスティングがルールの全条件を満たすかを返す。
// 条件は サイトスコープ → 新着窓 → 価格帯 → 都市 → キーワード の順に評価される。
func (m *Matcher) Matches(r *model.AlertRule, listing *model.Listing) bool {
	return m.MatchesAt(r, listing, time.Now())
}

// MatchesAt は評価時刻を指定して照合する。テストからの決定的な評価に使う。
func (m *Matcher) MatchesAt(r *model.AlertRule, listing *model.Listing, now time.Time) bool {
	// サイトスコープ
	if r.SiteID != "" && r.SiteID != listing.SiteID {
		return false
	}

	// 新着窓
	if r.OnlyNewListings && listing.FirstSeenAt.Before(now.Add(-m.newListingWindow)) {
		return false
	}

	// 価格帯。価格未設定のリスティングは0として評価し、境界値は含む
	price := decimal.Zero
	if listing.Price != nil {
		price = *listing.Price
	}
	if r.MinPrice != nil && price.LessThan(*r.MinPrice) {
		return false
	}
	if r.MaxPrice != nil && price.GreaterThan(*r.MaxPrice) {
		return false
	}

	// 都市。リスティング側に都市情報がない場合は判定しない
	if r.City != "" && listing.City != "" {
		if !strings.Contains(strings.ToLower(listing.City), strings.ToLower(r.City)) {
			return false
		}
	}

	// キーワード。いずれかのトークンがタイトルまたは企業名に単語として現れること
	tokens := SplitKeywords(r.Keywords)
	if len(tokens) > 0 {
		haystack := strings.ToLower(listing.Title + " " + listing.Company)
		matched := false
		for _, token := range tokens {
			if containsWholeWord(haystack, token) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// Validate はルールが少なくとも1つの条件を持つことを検証する。
func (m *Matcher) Validate(r *model.AlertRule) error {
	return Validate(r)
}

// Validate はルールが少なくとも1つの条件を持つことを検証する。
// 条件が1つもないルールは全リスティングに一致するため設定ミスとみなす。
func Validate(r *model.AlertRule) error {
	if r.SiteID == "" && len(SplitKeywords(r.Keywords)) == 0 &&
		r.MinPrice == nil && r.MaxPrice == nil && r.City == "" && !r.OnlyNewListings {
		return errors.New("有効な条件が1つも設定されていません")
	}
	return nil
}

// SplitKeywords はカンマ区切りのキーワード文字列を正規化済みトークンに分解する。
// 各トークンは前後の空白を除去して小文字化され、短すぎるものは捨てられる。
func SplitKeywords(keywords string) []string {
	if strings.TrimSpace(keywords) == "" {
		return nil
	}

	var tokens []string
	for _, part := range strings.Split(keywords, ",") {
		token := strings.ToLower(strings.TrimSpace(part))
		if utf8.RuneCountInString(token) >= minKeywordLength {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// containsWholeWord はtokenがtext中に単語境界つきで現れるかを返す。
// 部分文字列一致では「burs」が「Bursa」にも一致してしまうため、
// 一致位置の前後が文字・数字でないことを確認する。
// Goのregexpの\bはASCII前提でトルコ語の文字を単語構成文字として扱わないため、
// ルーン単位の境界判定を自前で行う。
func containsWholeWord(text, token string) bool {
	if token == "" {
		return false
	}

	offset := 0
	for {
		idx := strings.Index(text[offset:], token)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(token)

		if isBoundary(text, start, end) {
			return true
		}
		offset = start + 1
	}
}

// isBoundary は一致区間 [start, end) の両端が単語境界かを判定する。
func isBoundary(text string, start, end int) bool {
	if start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(prev) {
			return false
		}
	}
	if end < len(text) {
		next, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(next) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
