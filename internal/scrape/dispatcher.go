package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/listingwatch/internal/model"
)

// TextCleaner は抽出テキストの正規化処理のインターフェース。
type TextCleaner interface {
	Clean(raw string) string
}

// URLValidator は取得前のURL静的検証のインターフェース。
// 内部ネットワークを指すURLが設定されたサイトを最初のフェッチ前に弾く。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Dispatcher はサイト設定に応じて適切なアダプタを選択し、抽出を実行する。
type Dispatcher struct {
	client    *Client
	sanitizer TextCleaner
	validator URLValidator
	logger    *slog.Logger
}

// NewDispatcher はDispatcherを生成する。
func NewDispatcher(client *Client, sanitizer TextCleaner, validator URLValidator, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{client: client, sanitizer: sanitizer, validator: validator, logger: logger}
}

// Dispatch はサイトに対応するアダプタを選択してスクレイピングを実行し、
// 抽出フィールドをサニタイズして返す。
// Autoサイトで専用アダプタが見つからない場合は空リストを返す。
// ManualサイトでParserConfigが未設定の場合はConfigErrorを返す。
func (d *Dispatcher) Dispatch(ctx context.Context, site *model.Site) ([]model.ScrapedListing, error) {
	if err := d.validateBaseURL(site); err != nil {
		return nil, err
	}

	adapter, err := d.adapterFor(site)
	if err != nil {
		return nil, err
	}
	if adapter == nil {
		d.logger.Warn("対応するアダプタが見つかりません",
			slog.String("site_id", site.ID),
			slog.String("site_name", site.Name),
			slog.String("base_url", site.BaseURL),
		)
		return nil, nil
	}

	listings, err := adapter.Scrape(ctx)
	if err != nil {
		return nil, err
	}

	for i := range listings {
		listings[i].Title = d.sanitizer.Clean(listings[i].Title)
		listings[i].Company = d.sanitizer.Clean(listings[i].Company)
		listings[i].City = d.sanitizer.Clean(listings[i].City)
		listings[i].Description = d.sanitizer.Clean(listings[i].Description)
	}

	return listings, nil
}

// CheckAvailable はサイトに対応するアダプタの起点URLが応答可能かを返す。
// アダプタの選択に失敗した場合（Manualサイトの設定不備など）はそのエラーを返し、
// 対応するアダプタがないAutoサイトはfalseを返す。
func (d *Dispatcher) CheckAvailable(ctx context.Context, site *model.Site) (bool, error) {
	if err := d.validateBaseURL(site); err != nil {
		return false, err
	}

	adapter, err := d.adapterFor(site)
	if err != nil {
		return false, err
	}
	if adapter == nil {
		return false, nil
	}
	return adapter.IsAvailable(ctx), nil
}

// validateBaseURL はサイトの起点URLを静的に検証する。validator未設定の場合は何もしない。
func (d *Dispatcher) validateBaseURL(site *model.Site) error {
	if d.validator == nil {
		return nil
	}
	if err := d.validator.ValidateURL(site.BaseURL); err != nil {
		return fmt.Errorf("サイトの起点URLが不正です (site=%s): %w", site.Name, err)
	}
	return nil
}

// adapterFor はサイトに対応するアダプタを返す。該当なしは (nil, nil)。
func (d *Dispatcher) adapterFor(site *model.Site) (Adapter, error) {
	if site.SiteType == model.SiteTypeManual {
		return NewManualAdapter(d.client, d.logger, site)
	}

	// サイト名またはURLとの大文字小文字を無視した部分一致で専用アダプタを選ぶ
	key := strings.ToLower(site.Name + " " + site.BaseURL)
	switch {
	case strings.Contains(key, youthallSourceName):
		return NewYouthallAdapter(d.client, d.logger, site.BaseURL), nil
	case strings.Contains(key, microfonSourceName):
		return NewMicrofonAdapter(d.client, d.logger, site.BaseURL), nil
	case strings.Contains(key, ilanburdaSourceName):
		return NewIlanburdaAdapter(d.client, d.logger, site.BaseURL), nil
	case strings.Contains(key, bursverenlerSourceName):
		return NewBursverenlerAdapter(d.client, d.logger, site.BaseURL), nil
	case looksLikeFeedURL(site.BaseURL):
		return NewFeedAdapter(d.client, d.logger, strings.ToLower(site.Name), site.BaseURL), nil
	}

	return nil, nil
}

// looksLikeFeedURL はURLがRSS/Atomフィードを指していそうかを判定する。
func looksLikeFeedURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasSuffix(lower, ".xml") ||
		strings.HasSuffix(lower, ".rss") ||
		strings.Contains(lower, "/rss") ||
		strings.Contains(lower, "/feed")
}
