package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/hitoshi/listingwatch/internal/model"
)

const (
	// manualMaxPages はページネーション走査の上限。無限ループの安全弁。
	manualMaxPages = 25

	// manualMaxTextLength は抽出テキストの最大長。超過分は省略記号に置換される。
	manualMaxTextLength = 500
)

var (
	// elemanIDPattern はeleman.net形式のURL末尾ID（例: teknik-personel-i4555881）。
	elemanIDPattern = regexp.MustCompile(`-i(\d+)$`)

	syParamPattern = regexp.MustCompile(`sy=(\d+)`)
)

// ManualAdapter はParserConfigのセレクタ設定で駆動する汎用アダプタ。
// 専用アダプタを持たないサイトは、管理者が一覧アイテム・タイトル・価格・URLの
// セレクタを登録することでスクレイピング対象にできる。
type ManualAdapter struct {
	client *Client
	logger *slog.Logger
	site   *model.Site

	itemXPath  string
	titleXPath string
	priceXPath string
	urlXPath   string
	dateXPath  string
	idXPath    string
	encoding   string
}

// NewManualAdapter は設定を検証してManualAdapterを生成する。
// ParserConfig未設定はConfigError、サポート外のCSSセレクタはSelectorErrorを返す。
func NewManualAdapter(client *Client, logger *slog.Logger, site *model.Site) (*ManualAdapter, error) {
	cfg := site.ParserConfig
	if cfg == nil {
		return nil, model.NewMissingParserConfigError(site)
	}
	if strings.TrimSpace(cfg.ListingItemSelector) == "" {
		return nil, &model.ConfigError{
			SiteID:   site.ID,
			SiteName: site.Name,
			Reason:   "一覧アイテムのセレクタが未設定です",
		}
	}

	a := &ManualAdapter{
		client:   client,
		logger:   logger,
		site:     site,
		encoding: cfg.Encoding,
	}

	var err error
	if a.itemXPath, err = toXPath(cfg.ListingItemSelector, cfg.SelectorSyntax); err != nil {
		return nil, err
	}
	if a.titleXPath, err = toXPath(cfg.TitleSelector, cfg.SelectorSyntax); err != nil {
		return nil, err
	}
	if a.priceXPath, err = toXPath(cfg.PriceSelector, cfg.SelectorSyntax); err != nil {
		return nil, err
	}
	if a.urlXPath, err = toXPath(cfg.URLSelector, cfg.SelectorSyntax); err != nil {
		return nil, err
	}
	if a.dateXPath, err = toXPath(cfg.DateSelector, cfg.SelectorSyntax); err != nil {
		return nil, err
	}
	if a.idXPath, err = toXPath(cfg.ListingIDSelector, cfg.SelectorSyntax); err != nil {
		return nil, err
	}

	return a, nil
}

// SourceName はソース識別子としてサイト名を返す。
func (a *ManualAdapter) SourceName() string { return a.site.Name }

// BaseURL は抽出の起点URLを返す。
func (a *ManualAdapter) BaseURL() string { return a.site.BaseURL }

// Scrape はセレクタ設定に従い、ページネーションを辿りながら抽出する。
// ページが1件も有効なリスティングを返さなくなるか、次ページの手がかりが
// 消えるか、上限ページ数に達した時点で走査を打ち切る。
func (a *ManualAdapter) Scrape(ctx context.Context) ([]model.ScrapedListing, error) {
	var listings []model.ScrapedListing

	for page := 1; page <= manualMaxPages; page++ {
		pageURL := a.buildPageURL(page)

		pageHTML, err := a.client.FetchHTML(ctx, pageURL, a.encoding)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("手動サイトの1ページ目取得に失敗 (%s): %w", a.site.Name, err)
			}
			// 2ページ目以降の取得失敗は走査を打ち切り、取得済み分を返す
			a.logger.Warn("ページ取得に失敗したため走査を打ち切ります",
				slog.String("site", a.site.Name),
				slog.Int("page", page),
				slog.String("error", err.Error()),
			)
			break
		}

		doc, err := htmlquery.Parse(strings.NewReader(pageHTML))
		if err != nil {
			a.logger.Warn("HTML解析に失敗しました",
				slog.String("site", a.site.Name),
				slog.Int("page", page),
				slog.String("error", err.Error()),
			)
			break
		}

		nodes, err := htmlquery.QueryAll(doc, a.itemXPath)
		if err != nil {
			return nil, &model.SelectorError{Selector: a.itemXPath, Reason: err.Error()}
		}
		if len(nodes) == 0 {
			a.logger.Info("一覧アイテムが見つからないため走査を終了します",
				slog.String("site", a.site.Name),
				slog.Int("page", page),
			)
			break
		}

		pageListings := a.extractNodes(nodes)
		if len(pageListings) == 0 {
			a.logger.Info("有効なリスティングが見つからないため走査を終了します",
				slog.String("site", a.site.Name),
				slog.Int("page", page),
			)
			break
		}
		listings = append(listings, pageListings...)

		if !a.hasNextPage(doc, page) {
			break
		}
	}

	a.logger.Info("手動サイトのスクレイピングが完了しました",
		slog.String("site", a.site.Name),
		slog.Int("count", len(listings)),
	)
	return listings, nil
}

// extractNodes は一覧アイテムノード群からリスティングを抽出する。
// アイテム単位の抽出失敗はスキップする。
func (a *ManualAdapter) extractNodes(nodes []*html.Node) []model.ScrapedListing {
	var listings []model.ScrapedListing
	for _, node := range nodes {
		listingURL := a.extractURL(node)
		title := cleanText(a.extractText(node, a.titleXPath))
		if listingURL == "" || title == "" {
			continue
		}

		listing := model.ScrapedListing{
			Source:     a.site.Name,
			ExternalID: a.deriveExternalID(node, listingURL),
			Title:      title,
			URL:        listingURL,
			Price:      ParsePrice(a.extractText(node, a.priceXPath)),
		}

		if a.dateXPath != "" {
			if t := parseListingDate(a.extractText(node, a.dateXPath)); t != nil {
				listing.CreatedAtOnSite = t
			}
		}

		listings = append(listings, listing)
	}
	return listings
}

// deriveExternalID はIDセレクタ、URL末尾の数値ID、URLハッシュの順でIDを導出する。
func (a *ManualAdapter) deriveExternalID(node *html.Node, listingURL string) string {
	if a.idXPath != "" {
		if id := strings.TrimSpace(a.extractText(node, a.idXPath)); id != "" {
			return id
		}
	}
	if m := elemanIDPattern.FindStringSubmatch(listingURL); m != nil {
		return "eleman_" + m[1]
	}
	return "url_" + hashID(listingURL)
}

// extractText はノードを基点にセレクタでテキストを抽出する。失敗は空文字列。
func (a *ManualAdapter) extractText(node *html.Node, xpath string) string {
	if xpath == "" {
		return ""
	}
	target, err := htmlquery.Query(node, relativeXPath(xpath))
	if err != nil || target == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(target))
}

// extractURL はURLセレクタで特定した要素のhref属性を絶対URLに解決して返す。
func (a *ManualAdapter) extractURL(node *html.Node) string {
	if a.urlXPath == "" {
		return ""
	}
	target, err := htmlquery.Query(node, relativeXPath(a.urlXPath))
	if err != nil || target == nil {
		return ""
	}
	return resolveURL(a.site.BaseURL, htmlquery.SelectAttr(target, "href"))
}

// buildPageURL はサイト固有のページパラメータを付与したURLを組み立てる。
// eleman.netは「sy=」、それ以外は一般的な「page=」を使う。
func (a *ManualAdapter) buildPageURL(page int) string {
	param := "page"
	if strings.Contains(a.site.BaseURL, "eleman.net") {
		param = "sy"
	}
	return pageParamURL(a.site.BaseURL, param, page)
}

// hasNextPage は次ページの存在をヒューリスティックで判定する。
// 現在ページより大きいページ番号のリンク、または「次へ」系のアンカーがあれば真。
func (a *ManualAdapter) hasNextPage(doc *html.Node, currentPage int) bool {
	anchors, err := htmlquery.QueryAll(doc, "//a[@href]")
	if err != nil {
		return false
	}

	for _, anchor := range anchors {
		href := htmlquery.SelectAttr(anchor, "href")

		for _, pattern := range []*regexp.Regexp{syParamPattern, pageParamPattern} {
			if m := pattern.FindStringSubmatch(href); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n > currentPage {
					return true
				}
			}
		}

		text := strings.ToLower(strings.TrimSpace(htmlquery.InnerText(anchor)))
		class := strings.ToLower(htmlquery.SelectAttr(anchor, "class"))
		if strings.Contains(text, "next") || strings.Contains(text, "sonraki") || strings.Contains(class, "next") {
			return true
		}
	}

	return false
}

// IsAvailable は起点URLの応答可否を返す。
func (a *ManualAdapter) IsAvailable(ctx context.Context) bool {
	return a.client.CheckAvailable(ctx, a.site.BaseURL)
}

// relativeXPath は「//」始まりの式をノード基点の相対式に変換する。
// 文書ルートではなく一覧アイテム配下を検索させるために必要。
func relativeXPath(xpath string) string {
	if strings.HasPrefix(xpath, "//") {
		return "." + xpath
	}
	return xpath
}

// cleanText は連続空白を畳み込み、長すぎるテキストを省略記号付きで切り詰める。
func cleanText(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) > manualMaxTextLength {
		return string(runes[:manualMaxTextLength-3]) + "..."
	}
	return collapsed
}

// parseListingDate はサイト上の掲載日表記を解釈する。解釈不能はnil。
func parseListingDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	layouts := []string{"02.01.2006", "2006-01-02", "02/01/2006"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
