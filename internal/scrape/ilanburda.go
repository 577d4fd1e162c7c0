package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/listingwatch/internal/model"
)

const (
	ilanburdaSourceName     = "ilanburda"
	ilanburdaDefaultBaseURL = "https://www.ilanburda.net/8/is-ilanlari"
)

// IlanburdaAdapter はilanburda.netの求人一覧をスクレイピングする。
// 一覧はテーブル行（tr.satir_link）で構成され、URLはdata-href属性、
// タイトル・価格・地域は行内の固定クラスの要素から抽出する。
type IlanburdaAdapter struct {
	client  *Client
	logger  *slog.Logger
	baseURL string
}

// NewIlanburdaAdapter はIlanburdaAdapterを生成する。
// baseURLが空の場合は本番サイトのURLを使用する。
func NewIlanburdaAdapter(client *Client, logger *slog.Logger, baseURL string) *IlanburdaAdapter {
	if baseURL == "" {
		baseURL = ilanburdaDefaultBaseURL
	}
	return &IlanburdaAdapter{client: client, logger: logger, baseURL: baseURL}
}

// SourceName はソース識別子を返す。
func (a *IlanburdaAdapter) SourceName() string { return ilanburdaSourceName }

// BaseURL は抽出の起点URLを返す。
func (a *IlanburdaAdapter) BaseURL() string { return a.baseURL }

// Scrape は一覧ページのテーブル行からリスティングを抽出する。
// 行単位の抽出失敗はスキップし、部分的な結果を返す。
func (a *IlanburdaAdapter) Scrape(ctx context.Context) ([]model.ScrapedListing, error) {
	pageHTML, err := a.client.FetchHTML(ctx, a.baseURL, "")
	if err != nil {
		return nil, fmt.Errorf("ilanburdaのページ取得に失敗: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("ilanburdaのHTML解析に失敗: %w", err)
	}

	var listings []model.ScrapedListing
	doc.Find("tr.satir_link").Each(func(_ int, row *goquery.Selection) {
		listing, ok := a.extractRow(row)
		if ok {
			listings = append(listings, listing)
		}
	})

	a.logger.Info("ilanburdaのスクレイピングが完了しました", slog.Int("count", len(listings)))
	return listings, nil
}

// extractRow はテーブル行1件からリスティングを抽出する。
func (a *IlanburdaAdapter) extractRow(row *goquery.Selection) (model.ScrapedListing, bool) {
	rawURL, _ := row.Attr("data-href")
	if rawURL == "" {
		return model.ScrapedListing{}, false
	}

	title := strings.TrimSpace(row.Find("span.baslik").First().Text())
	if title == "" {
		return model.ScrapedListing{}, false
	}

	price := ParsePrice(row.Find("td.fiyat").First().Text())
	city := a.extractCity(row)

	id := extractNumericSuffix(rawURL)
	if id == "" {
		id = hashID(rawURL)
	}

	absURL := resolveURL(a.baseURL, rawURL)
	if absURL == "" {
		return model.ScrapedListing{}, false
	}

	return model.ScrapedListing{
		Source:      ilanburdaSourceName,
		ExternalID:  fmt.Sprintf("%s_%s", ilanburdaSourceName, id),
		Title:       title,
		Price:       price,
		URL:         absURL,
		City:        city,
		ListingType: "job",
	}, true
}

// extractCity は行内のil_ilce要素から「県/郡」形式の地域文字列を組み立てる。
func (a *IlanburdaAdapter) extractCity(row *goquery.Selection) string {
	spans := row.Find("div.il_ilce span")
	region := strings.TrimSpace(spans.Eq(0).Text())
	district := strings.TrimSpace(spans.Eq(1).Text())

	if district != "" {
		return region + "/" + district
	}
	return region
}

// extractNumericSuffix はURL末尾のスラッグから数値IDを抜き出す。
// 例: /rehber-ogretmeni-1650 -> "1650"。数値でない場合は空文字列。
func extractNumericSuffix(rawURL string) string {
	lastDash := strings.LastIndex(rawURL, "-")
	if lastDash <= 0 {
		return ""
	}

	suffix := rawURL[lastDash+1:]
	if _, err := strconv.Atoi(suffix); err != nil {
		return ""
	}
	return suffix
}

// IsAvailable は起点URLの応答可否を返す。
func (a *IlanburdaAdapter) IsAvailable(ctx context.Context) bool {
	return a.client.CheckAvailable(ctx, a.baseURL)
}
