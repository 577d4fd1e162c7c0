package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hitoshi/listingwatch/internal/model"
)

const (
	youthallSourceName     = "youthall"
	youthallDefaultBaseURL = "https://www.youthall.com/tr/talent-programs/"

	// youthallMaxPages はページネーション走査の上限。
	youthallMaxPages = 18
)

// pageParamPattern はページネーションリンクからページ番号を抜き出す。
var pageParamPattern = regexp.MustCompile(`page=(\d+)`)

// YouthallAdapter はyouthall.comのタレントプログラム一覧をスクレイピングする。
// 一覧はアンカー「カード」（画像を含むaタグ）の並びで構成され、
// カード内のテキストノードが位置順に 企業名・タイトル・説明 を表す。
type YouthallAdapter struct {
	client  *Client
	logger  *slog.Logger
	baseURL string
}

// NewYouthallAdapter はYouthallAdapterを生成する。
// baseURLが空の場合は本番サイトのURLを使用する。
func NewYouthallAdapter(client *Client, logger *slog.Logger, baseURL string) *YouthallAdapter {
	if baseURL == "" {
		baseURL = youthallDefaultBaseURL
	}
	return &YouthallAdapter{client: client, logger: logger, baseURL: baseURL}
}

// SourceName はソース識別子を返す。
func (a *YouthallAdapter) SourceName() string { return youthallSourceName }

// BaseURL は抽出の起点URLを返す。
func (a *YouthallAdapter) BaseURL() string { return a.baseURL }

// Scrape は1ページ目からページ総数を検出し、上限ページ数まで順に抽出する。
// ページ単位・カード単位のエラーはログに記録してスキップする。
func (a *YouthallAdapter) Scrape(ctx context.Context) ([]model.ScrapedListing, error) {
	firstPage, err := a.client.FetchHTML(ctx, a.baseURL, "")
	if err != nil {
		return nil, fmt.Errorf("youthallの1ページ目取得に失敗: %w", err)
	}

	totalPages := a.detectTotalPages(firstPage)
	if totalPages > youthallMaxPages {
		totalPages = youthallMaxPages
	}
	a.logger.Info("youthallのページ総数を検出しました", slog.Int("total_pages", totalPages))

	var listings []model.ScrapedListing
	for page := 1; page <= totalPages; page++ {
		pageHTML := firstPage
		if page > 1 {
			pageURL := pageParamURL(a.baseURL, "page", page)
			pageHTML, err = a.client.FetchHTML(ctx, pageURL, "")
			if err != nil {
				a.logger.Warn("youthallのページ取得に失敗しました",
					slog.Int("page", page),
					slog.String("error", err.Error()),
				)
				continue
			}
		}

		pageListings, err := a.extractPage(pageHTML)
		if err != nil {
			a.logger.Warn("youthallのページ解析に失敗しました",
				slog.Int("page", page),
				slog.String("error", err.Error()),
			)
			continue
		}
		listings = append(listings, pageListings...)
	}

	a.logger.Info("youthallのスクレイピングが完了しました", slog.Int("count", len(listings)))
	return listings, nil
}

// detectTotalPages はページネーションリンクの最大page番号を返す。検出失敗時は1。
func (a *YouthallAdapter) detectTotalPages(pageHTML string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return 1
	}

	maxPage := 1
	doc.Find(`a[href*="?page="], a[href*="&page="]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		m := pageParamPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > maxPage {
			maxPage = n
		}
	})

	return maxPage
}

// extractPage は1ページ分のHTMLからカードを抽出する。
func (a *YouthallAdapter) extractPage(pageHTML string) ([]model.ScrapedListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("HTML解析に失敗: %w", err)
	}

	var listings []model.ScrapedListing
	doc.Find(`a[href*="/tr/"]:has(img)`).Each(func(_ int, card *goquery.Selection) {
		listing, ok := a.extractCard(card)
		if ok {
			listings = append(listings, listing)
		}
	})

	return listings, nil
}

// extractCard はアンカーカード1枚からリスティングを抽出する。
// テキストノードの並び順 [企業名, タイトル, 説明...] に依存する。
func (a *YouthallAdapter) extractCard(card *goquery.Selection) (model.ScrapedListing, bool) {
	href, _ := card.Attr("href")
	if strings.TrimSpace(href) == "" || !strings.Contains(href, "/tr/") {
		return model.ScrapedListing{}, false
	}

	texts := collectTextNodes(card.Nodes[0])
	if len(texts) < 2 {
		return model.ScrapedListing{}, false
	}

	company := texts[0]
	title := texts[1]
	description := ""
	if len(texts) > 2 {
		description = strings.Join(texts[2:], " | ")
	}

	absURL := resolveURL(a.baseURL, href)
	if absURL == "" {
		return model.ScrapedListing{}, false
	}

	return model.ScrapedListing{
		Source:      youthallSourceName,
		ExternalID:  fmt.Sprintf("%s_%s", youthallSourceName, hashURLPathID(absURL)),
		Title:       title,
		Company:     company,
		URL:         absURL,
		Description: description,
		ListingType: "job",
	}, true
}

// IsAvailable は起点URLの応答可否を返す。
func (a *YouthallAdapter) IsAvailable(ctx context.Context) bool {
	return a.client.CheckAvailable(ctx, a.baseURL)
}

// collectTextNodes はノード配下の空白でないテキストノードを文書順に収集する。
func collectTextNodes(n *html.Node) []string {
	var texts []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			if text := strings.TrimSpace(node.Data); text != "" {
				texts = append(texts, strings.Join(strings.Fields(text), " "))
			}
			return
		}
		if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return texts
}
