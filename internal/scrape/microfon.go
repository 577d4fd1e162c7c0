package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hitoshi/listingwatch/internal/model"
)

const (
	microfonSourceName     = "microfon"
	microfonDefaultBaseURL = "https://microfon.co/scholarship"

	// microfonDefaultCompany は提供元が不明な奨学金に付与する企業名。
	microfonDefaultCompany = "Microfon Topluluğu"
)

// microfonNextData はNext.jsがページに埋め込むJSONペイロードの必要部分。
// 広告1件のデコード失敗を他の件に波及させないため、配列要素はRawMessageで保持する。
type microfonNextData struct {
	Props struct {
		PageProps struct {
			SSRAds []json.RawMessage `json:"ssrAds"`
		} `json:"pageProps"`
	} `json:"props"`
}

// microfonAd は奨学金1件分のJSON表現。
type microfonAd struct {
	FormID             string `json:"formId"`
	FormIdentityNumber string `json:"formIdentityNumber"`
	Title              string `json:"title"`
	Company            string `json:"company"`
	Explanation        string `json:"explanation"`
	Amount             string `json:"amount"`
	DueDate            string `json:"dueDate"`
	Currency           struct {
		Name string `json:"name"`
	} `json:"currency"`
	Tags []string `json:"tags"`
}

// MicrofonAdapter はmicrofon.coの奨学金一覧をスクレイピングする。
// 一覧データはscriptタグ内の__NEXT_DATA__ JSONに埋め込まれており、
// JSONの取得に失敗した場合のみDOMリンク走査にフォールバックする。
type MicrofonAdapter struct {
	client  *Client
	logger  *slog.Logger
	baseURL string
}

// NewMicrofonAdapter はMicrofonAdapterを生成する。
// baseURLが空の場合は本番サイトのURLを使用する。
func NewMicrofonAdapter(client *Client, logger *slog.Logger, baseURL string) *MicrofonAdapter {
	if baseURL == "" {
		baseURL = microfonDefaultBaseURL
	}
	return &MicrofonAdapter{client: client, logger: logger, baseURL: baseURL}
}

// SourceName はソース識別子を返す。
func (a *MicrofonAdapter) SourceName() string { return microfonSourceName }

// BaseURL は抽出の起点URLを返す。
func (a *MicrofonAdapter) BaseURL() string { return a.baseURL }

// Scrape は__NEXT_DATA__ JSONから奨学金一覧を抽出する。
// JSONが見つからない、またはパースに失敗した場合はDOM走査にフォールバックし、
// どちらの戦略でもエラーを投げずに得られた分だけを返す。
func (a *MicrofonAdapter) Scrape(ctx context.Context) ([]model.ScrapedListing, error) {
	pageHTML, err := a.client.FetchHTML(ctx, a.baseURL, "")
	if err != nil {
		return nil, fmt.Errorf("microfonのページ取得に失敗: %w", err)
	}

	rawJSON, found := findNextDataScript(pageHTML)
	if found {
		listings, err := a.extractFromJSON(rawJSON)
		if err == nil {
			a.logger.Info("microfonのスクレイピングが完了しました",
				slog.String("strategy", "json"),
				slog.Int("count", len(listings)),
			)
			return listings, nil
		}
		a.logger.Warn("microfonの__NEXT_DATA__解析に失敗しました、DOM走査にフォールバックします",
			slog.String("error", err.Error()),
		)
	} else {
		a.logger.Warn("microfonの__NEXT_DATA__が見つかりません、DOM走査にフォールバックします")
	}

	listings := a.extractFromDOM(pageHTML)
	a.logger.Info("microfonのスクレイピングが完了しました",
		slog.String("strategy", "dom"),
		slog.Int("count", len(listings)),
	)
	return listings, nil
}

// findNextDataScript はHTMLから id="__NEXT_DATA__" のscriptタグ本文を探す。
func findNextDataScript(pageHTML string) (string, bool) {
	z := html.NewTokenizer(strings.NewReader(pageHTML))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "script" {
				continue
			}
			isNextData := false
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "id" && string(val) == "__NEXT_DATA__" {
					isNextData = true
				}
			}
			if !isNextData {
				continue
			}
			if z.Next() == html.TextToken {
				return string(z.Text()), true
			}
			return "", false
		}
	}
}

// extractFromJSON は__NEXT_DATA__のssrAds配列をリスティングに変換する。
// 1件単位のデコード失敗はログに記録してスキップする。
func (a *MicrofonAdapter) extractFromJSON(rawJSON string) ([]model.ScrapedListing, error) {
	var data microfonNextData
	if err := json.Unmarshal([]byte(rawJSON), &data); err != nil {
		return nil, fmt.Errorf("__NEXT_DATA__のデコードに失敗: %w", err)
	}

	var listings []model.ScrapedListing
	seen := make(map[string]bool)
	for _, raw := range data.Props.PageProps.SSRAds {
		var ad microfonAd
		if err := json.Unmarshal(raw, &ad); err != nil {
			a.logger.Warn("microfonの広告デコードに失敗しました", slog.String("error", err.Error()))
			continue
		}
		if strings.TrimSpace(ad.FormID) == "" || strings.TrimSpace(ad.Title) == "" {
			continue
		}

		externalID := fmt.Sprintf("%s_%s", microfonSourceName, ad.FormID)
		if seen[externalID] {
			continue
		}
		seen[externalID] = true

		listings = append(listings, a.adToListing(ad, externalID))
	}

	return listings, nil
}

// adToListing は広告1件をリスティングに写像する。
func (a *MicrofonAdapter) adToListing(ad microfonAd, externalID string) model.ScrapedListing {
	company := ad.Company
	if strings.TrimSpace(company) == "" {
		company = microfonDefaultCompany
	}

	description := ad.Explanation
	if strings.TrimSpace(description) == "" {
		description = strings.Join(a.adDetails(ad), " | ")
	}

	idPart := ad.FormIdentityNumber
	if idPart == "" {
		idPart = ad.FormID
	}

	return model.ScrapedListing{
		Source:      microfonSourceName,
		ExternalID:  externalID,
		Title:       ad.Title,
		Company:     company,
		URL:         strings.TrimRight(a.baseURL, "/") + "/" + idPart,
		Description: description,
		ListingType: "scholarship",
	}
}

// adDetails は説明文がない広告向けに金額・締切・タグから要約を組み立てる。
func (a *MicrofonAdapter) adDetails(ad microfonAd) []string {
	var details []string

	if ad.Amount != "" && ad.Amount != "0,00" {
		details = append(details, strings.TrimSpace(ad.Amount+" "+ad.Currency.Name))
	}
	if due := parseMicrofonDate(ad.DueDate); due != "" {
		details = append(details, "Son: "+due)
	}
	var tags []string
	for _, tag := range ad.Tags {
		if strings.TrimSpace(tag) != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) > 0 {
		details = append(details, strings.Join(tags, ", "))
	}

	return details
}

// parseMicrofonDate は締切日時をトルコ式表記（dd.MM.yyyy）に整形する。
func parseMicrofonDate(s string) string {
	if s == "" {
		return ""
	}
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02.01.2006")
		}
	}
	return ""
}

// extractFromDOM はフォールバック戦略として奨学金詳細へのリンクを走査する。
func (a *MicrofonAdapter) extractFromDOM(pageHTML string) []model.ScrapedListing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		a.logger.Warn("microfonのHTML解析に失敗しました", slog.String("error", err.Error()))
		return nil
	}

	var listings []model.ScrapedListing
	seen := make(map[string]bool)
	doc.Find(`a[href^="/scholarship/"]`).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if href == "" || strings.Contains(href, "?") {
			return
		}

		fullURL := resolveURL(a.baseURL, href)
		if fullURL == "" || seen[fullURL] {
			return
		}
		seen[fullURL] = true

		title := strings.TrimSpace(link.Find("h3, h4, span.title").First().Text())
		if title == "" {
			title = strings.Join(strings.Fields(link.Text()), " ")
		}
		if len([]rune(title)) < 3 {
			return
		}

		listings = append(listings, model.ScrapedListing{
			Source:      microfonSourceName,
			ExternalID:  fmt.Sprintf("%s_%s", microfonSourceName, hashID(href)),
			Title:       title,
			Company:     microfonDefaultCompany,
			URL:         fullURL,
			ListingType: "scholarship",
		})
	})

	return listings
}

// IsAvailable は起点URLの応答可否を返す。
func (a *MicrofonAdapter) IsAvailable(ctx context.Context) bool {
	return a.client.CheckAvailable(ctx, a.baseURL)
}
