package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/listingwatch/internal/model"
)

// FeedAdapter はRSS/Atomフィードを配信するソース用のアダプタ。
// 求人サイトの中にはHTML一覧のほかにフィードを公開しているものがあり、
// その場合はDOM抽出よりフィード取り込みのほうが安定する。
type FeedAdapter struct {
	client     *Client
	logger     *slog.Logger
	parser     *gofeed.Parser
	sourceName string
	feedURL    string
}

// NewFeedAdapter はFeedAdapterを生成する。
func NewFeedAdapter(client *Client, logger *slog.Logger, sourceName, feedURL string) *FeedAdapter {
	return &FeedAdapter{
		client:     client,
		logger:     logger,
		parser:     gofeed.NewParser(),
		sourceName: sourceName,
		feedURL:    feedURL,
	}
}

// SourceName はソース識別子を返す。
func (a *FeedAdapter) SourceName() string { return a.sourceName }

// BaseURL はフィードURLを返す。
func (a *FeedAdapter) BaseURL() string { return a.feedURL }

// Scrape はフィードを取得し、各エントリをリスティングに写像する。
// GUIDがあればそれを、なければリンクURLのハッシュをExternalIDとする。
func (a *FeedAdapter) Scrape(ctx context.Context) ([]model.ScrapedListing, error) {
	body, err := a.client.FetchHTML(ctx, a.feedURL, "")
	if err != nil {
		return nil, fmt.Errorf("フィード取得に失敗 (%s): %w", a.sourceName, err)
	}

	feed, err := a.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("フィード解析に失敗 (%s): %w", a.sourceName, err)
	}

	var listings []model.ScrapedListing
	for _, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Title) == "" || strings.TrimSpace(item.Link) == "" {
			continue
		}

		externalID := strings.TrimSpace(item.GUID)
		if externalID == "" {
			externalID = hashURLPathID(item.Link)
		}

		company := feed.Title
		if len(item.Authors) > 0 && item.Authors[0] != nil && item.Authors[0].Name != "" {
			company = item.Authors[0].Name
		}

		listings = append(listings, model.ScrapedListing{
			Source:          a.sourceName,
			ExternalID:      fmt.Sprintf("%s_%s", a.sourceName, externalID),
			Title:           item.Title,
			Company:         company,
			URL:             item.Link,
			Description:     item.Description,
			ListingType:     "job",
			CreatedAtOnSite: item.PublishedParsed,
		})
	}

	a.logger.Info("フィードの取り込みが完了しました",
		slog.String("source", a.sourceName),
		slog.Int("count", len(listings)),
	)
	return listings, nil
}

// IsAvailable はフィードURLの応答可否を返す。
func (a *FeedAdapter) IsAvailable(ctx context.Context) bool {
	return a.client.CheckAvailable(ctx, a.feedURL)
}
