package scrape

import (
	"context"
	"log/slog"

	"github.com/hitoshi/listingwatch/internal/model"
)

const (
	bursverenlerSourceName     = "bursverenler"
	bursverenlerDefaultBaseURL = "https://bursverenler.org/?lang=tr"
)

// BursverenlerAdapter はbursverenler.org用のプレースホルダアダプタ。
// このサイトは奨学金の応募プラットフォームであり、スクレイピング可能な
// 公開リストを提供していないため、常に空リストを返す。
type BursverenlerAdapter struct {
	client  *Client
	logger  *slog.Logger
	baseURL string
}

// NewBursverenlerAdapter はBursverenlerAdapterを生成する。
func NewBursverenlerAdapter(client *Client, logger *slog.Logger, baseURL string) *BursverenlerAdapter {
	if baseURL == "" {
		baseURL = bursverenlerDefaultBaseURL
	}
	return &BursverenlerAdapter{client: client, logger: logger, baseURL: baseURL}
}

// SourceName はソース識別子を返す。
func (a *BursverenlerAdapter) SourceName() string { return bursverenlerSourceName }

// BaseURL は抽出の起点URLを返す。
func (a *BursverenlerAdapter) BaseURL() string { return a.baseURL }

// Scrape は常に空リストを返す。
func (a *BursverenlerAdapter) Scrape(ctx context.Context) ([]model.ScrapedListing, error) {
	a.logger.Info("bursverenlerは公開リストを提供していないためスキップします")
	return nil, nil
}

// IsAvailable は起点URLの応答可否を返す。
func (a *BursverenlerAdapter) IsAvailable(ctx context.Context) bool {
	return a.client.CheckAvailable(ctx, a.baseURL)
}
