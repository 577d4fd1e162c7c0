package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/listingwatch/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testClient(server *httptest.Server) *Client {
	return NewClient(server.Client(), time.Millisecond, 5*1024*1024)
}

func manualSite(baseURL string, cfg *model.SiteParserConfig) *model.Site {
	return &model.Site{
		ID:           "site-1",
		Name:         "test-site",
		BaseURL:      baseURL,
		SiteType:     model.SiteTypeManual,
		IsActive:     true,
		ParserConfig: cfg,
	}
}

// TestManualAdapterPaginationStops は「有効なリスティングが尽きたら走査を終える」
// 挙動をテストする。1ページ目は5件と次ページリンクを返し、2ページ目は空を返す。
func TestManualAdapterPaginationStops(t *testing.T) {
	var fetchedPages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		fetchedPages = append(fetchedPages, page)

		if page == "" || page == "1" {
			fmt.Fprint(w, `<html><body>`)
			for i := 1; i <= 5; i++ {
				fmt.Fprintf(w, `<div class="item"><span class="title">İlan %d</span><span class="price">%d00 TL</span><a href="/ilan/is-%d">detay</a></div>`, i, i, i)
			}
			fmt.Fprint(w, `<a href="?page=2">Sonraki</a></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><p>İlan bulunamadı</p></body></html>`)
	}))
	defer server.Close()

	cfg := &model.SiteParserConfig{
		ListingItemSelector: ".item",
		TitleSelector:       ".title",
		PriceSelector:       ".price",
		URLSelector:         "a",
		SelectorSyntax:      model.SelectorSyntaxCSS,
	}

	adapter, err := NewManualAdapter(testClient(server), testLogger(), manualSite(server.URL, cfg))
	if err != nil {
		t.Fatalf("NewManualAdapter failed: %v", err)
	}

	listings, err := adapter.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}

	if len(listings) != 5 {
		t.Fatalf("got %d listings, want 5", len(listings))
	}
	if len(fetchedPages) != 2 {
		t.Errorf("fetched %d pages, want 2 (page 2 must stop the traversal)", len(fetchedPages))
	}

	first := listings[0]
	if first.Title != "İlan 1" {
		t.Errorf("Title = %q, want %q", first.Title, "İlan 1")
	}
	if first.Price == nil || first.Price.String() != "100" {
		t.Errorf("Price = %v, want 100", first.Price)
	}
	if first.URL != server.URL+"/ilan/is-1" {
		t.Errorf("URL = %q, want absolute URL", first.URL)
	}
	if first.ExternalID == "" {
		t.Error("ExternalID should not be empty")
	}
}

// TestManualAdapterElemanIDPattern はeleman.net形式のURLから数値IDを導出することをテストする。
func TestManualAdapterElemanIDPattern(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="item"><span class="title">Teknik Personel</span><a href="/is-ilani/teknik-personel-i4555881">detay</a></div></body></html>`)
	}))
	defer server.Close()

	cfg := &model.SiteParserConfig{
		ListingItemSelector: ".item",
		TitleSelector:       ".title",
		URLSelector:         "a",
		SelectorSyntax:      model.SelectorSyntaxCSS,
	}

	adapter, err := NewManualAdapter(testClient(server), testLogger(), manualSite(server.URL, cfg))
	if err != nil {
		t.Fatalf("NewManualAdapter failed: %v", err)
	}

	listings, err := adapter.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(listings))
	}
	if listings[0].ExternalID != "eleman_4555881" {
		t.Errorf("ExternalID = %q, want %q", listings[0].ExternalID, "eleman_4555881")
	}
}

// TestNewManualAdapterMissingConfig はParserConfig未設定でConfigErrorになることをテストする。
func TestNewManualAdapterMissingConfig(t *testing.T) {
	_, err := NewManualAdapter(NewClient(http.DefaultClient, time.Millisecond, 1024), testLogger(), manualSite("http://example.com", nil))
	if err == nil {
		t.Fatal("expected error for missing ParserConfig")
	}

	var cfgErr *model.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}

// TestNewManualAdapterUnsupportedSelector は未対応CSSセレクタが検証エラーになることをテストする。
func TestNewManualAdapterUnsupportedSelector(t *testing.T) {
	cfg := &model.SiteParserConfig{
		ListingItemSelector: "div.list > div.item",
		TitleSelector:       ".title",
		URLSelector:         "a",
		SelectorSyntax:      model.SelectorSyntaxCSS,
	}

	_, err := NewManualAdapter(NewClient(http.DefaultClient, time.Millisecond, 1024), testLogger(), manualSite("http://example.com", cfg))
	if err == nil {
		t.Fatal("expected error for unsupported selector")
	}

	var selErr *model.SelectorError
	if !errors.As(err, &selErr) {
		t.Errorf("expected SelectorError, got %T", err)
	}
}

// TestCleanTextTruncation は長文の切り詰めと空白畳み込みをテストする。
func TestCleanTextTruncation(t *testing.T) {
	if got := cleanText("  çok   uzun\n başlık  "); got != "çok uzun başlık" {
		t.Errorf("cleanText = %q", got)
	}

	long := make([]rune, 600)
	for i := range long {
		long[i] = 'a'
	}
	got := cleanText(string(long))
	if len([]rune(got)) != manualMaxTextLength {
		t.Errorf("truncated length = %d, want %d", len([]rune(got)), manualMaxTextLength)
	}
	if got[len(got)-3:] != "..." {
		t.Errorf("truncated text should end with ellipsis, got %q", got[len(got)-10:])
	}
}
