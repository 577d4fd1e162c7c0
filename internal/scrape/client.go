package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

// browserUserAgent は一部サイトのUser-Agentチェックを通過するためのヘッダ値。
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client はアダプタ共用のHTTPフェッチ層。
// ページ間のレートリミットとレスポンスサイズ上限を一元管理する。
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxBodySize int64
}

// NewClient はClientを生成する。
// pageDelayはページフェッチ間の最小間隔で、サイト負荷を抑えるために課される。
func NewClient(httpClient *http.Client, pageDelay time.Duration, maxBodySize int64) *Client {
	return &Client{
		httpClient:  httpClient,
		limiter:     rate.NewLimiter(rate.Every(pageDelay), 1),
		maxBodySize: maxBodySize,
	}
}

// FetchHTML はページを取得し、デコード済みHTML文字列を返す。
// encodingNameが空またはutf-8の場合はそのまま返し、
// それ以外はhtmlindexで引いた文字コードからUTF-8へ変換する。
func (c *Client) FetchHTML(ctx context.Context, pageURL, encodingName string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("レートリミット待機が中断されました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ページ取得に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ページ取得に失敗: ステータス %d (%s)", resp.StatusCode, pageURL)
	}

	var reader io.Reader = io.LimitReader(resp.Body, c.maxBodySize)

	name := strings.ToLower(strings.TrimSpace(encodingName))
	if name != "" && name != "utf-8" && name != "utf8" {
		enc, err := htmlindex.Get(name)
		if err != nil {
			return "", fmt.Errorf("未知の文字コードです: %s: %w", encodingName, err)
		}
		reader = enc.NewDecoder().Reader(reader)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("レスポンス読み取りに失敗: %w", err)
	}

	return string(body), nil
}

// CheckAvailable はURLへGETを発行し、応答が成功ステータスかを返す。
// あらゆる失敗はfalseに収束する。
func (c *Client) CheckAvailable(ctx context.Context, pageURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
