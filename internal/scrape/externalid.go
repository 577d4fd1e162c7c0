package scrape

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// pageParamURL はページ番号クエリを付与したURLを組み立てる。
// 既にクエリ文字列を持つURLには&で連結する。1ページ目はそのまま返す。
func pageParamURL(baseURL, param string, page int) string {
	if page == 1 {
		return baseURL
	}

	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s%s=%d", baseURL, sep, param, page)
}

// hashID は入力文字列から短い安定ハッシュを生成する。
// プロセスをまたいでも同一入力から常に同一IDが得られる必要があるため、
// ランタイム依存のハッシュではなくSHA-256の先頭8桁を使用する。
func hashID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

// hashURLPathID はURLのパスとクエリから安定IDを生成する。
// 同一リスティングがどのページに現れても同じIDに写像される。
func hashURLPathID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return hashID(rawURL)
	}

	key := parsed.EscapedPath()
	if parsed.RawQuery != "" {
		key += "?" + parsed.RawQuery
	}

	return hashID(key)
}

// resolveURL は相対URLをbaseURL基準で絶対URLに解決する。
// すでに絶対URLの場合はそのまま返す。
func resolveURL(baseURL, href string) string {
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return href
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	return base.ResolveReference(ref).String()
}
