package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はスクレイピングで抽出したフィールドをプレーンテキストに正規化する。
// タイトルや企業名にマークアップが混入したまま保存すると、
// 通知メールのHTML本文に埋め込んだ際にXSSの原因になるため、
// bluemondayの厳格ポリシーで全タグを除去する。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
// StrictPolicyはタグと属性を一切許可しない。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Clean は入力からHTMLマークアップを除去し、
// 実体参照を戻したうえで連続空白を単一スペースに畳み込む。
// 同一入力に対して常に同一出力を返す。
func (s *TextSanitizer) Clean(raw string) string {
	if raw == "" {
		return ""
	}

	stripped := s.policy.Sanitize(raw)
	// StrictPolicyは残存テキストをHTMLエスケープするため、実体参照を戻す
	unescaped := html.UnescapeString(stripped)

	return strings.Join(strings.Fields(unescaped), " ")
}
