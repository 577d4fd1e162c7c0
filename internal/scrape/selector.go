package scrape

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hitoshi/listingwatch/internal/model"
)

// cssToken はCSSセレクタのタグ・クラス・ID名として許容する形式。
var cssToken = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// TranslateCSS は限定的なCSSセレクタを等価なXPath式に変換する。
// 対応形式は「.class」「#id」「タグ名」「タグ名.class」のみ。
// 対応外のセレクタは暗黙に誤マッチさせず、SelectorErrorで弾く。
func TranslateCSS(selector string) (string, error) {
	s := strings.TrimSpace(selector)
	if s == "" {
		return "", &model.SelectorError{Selector: selector, Reason: "セレクタが空です"}
	}

	switch {
	case strings.HasPrefix(s, "."):
		class := s[1:]
		if !cssToken.MatchString(class) {
			return "", &model.SelectorError{Selector: selector, Reason: "クラス名の形式が不正です"}
		}
		return fmt.Sprintf("//*[contains(concat(' ', normalize-space(@class), ' '), ' %s ')]", class), nil

	case strings.HasPrefix(s, "#"):
		id := s[1:]
		if !cssToken.MatchString(id) {
			return "", &model.SelectorError{Selector: selector, Reason: "IDの形式が不正です"}
		}
		return fmt.Sprintf("//*[@id='%s']", id), nil

	case strings.Contains(s, "."):
		parts := strings.SplitN(s, ".", 2)
		tag, class := parts[0], parts[1]
		if !cssToken.MatchString(tag) || !cssToken.MatchString(class) {
			return "", &model.SelectorError{Selector: selector, Reason: "タグ.クラス形式が不正です"}
		}
		return fmt.Sprintf("//%s[contains(concat(' ', normalize-space(@class), ' '), ' %s ')]", tag, class), nil

	case cssToken.MatchString(s):
		return "//" + s, nil

	default:
		return "", &model.SelectorError{
			Selector: selector,
			Reason:   "このCSSセレクタ形式は未対応です（.class / #id / タグ名 / タグ.クラス のみ対応）。XPath構文の使用を検討してください",
		}
	}
}

// toXPath は設定されたセレクタをXPath式に正規化する。
// 構文がXPathの場合はそのまま、CSSの場合はTranslateCSSで変換する。
// 空セレクタは空文字列のまま返す（任意フィールド用）。
func toXPath(selector string, syntax model.SelectorSyntax) (string, error) {
	if strings.TrimSpace(selector) == "" {
		return "", nil
	}
	if syntax == model.SelectorSyntaxXPath {
		return selector, nil
	}
	return TranslateCSS(selector)
}
