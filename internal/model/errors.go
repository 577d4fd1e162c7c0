// Package model はドメインモデルを定義する。
package model

import "fmt"

// ConfigError はサイト設定の不備を表すエラー。
// スイープ中に発生した場合は該当サイトをスキップし、処理は継続される。
type ConfigError struct {
	SiteID   string
	SiteName string
	Reason   string
}

// Error はerrorインターフェースを実装する。
func (e *ConfigError) Error() string {
	return fmt.Sprintf("サイト設定エラー (%s): %s", e.SiteName, e.Reason)
}

// NewMissingParserConfigError はManualサイトにParserConfigが未設定の場合のエラーを生成する。
func NewMissingParserConfigError(site *Site) *ConfigError {
	return &ConfigError{
		SiteID:   site.ID,
		SiteName: site.Name,
		Reason:   "ManualサイトにはParserConfigが必要です",
	}
}

// SelectorError はサポート外のセレクタ記法を表すエラー。
// CSSセレクタ変換器がサポートするのは .class / #id / タグ名 等の基本形式のみであり、
// それ以外の入力は黙って不一致になるのではなく検証エラーとして扱う。
type SelectorError struct {
	Selector string
	Reason   string
}

// Error はerrorインターフェースを実装する。
func (e *SelectorError) Error() string {
	return fmt.Sprintf("セレクタエラー (%q): %s", e.Selector, e.Reason)
}
