package scrape

import (
	"errors"
	"testing"

	"github.com/hitoshi/listingwatch/internal/model"
)

// TestTranslateCSS はCSSセレクタのXPath変換をテストする。
func TestTranslateCSS(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		want     string
		wantErr  bool
	}{
		{"クラスセレクタ", ".job-card", "//*[contains(concat(' ', normalize-space(@class), ' '), ' job-card ')]", false},
		{"IDセレクタ", "#listings", "//*[@id='listings']", false},
		{"タグセレクタ", "article", "//article", false},
		{"タグとクラス", "div.ilan", "//div[contains(concat(' ', normalize-space(@class), ' '), ' ilan ')]", false},
		{"空セレクタ", "", "", true},
		{"子孫結合子は未対応", "div > a", "", true},
		{"属性セレクタは未対応", "a[href]", "", true},
		{"疑似クラスは未対応", "li:first-child", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TranslateCSS(tt.selector)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("TranslateCSS(%q) expected error, got %q", tt.selector, got)
				}
				var selErr *model.SelectorError
				if !errors.As(err, &selErr) {
					t.Errorf("expected SelectorError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("TranslateCSS(%q) unexpected error: %v", tt.selector, err)
			}
			if got != tt.want {
				t.Errorf("TranslateCSS(%q) = %q, want %q", tt.selector, got, tt.want)
			}
		})
	}
}

// TestToXPathPassesThroughXPath はXPath構文のセレクタが変換されないことをテストする。
func TestToXPathPassesThroughXPath(t *testing.T) {
	xpath := "//tr[contains(@class, 'satir_link')]"
	got, err := toXPath(xpath, model.SelectorSyntaxXPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != xpath {
		t.Errorf("toXPath = %q, want %q", got, xpath)
	}
}
