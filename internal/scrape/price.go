package scrape

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// nonPriceChars は価格文字列から除去する文字（数字とカンマ・ピリオド以外）。
var nonPriceChars = regexp.MustCompile(`[^\d,.]`)

// ParsePrice はサイト表記の価格文字列を数値に変換する。
// トルコ式の桁区切り（1.234,56）を前提に、ピリオドを桁区切りとして除去し
// カンマを小数点に正規化する。解析できない場合はnilを返す。
func ParsePrice(text string) *decimal.Decimal {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cleaned := nonPriceChars.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" || cleaned == "." {
		return nil
	}

	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}

	return &price
}
