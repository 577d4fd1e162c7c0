// Package scrape は監視対象サイトからのリスティング抽出を行う。
//
// サイトごとにマークアップ構造が異なるため、抽出戦略はAdapterインターフェースの
// バリアントとして実装される:
//   - 埋め込みJSON型（microfon）: script タグ内のJSONペイロードをパースする
//   - ページングDOM型（youthall）: ページネーションを辿りアンカーカードを抽出する
//   - テーブル行型（ilanburda）: CSSクラスで行を特定し構造化抽出する
//   - プレースホルダ型（bursverenler）: 常に空リストを返す
//   - 設定駆動型（手動サイト）: ParserConfigのセレクタで抽出する
//   - フィード型: RSS/Atomフィードをリスティングとして取り込む
package scrape

import (
	"context"

	"github.com/hitoshi/listingwatch/internal/model"
)

// Adapter は1つの監視対象ソースからリスティングを抽出する戦略を表す。
type Adapter interface {
	// SourceName はソース識別子を返す。ExternalIDのプレフィックスにも使われる。
	SourceName() string

	// BaseURL は抽出の起点となるURLを返す。
	BaseURL() string

	// Scrape はソースからリスティング候補を抽出する。
	// アイテム単位・ページ単位のエラーはログに記録してスキップし、
	// 部分的な結果を返す。起点ページ自体の取得失敗のみエラーを返す。
	Scrape(ctx context.Context) ([]model.ScrapedListing, error)

	// IsAvailable はソースが応答可能かを確認する。例外はfalseに収束する。
	IsAvailable(ctx context.Context) bool
}
