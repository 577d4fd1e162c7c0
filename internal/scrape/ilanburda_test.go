package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const ilanburdaListPage = `<html><body><table>
<tr class="satir_link" data-href="/rehber-ogretmeni-1650">
  <td><span class="baslik">Rehber Öğretmeni</span></td>
  <td class="fiyat">17.000 TL</td>
  <td><div class="il_ilce"><span>İstanbul</span><span>Kadıköy</span></div></td>
</tr>
<tr class="satir_link" data-href="https://www.ilanburda.net/garson-ilani">
  <td><span class="baslik">Garson</span></td>
  <td class="fiyat"></td>
  <td><div class="il_ilce"><span>Ankara</span></div></td>
</tr>
<tr class="satir_link">
  <td><span class="baslik">data-href eksik</span></td>
</tr>
<tr class="satir_link" data-href="/bassiz-ilan-99">
  <td><span class="fiyat">100 TL</span></td>
</tr>
</table></body></html>`

// TestIlanburdaAdapterExtractsRows はテーブル行からの構造化抽出をテストする。
func TestIlanburdaAdapterExtractsRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ilanburdaListPage)
	}))
	defer server.Close()

	adapter := NewIlanburdaAdapter(testClient(server), testLogger(), server.URL)

	listings, err := adapter.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}

	// data-hrefまたはタイトルを欠く行はスキップされ2件になる
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2", len(listings))
	}

	first := listings[0]
	if first.Title != "Rehber Öğretmeni" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.ExternalID != "ilanburda_1650" {
		t.Errorf("ExternalID = %q, want %q", first.ExternalID, "ilanburda_1650")
	}
	if first.Price == nil || first.Price.String() != "17000" {
		t.Errorf("Price = %v, want 17000", first.Price)
	}
	if first.City != "İstanbul/Kadıköy" {
		t.Errorf("City = %q, want %q", first.City, "İstanbul/Kadıköy")
	}
	if first.URL != server.URL+"/rehber-ogretmeni-1650" {
		t.Errorf("URL = %q", first.URL)
	}

	second := listings[1]
	if second.Price != nil {
		t.Errorf("Price = %v, want nil", second.Price)
	}
	if second.City != "Ankara" {
		t.Errorf("City = %q, want %q", second.City, "Ankara")
	}
	// 数値サフィックスがないURLはハッシュIDにフォールバックする
	if second.ExternalID == "" || second.ExternalID == "ilanburda_" {
		t.Errorf("ExternalID = %q", second.ExternalID)
	}
	// 絶対URLはそのまま保持される
	if second.URL != "https://www.ilanburda.net/garson-ilani" {
		t.Errorf("URL = %q", second.URL)
	}
}
