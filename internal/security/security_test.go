package security

import (
	"testing"
	"time"
)

// TestValidateURL はURL検証の許可・拒否判定をテストする。
func TestValidateURL(t *testing.T) {
	guard := NewSSRFGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"通常のHTTPS URL", "https://www.youthall.com/tr/is-ilanlari", false},
		{"通常のHTTP URL", "http://www.ilanburda.net", false},
		{"空URL", "", true},
		{"ftpスキーム", "ftp://example.com/file", true},
		{"fileスキーム", "file:///etc/passwd", true},
		{"localhost", "http://localhost/admin", true},
		{"ループバックIP", "http://127.0.0.1:80/", true},
		{"プライベートIP", "http://192.168.1.1/", true},
		{"メタデータIP", "http://169.254.169.254/latest/meta-data/", true},
		{"ホストなし", "https:///path", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

// TestNewSafeClientTimeout はタイムアウト設定が反映されることをテストする。
func TestNewSafeClientTimeout(t *testing.T) {
	guard := NewSSRFGuard()
	timeout := 5 * time.Second
	client := guard.NewSafeClient(timeout)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
	if client.Timeout != timeout {
		t.Errorf("expected timeout %v, got %v", timeout, client.Timeout)
	}
}

// TestTextSanitizerClean はスクレイピング結果のテキスト正規化をテストする。
func TestTextSanitizerClean(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキスト", "Yazılım Mühendisi", "Yazılım Mühendisi"},
		{"タグ除去", "<b>Burs</b> Programı", "Burs Programı"},
		{"scriptタグ除去", `Başlık<script>alert(1)</script>`, "Başlık"},
		{"実体参照の復元", "R&amp;D Uzmanı", "R&D Uzmanı"},
		{"連続空白の畳み込み", "  Kıdemli \n\t Geliştirici  ", "Kıdemli Geliştirici"},
		{"空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Clean(tt.input)
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestTextSanitizerIdempotent は同一入力に対する冪等性をテストする。
func TestTextSanitizerIdempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()
	input := "<p>Mühendislik   Bursu</p>"
	once := sanitizer.Clean(input)
	twice := sanitizer.Clean(once)
	if once != twice {
		t.Errorf("Clean is not idempotent: %q vs %q", once, twice)
	}
}
