package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/listingwatch/internal/model"
)

// mockMailer はMailerのテスト用モック。
type mockMailer struct {
	sendFunc func(ctx context.Context, to, subject, htmlBody string) error
	sent     []string
}

func (m *mockMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.sent = append(m.sent, to)
	if m.sendFunc != nil {
		return m.sendFunc(ctx, to, subject, htmlBody)
	}
	return nil
}

// mockNotificationRepo はNotificationRepositoryのテスト用モック。
type mockNotificationRepo struct {
	entries []*model.NotificationLog
}

func (m *mockNotificationRepo) Append(ctx context.Context, entry *model.NotificationLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockNotificationRepo) ListRecent(ctx context.Context, limit int) ([]*model.NotificationLog, error) {
	return m.entries, nil
}

func (m *mockNotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestNotifySendsPerRecipient は宛先ごとに1通の送信と1件の履歴が生じることをテストする。
func TestNotifySendsPerRecipient(t *testing.T) {
	mailer := &mockMailer{}
	repo := &mockNotificationRepo{}
	svc := NewService(repo, mailer, nil, testLogger())

	r := &model.AlertRule{
		ID:             "rule-1",
		Name:           "İstanbul ilanları",
		EmailsToNotify: "a@example.com, b@example.com, ,c@example.com",
	}
	listing := &model.Listing{ID: "listing-1", Title: "Junior Developer", City: "Istanbul", URL: "https://example.com/1"}

	svc.Notify(context.Background(), r, listing)

	if len(mailer.sent) != 3 {
		t.Fatalf("sent %d mails, want 3", len(mailer.sent))
	}
	if len(repo.entries) != 3 {
		t.Fatalf("appended %d log entries, want 3", len(repo.entries))
	}
	for _, entry := range repo.entries {
		if entry.Status != model.NotificationStatusSuccess {
			t.Errorf("Status = %q, want success", entry.Status)
		}
		if entry.RuleID != "rule-1" || entry.ListingID != "listing-1" {
			t.Errorf("log entry not linked: rule=%q listing=%q", entry.RuleID, entry.ListingID)
		}
	}
}

// TestNotifyFailureDoesNotBlockSiblings は1宛先の失敗が他の宛先を妨げないことをテストする。
func TestNotifyFailureDoesNotBlockSiblings(t *testing.T) {
	mailer := &mockMailer{
		sendFunc: func(ctx context.Context, to, subject, htmlBody string) error {
			if to == "bad@example.com" {
				return errors.New("connection refused")
			}
			return nil
		},
	}
	repo := &mockNotificationRepo{}
	svc := NewService(repo, mailer, nil, testLogger())

	r := &model.AlertRule{ID: "rule-1", EmailsToNotify: "ok@example.com,bad@example.com,ok2@example.com"}
	listing := &model.Listing{ID: "listing-1", Title: "x", URL: "https://example.com/1"}

	svc.Notify(context.Background(), r, listing)

	if len(mailer.sent) != 3 {
		t.Fatalf("sent attempts = %d, want 3", len(mailer.sent))
	}

	var failed, success int
	for _, entry := range repo.entries {
		switch entry.Status {
		case model.NotificationStatusFailed:
			failed++
			if entry.ErrorMessage == "" {
				t.Error("failed entry should carry the error message")
			}
		case model.NotificationStatusSuccess:
			success++
		}
	}
	if failed != 1 || success != 2 {
		t.Errorf("failed=%d success=%d, want 1/2", failed, success)
	}
}

// TestBuildAlertBody はメール本文の組み立てをテストする。
func TestBuildAlertBody(t *testing.T) {
	price := decimal.NewFromInt(17000)
	r := &model.AlertRule{Name: "öğretmen ilanları"}
	listing := &model.Listing{
		Title: "Rehber Öğretmeni",
		Price: &price,
		City:  "İstanbul/Kadıköy",
		URL:   "https://example.com/ilan/1650",
	}

	body := buildAlertBody(r, listing)

	for _, want := range []string{
		"Başlık:</strong> Rehber Öğretmeni",
		"Fiyat:</strong> 17000.00 TL",
		"Şehir:</strong> İstanbul/Kadıköy",
		"Kural:</strong> öğretmen ilanları",
		"https://example.com/ilan/1650",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body should contain %q", want)
		}
	}
}

// TestBuildAlertBodyOmitsEmptyFields は価格・都市がない場合に行ごと省かれることをテストする。
func TestBuildAlertBodyOmitsEmptyFields(t *testing.T) {
	body := buildAlertBody(&model.AlertRule{Name: "r"}, &model.Listing{Title: "t", URL: "u"})

	if strings.Contains(body, "Fiyat") {
		t.Error("body should not contain a price row for unpriced listings")
	}
	if strings.Contains(body, "Şehir") {
		t.Error("body should not contain a city row when city is empty")
	}
}

// TestSplitEmails は宛先リストの正規化をテストする。
func TestSplitEmails(t *testing.T) {
	got := SplitEmails(" a@x.com ,, b@x.com ,")
	if len(got) != 2 || got[0] != "a@x.com" || got[1] != "b@x.com" {
		t.Errorf("SplitEmails = %v", got)
	}
	if got := SplitEmails(""); got != nil {
		t.Errorf("SplitEmails(\"\") = %v, want nil", got)
	}
}
