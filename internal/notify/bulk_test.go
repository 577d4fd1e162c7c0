package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/listingwatch/internal/model"
)

// mockListingRepo はListingRepositoryのテスト用モック。
type mockListingRepo struct {
	listings []*model.Listing
}

func (m *mockListingRepo) ListExternalIDs(ctx context.Context, siteID string) ([]string, error) {
	return nil, nil
}

func (m *mockListingRepo) Create(ctx context.Context, listing *model.Listing) error {
	return nil
}

func (m *mockListingRepo) ListForExport(ctx context.Context, siteID string) ([]*model.Listing, error) {
	return m.listings, nil
}

// mockRuleRepo はRuleRepositoryのテスト用モック。
type mockRuleRepo struct {
	scheduleUpdates map[string]time.Time
}

func (m *mockRuleRepo) ListActive(ctx context.Context) ([]*model.AlertRule, error) {
	return nil, nil
}

func (m *mockRuleRepo) ListActiveForSite(ctx context.Context, siteID string) ([]*model.AlertRule, error) {
	return nil, nil
}

func (m *mockRuleRepo) UpdateEmailSchedule(ctx context.Context, ruleID string, lastSentAt, nextSendAt time.Time) error {
	if m.scheduleUpdates == nil {
		m.scheduleUpdates = map[string]time.Time{}
	}
	m.scheduleUpdates[ruleID] = nextSendAt
	return nil
}

// TestExportAllSendsTable は一括エクスポートの送信と履歴記録をテストする。
func TestExportAllSendsTable(t *testing.T) {
	listings := []*model.Listing{
		{Title: "İlan 1", URL: "https://example.com/1", FirstSeenAt: time.Now()},
		{Title: "İlan 2", URL: "https://example.com/2", FirstSeenAt: time.Now()},
	}
	mailer := &mockMailer{}
	notifRepo := &mockNotificationRepo{}
	svc := NewBulkService(&mockListingRepo{listings: listings}, &mockRuleRepo{}, notifRepo, mailer, testLogger())

	if err := svc.ExportAll(context.Background(), "dest@example.com", ""); err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mailer.sent))
	}
	if len(notifRepo.entries) != 1 {
		t.Fatalf("appended %d log entries, want 1", len(notifRepo.entries))
	}

	entry := notifRepo.entries[0]
	if entry.Status != model.NotificationStatusSuccess {
		t.Errorf("Status = %q, want success", entry.Status)
	}
	// エクスポートのログはルール・リスティングに紐づかない
	if entry.RuleID != "" || entry.ListingID != "" {
		t.Errorf("export log should not be linked: rule=%q listing=%q", entry.RuleID, entry.ListingID)
	}
	if !strings.Contains(entry.ErrorMessage, "2 ilan") {
		t.Errorf("ErrorMessage = %q, want listing count summary", entry.ErrorMessage)
	}
}

// TestExportAllSkipsWhenEmpty はリスティングがない場合に送信しないことをテストする。
func TestExportAllSkipsWhenEmpty(t *testing.T) {
	mailer := &mockMailer{}
	svc := NewBulkService(&mockListingRepo{}, &mockRuleRepo{}, &mockNotificationRepo{}, mailer, testLogger())

	if err := svc.ExportAll(context.Background(), "dest@example.com", ""); err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("sent %d mails, want 0", len(mailer.sent))
	}
}

// TestProcessScheduledRules は定期送信ルールの期限判定と次回時刻更新をテストする。
func TestProcessScheduledRules(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	rules := []*model.AlertRule{
		{ID: "due", EnableScheduledEmail: true, EmailIntervalHours: 6, NextEmailSendAt: &past, EmailsToNotify: "a@x.com"},
		{ID: "not-due", EnableScheduledEmail: true, EmailIntervalHours: 6, NextEmailSendAt: &future, EmailsToNotify: "b@x.com"},
		{ID: "disabled", EnableScheduledEmail: false, EmailIntervalHours: 6, NextEmailSendAt: &past, EmailsToNotify: "c@x.com"},
		{ID: "first-time", EnableScheduledEmail: true, EmailIntervalHours: 12, EmailsToNotify: "d@x.com"},
	}

	mailer := &mockMailer{}
	ruleRepo := &mockRuleRepo{}
	listings := []*model.Listing{{Title: "x", URL: "u", FirstSeenAt: now}}
	svc := NewBulkService(&mockListingRepo{listings: listings}, ruleRepo, &mockNotificationRepo{}, mailer, testLogger())

	svc.ProcessScheduledRules(context.Background(), rules, now)

	// 期限到来の2ルール（due, first-time）だけが送信・更新される
	if len(mailer.sent) != 2 {
		t.Fatalf("sent %d mails, want 2", len(mailer.sent))
	}
	if len(ruleRepo.scheduleUpdates) != 2 {
		t.Fatalf("updated %d schedules, want 2", len(ruleRepo.scheduleUpdates))
	}

	next, ok := ruleRepo.scheduleUpdates["due"]
	if !ok {
		t.Fatal("rule 'due' should have its schedule updated")
	}
	if want := now.Add(6 * time.Hour); !next.Equal(want) {
		t.Errorf("next send = %v, want %v", next, want)
	}
	if _, ok := ruleRepo.scheduleUpdates["first-time"]; !ok {
		t.Error("rule without NextEmailSendAt should send immediately")
	}
}
