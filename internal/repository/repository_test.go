package repository

import (
	"testing"

	"github.com/hitoshi/listingwatch/internal/model"
)

// TestPostgresSiteRepo_ImplementsInterface はPostgresSiteRepoがSiteRepositoryを実装することを検証する。
func TestPostgresSiteRepo_ImplementsInterface(t *testing.T) {
	// コンパイル時チェック：PostgresSiteRepoがSiteRepositoryを満たすことを検証
	var _ SiteRepository = (*PostgresSiteRepo)(nil)
}

// TestPostgresListingRepo_ImplementsInterface はPostgresListingRepoがListingRepositoryを実装することを検証する。
func TestPostgresListingRepo_ImplementsInterface(t *testing.T) {
	// コンパイル時チェック：PostgresListingRepoがListingRepositoryを満たすことを検証
	var _ ListingRepository = (*PostgresListingRepo)(nil)
}

// TestPostgresRuleRepo_ImplementsInterface はPostgresRuleRepoがRuleRepositoryを実装することを検証する。
func TestPostgresRuleRepo_ImplementsInterface(t *testing.T) {
	// コンパイル時チェック：PostgresRuleRepoがRuleRepositoryを満たすことを検証
	var _ RuleRepository = (*PostgresRuleRepo)(nil)
}

// TestPostgresNotificationRepo_ImplementsInterface はPostgresNotificationRepoがNotificationRepositoryを実装することを検証する。
func TestPostgresNotificationRepo_ImplementsInterface(t *testing.T) {
	// コンパイル時チェック：PostgresNotificationRepoがNotificationRepositoryを満たすことを検証
	var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
}

// TestSiteTypeValues はSiteTypeの定数値が正しいことを検証する。
func TestSiteTypeValues(t *testing.T) {
	if model.SiteTypeAuto != "auto" {
		t.Errorf("SiteTypeAuto = %q, want %q", model.SiteTypeAuto, "auto")
	}
	if model.SiteTypeManual != "manual" {
		t.Errorf("SiteTypeManual = %q, want %q", model.SiteTypeManual, "manual")
	}
}

// TestNotificationStatusValues はNotificationStatusの定数値が正しいことを検証する。
func TestNotificationStatusValues(t *testing.T) {
	if model.NotificationStatusSuccess != "success" {
		t.Errorf("NotificationStatusSuccess = %q, want %q", model.NotificationStatusSuccess, "success")
	}
	if model.NotificationStatusFailed != "failed" {
		t.Errorf("NotificationStatusFailed = %q, want %q", model.NotificationStatusFailed, "failed")
	}
}
