package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/listingwatch/internal/model"
	"github.com/hitoshi/listingwatch/internal/repository"
)

// BulkService は保存済みリスティング一覧をHTMLテーブルとして一括送信する。
// 新着通知ループとは独立した手動・定期エクスポート経路であり、
// 通知履歴には同じログシンクを使う。
type BulkService struct {
	listingRepo repository.ListingRepository
	ruleRepo    repository.RuleRepository
	notifRepo   repository.NotificationRepository
	mailer      Mailer
	logger      *slog.Logger
}

// NewBulkService はBulkServiceを生成する。
func NewBulkService(
	listingRepo repository.ListingRepository,
	ruleRepo repository.RuleRepository,
	notifRepo repository.NotificationRepository,
	mailer Mailer,
	logger *slog.Logger,
) *BulkService {
	return &BulkService{
		listingRepo: listingRepo,
		ruleRepo:    ruleRepo,
		notifRepo:   notifRepo,
		mailer:      mailer,
		logger:      logger,
	}
}

// ExportAll は指定サイト（空なら全サイト）の全リスティングを1通のメールで送信する。
// 結果はルール・リスティングに紐づかない履歴行として記録される。
func (s *BulkService) ExportAll(ctx context.Context, recipient, siteID string) error {
	listings, err := s.listingRepo.ListForExport(ctx, siteID)
	if err != nil {
		return fmt.Errorf("エクスポート対象の取得に失敗しました: %w", err)
	}
	if len(listings) == 0 {
		s.logger.Info("エクスポート対象のリスティングがありません", slog.String("site_id", siteID))
		return nil
	}

	scope := "Tüm Siteler"
	if siteID != "" {
		scope = "Site"
	}
	subject := fmt.Sprintf("İlan Takip Sistemi - %s (%d ilan)", scope, len(listings))
	body := buildListingTable(listings)

	entry := &model.NotificationLog{
		ToEmail:      recipient,
		ErrorMessage: fmt.Sprintf("Manuel gönderim: %d ilan (%s)", len(listings), scope),
	}

	sendErr := s.mailer.Send(ctx, recipient, subject, body)
	if sendErr != nil {
		entry.Status = model.NotificationStatusFailed
		entry.ErrorMessage = sendErr.Error()
	} else {
		entry.Status = model.NotificationStatusSuccess
	}

	if err := s.notifRepo.Append(ctx, entry); err != nil {
		s.logger.Error("エクスポート履歴の記録に失敗しました", slog.String("error", err.Error()))
	}

	if sendErr != nil {
		return fmt.Errorf("エクスポートメールの送信に失敗しました: %w", sendErr)
	}

	s.logger.Info("リスティング一覧を送信しました",
		slog.String("to", recipient),
		slog.Int("count", len(listings)),
	)
	return nil
}

// ProcessScheduledRules は定期送信が有効なルールの再送期限を確認し、
// 期限が来たルールの宛先へエクスポートを送信して次回送信時刻を更新する。
// スイープの末尾から呼ばれる。
func (s *BulkService) ProcessScheduledRules(ctx context.Context, rules []*model.AlertRule, now time.Time) {
	for _, r := range rules {
		if !r.EnableScheduledEmail || r.EmailIntervalHours <= 0 {
			continue
		}
		if r.NextEmailSendAt != nil && r.NextEmailSendAt.After(now) {
			continue
		}

		for _, email := range SplitEmails(r.EmailsToNotify) {
			if err := s.ExportAll(ctx, email, r.SiteID); err != nil {
				s.logger.Warn("定期エクスポートの送信に失敗しました",
					slog.String("rule_id", r.ID),
					slog.String("to", email),
					slog.String("error", err.Error()),
				)
			}
		}

		next := now.Add(time.Duration(r.EmailIntervalHours) * time.Hour)
		if err := s.ruleRepo.UpdateEmailSchedule(ctx, r.ID, now, next); err != nil {
			s.logger.Error("ルールの次回送信時刻の更新に失敗しました",
				slog.String("rule_id", r.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// buildListingTable はリスティング一覧のHTMLテーブル本文を組み立てる。
func buildListingTable(listings []*model.Listing) string {
	var b strings.Builder
	b.WriteString("<html><body style='font-family: Arial, sans-serif;'>\n")
	fmt.Fprintf(&b, "<h2>İlan Listesi (%d adet)</h2>\n", len(listings))
	b.WriteString("<table border='1' cellpadding='6' cellspacing='0' style='border-collapse: collapse;'>\n")
	b.WriteString("<tr><th>Başlık</th><th>Firma</th><th>Fiyat</th><th>Şehir</th><th>İlk Görülme</th><th>Link</th></tr>\n")

	for _, listing := range listings {
		price := "-"
		if listing.Price != nil {
			price = listing.Price.StringFixed(2) + " TL"
		}
		city := listing.City
		if city == "" {
			city = "-"
		}
		company := listing.Company
		if company == "" {
			company = "-"
		}

		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td><a href='%s'>aç</a></td></tr>\n",
			html.EscapeString(listing.Title),
			html.EscapeString(company),
			price,
			html.EscapeString(city),
			listing.FirstSeenAt.Format("02.01.2006 15:04"),
			html.EscapeString(listing.URL),
		)
	}

	b.WriteString("</table>\n</body></html>\n")
	return b.String()
}
