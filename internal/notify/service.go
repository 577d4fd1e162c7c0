// Package notify はルールに一致した新着リスティングのメール通知を行う。
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

// Mailer はメール送信のインターフェース。
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// DeliveryRecorder は通知送信結果のメトリクス記録インターフェース。
type DeliveryRecorder interface {
	RecordNotificationSent()
	RecordNotificationFailed()
}

// Service は新着リスティングのアラートメールを宛先ごとに送信し、
// 結果を通知履歴に記録する。
type Service struct {
	notifRepo repository.NotificationRepository
	mailer    Mailer
	recorder  DeliveryRecorder // nilの場合はメトリクスを記録しない
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(notifRepo repository.NotificationRepository, mailer Mailer, recorder DeliveryRecorder, logger *slog.Logger) *Service {
	return &Service{notifRepo: notifRepo, mailer: mailer, recorder: recorder, logger: logger}
}

// Notify はルールの各宛先にアラートメールを送信する。
// 宛先ごとに成功・失敗の履歴行を1件ずつ追記し、
// ある宛先の送信失敗が他の宛先への送信を妨げることはない。
func (s *Service) Notify(ctx context.Context, r *model.AlertRule, listing *model.Listing) {
	subject := fmt.Sprintf("İlan takip uygulaması %s", time.Now().Format("02.01.2006 15:04"))
	body := buildAlertBody(r, listing)

	for _, email := range SplitEmails(r.EmailsToNotify) {
		entry := &model.NotificationLog{
			RuleID:    r.ID,
			ListingID: listing.ID,
			ToEmail:   email,
		}

		if err := s.mailer.Send(ctx, email, subject, body); err != nil {
			s.logger.Warn("通知メールの送信に失敗しました",
				slog.String("rule_id", r.ID),
				slog.String("listing_id", listing.ID),
				slog.String("to", email),
				slog.String("error", err.Error()),
			)
			entry.Status = model.NotificationStatusFailed
			entry.ErrorMessage = err.Error()
			if s.recorder != nil {
				s.recorder.RecordNotificationFailed()
			}
		} else {
			entry.Status = model.NotificationStatusSuccess
			if s.recorder != nil {
				s.recorder.RecordNotificationSent()
			}
		}

		if err := s.notifRepo.Append(ctx, entry); err != nil {
			s.logger.Error("通知履歴の記録に失敗しました",
				slog.String("rule_id", r.ID),
				slog.String("to", email),
				slog.String("error", err.Error()),
			)
		}
	}
}

// SplitEmails はカンマ区切りの宛先リストを正規化して分解する。
func SplitEmails(emails string) []string {
	var result []string
	for _, part := range strings.Split(emails, ",") {
		email := strings.TrimSpace(part)
		if email != "" {
			result = append(result, email)
		}
	}
	return result
}

// buildAlertBody はアラートメールのHTML本文を組み立てる。
func buildAlertBody(r *model.AlertRule, listing *model.Listing) string {
	var b strings.Builder
	b.WriteString("<html><body style='font-family: Arial, sans-serif;'>\n")
	b.WriteString("<h2>yeni düşen ilanlar</h2>\n<hr/>\n")
	fmt.Fprintf(&b, "<p><strong>Başlık:</strong> %s</p>\n", html.EscapeString(listing.Title))

	if listing.Price != nil {
		fmt.Fprintf(&b, "<p><strong>Fiyat:</strong> %s TL</p>\n", listing.Price.StringFixed(2))
	}
	if listing.City != "" {
		fmt.Fprintf(&b, "<p><strong>Şehir:</strong> %s</p>\n", html.EscapeString(listing.City))
	}

	fmt.Fprintf(&b, "<p><strong>Kural:</strong> %s</p>\n", html.EscapeString(r.Name))
	escapedURL := html.EscapeString(listing.URL)
	fmt.Fprintf(&b, "<p><strong>Link:</strong> <a href='%s'>%s</a></p>\n", escapedURL, escapedURL)
	b.WriteString("<hr/>\n")
	fmt.Fprintf(&b, "<p style='color: gray; font-size: 12px;'>Bu mail %s tarihinde otomatik gönderilmiştir.</p>\n",
		time.Now().Format("02.01.2006 15:04"))
	b.WriteString("</body></html>\n")

	return b.String()
}
