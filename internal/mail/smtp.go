// Package mail はSMTP経由のメール送信を提供する。
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// Settings はSMTP接続の設定。
type Settings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPMailer はgo-mailクライアントをラップしたHTMLメール送信器。
type SMTPMailer struct {
	client   *gomail.Client
	from     string
	fromName string
}

// NewSMTPMailer は設定からSMTPMailerを生成する。
// ユーザー名が空の場合は認証なしで接続する。
// TLSは利用可能な場合にのみ使用する（STARTTLS機会的暗号化）。
func NewSMTPMailer(settings Settings) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(settings.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if settings.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(settings.Username),
			gomail.WithPassword(settings.Password),
		)
	}

	client, err := gomail.NewClient(settings.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("SMTPクライアントの生成に失敗しました: %w", err)
	}

	return &SMTPMailer{
		client:   client,
		from:     settings.From,
		fromName: settings.FromName,
	}, nil
}

// Send はHTML本文のメールを1通送信する。
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return fmt.Errorf("送信元アドレスが不正です: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("宛先アドレスが不正です: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("メール送信に失敗しました: %w", err)
	}

	return nil
}

// TestConnection はSMTPサーバーへの接続と認証を確認する。
func (m *SMTPMailer) TestConnection(ctx context.Context) error {
	if err := m.client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("SMTP接続に失敗しました: %w", err)
	}
	if err := m.client.Close(); err != nil {
		return fmt.Errorf("SMTP切断に失敗しました: %w", err)
	}
	return nil
}
