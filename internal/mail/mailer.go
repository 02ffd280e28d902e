// Package mail はサインインメールの送信を提供する。
package mail

import (
	"context"
	"log/slog"
)

// Message は送信するメールを表す。
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer はメール送信のインターフェース。
// 配信プロバイダーは外部コラボレーターであり、実装を差し替え可能にする。
type Mailer interface {
	// Send はメールを送信する。
	Send(ctx context.Context, msg Message) error
}

// LogMailer はメールを実際には送信せず、内容をログに出力するMailer。
// ローカル開発とテストで使用する。マジックリンクはログから取得できる。
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer はLogMailerを生成する。
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send はメールの内容をログに出力する。
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info("メールを送信しました（開発モード: ログ出力のみ）",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("html", msg.HTML),
	)
	return nil
}

// compile-time interface check
var _ Mailer = (*LogMailer)(nil)
