// Package auth はメールサインインフローとセッション発行を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/postwriter/internal/mail"
	"github.com/hitoshi/postwriter/internal/model"
	"github.com/hitoshi/postwriter/internal/repository"
)

// SessionIssuer はセッショントークンの発行に必要なインターフェース。
// session.Codecの部分集合として定義する。
type SessionIssuer interface {
	Issue(userID string) (string, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BaseURL  string        // マジックリンクのベースURL
	MailFrom string        // 送信元アドレス
	TokenTTL time.Duration // 検証トークンの有効期間
}

// Service はメールサインインに関するビジネスロジックを提供する。
// サインイン要求で検証トークンを発行・送信し、検証成功時にトークンを
// 消費してセッションを発行する。未登録ユーザーは初回検証時に自動作成する。
type Service struct {
	userRepo  repository.UserRepository
	tokenRepo repository.VerificationTokenRepository
	sessions  SessionIssuer
	mailer    mail.Mailer
	config    ServiceConfig
	// now はテストで時刻を固定するためのフック。
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	tokenRepo repository.VerificationTokenRepository,
	sessions SessionIssuer,
	mailer mail.Mailer,
	config ServiceConfig,
) *Service {
	if config.TokenTTL == 0 {
		config.TokenTTL = 24 * time.Hour
	}
	return &Service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		sessions:  sessions,
		mailer:    mailer,
		config:    config,
		now:       time.Now,
	}
}

// RequestSignIn はメールサインインを開始する。
// 検証トークンを作成し、マジックリンクをメールで送信する。
func (s *Service) RequestSignIn(ctx context.Context, email string) error {
	if email == "" {
		return model.NewValidationError("メールアドレスが指定されていません")
	}

	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("検証トークンの生成に失敗しました: %w", err)
	}

	vt := &model.VerificationToken{
		Identifier: email,
		Token:      token,
		Expires:    s.now().Add(s.config.TokenTTL),
	}
	if err := s.tokenRepo.Create(ctx, vt); err != nil {
		return fmt.Errorf("検証トークンの保存に失敗しました: %w", err)
	}

	link := fmt.Sprintf("%s/api/auth/verify?email=%s&token=%s",
		s.config.BaseURL, url.QueryEscape(email), url.QueryEscape(token))

	msg := mail.Message{
		From:    s.config.MailFrom,
		To:      email,
		Subject: "Verify your email address",
		HTML:    fmt.Sprintf(`<p>Click <a href="%s">here</a> to verify your email address</p>`, link),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("サインインメールの送信に失敗しました: %w", err)
	}

	slog.Info("sign-in requested", slog.String("email", email))
	return nil
}

// VerifySignIn はマジックリンクのトークンを検証し、セッショントークンを発行する。
// トークンは一度の検証で消費（削除）される。期限切れ・不一致のトークンは
// TOKEN_INVALIDエラーとなり、ユーザーは作成されない。
// 未登録のメールアドレスの場合は検証成功時にユーザーを自動作成する。
func (s *Service) VerifySignIn(ctx context.Context, email, token string) (sessionToken string, err error) {
	if email == "" || token == "" {
		return "", model.NewTokenInvalidError()
	}

	vt, err := s.tokenRepo.FindByIdentifierAndToken(ctx, email, token)
	if err != nil {
		return "", fmt.Errorf("検証トークンの取得に失敗しました: %w", err)
	}
	if vt == nil {
		return "", model.NewTokenInvalidError()
	}

	// 期限切れトークンは使用不可（クリーンアップジョブによる回収を待たず拒否する）
	if !vt.Expires.After(s.now()) {
		return "", model.NewTokenInvalidError()
	}

	// トークンを消費する
	if err := s.tokenRepo.Delete(ctx, email, token); err != nil {
		return "", fmt.Errorf("検証トークンの削除に失敗しました: %w", err)
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	if user == nil {
		// 初回サインイン: ユーザーを自動作成
		now := s.now()
		user = &model.User{
			ID:        uuid.New().String(),
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return "", fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
		}
		slog.Info("new user created",
			slog.String("user_id", user.ID),
			slog.String("email", email),
		)
	} else {
		slog.Info("existing user signed in",
			slog.String("user_id", user.ID),
		)
	}

	sessionToken, err = s.sessions.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("セッショントークンの発行に失敗しました: %w", err)
	}

	return sessionToken, nil
}

// GetUser は指定IDのユーザーを取得する。見つからない場合はエラーを返す。
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// generateToken は暗号的に安全な検証トークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
