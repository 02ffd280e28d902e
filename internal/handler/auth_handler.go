// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/postwriter/internal/middleware"
	"github.com/hitoshi/postwriter/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// RequestSignIn はメールサインインを開始し、マジックリンクを送信する。
	RequestSignIn(ctx context.Context, email string) error
	// VerifySignIn はマジックリンクのトークンを検証し、セッショントークンを発行する。
	VerifySignIn(ctx context.Context, email, token string) (string, error)
	// GetUser は指定IDのユーザーを取得する。
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// SessionVerifierInterface はセッショントークンの検証に必要なインターフェース。
// session.Codecの部分集合として定義する。
type SessionVerifierInterface interface {
	Verify(token string) (userID string, ok bool)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はメールサインイン関連のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	verifier SessionVerifierInterface
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, verifier SessionVerifierInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		verifier: verifier,
		config:   config,
	}
}

// signInRequest はサインイン要求リクエストのボディ。
type signInRequest struct {
	Email string `json:"email"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// SignIn はメールサインインを開始する。
// POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if err := h.service.RequestSignIn(r.Context(), req.Email); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "サインインリンクをメールで送信しました。",
	})
}

// Verify はマジックリンクのトークンを検証し、セッションCookieを設定する。
// GET /api/auth/verify?email=xxx&token=yyy
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	token := r.URL.Query().Get("token")

	sessionToken, err := h.service.VerifySignIn(r.Context(), email, token)
	if err != nil {
		logSignInFailure(email, err)
		handleServiceError(w, err)
		return
	}

	// セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
}

// Logout はセッションCookieを削除する。
// セッションはステートレスなため、サーバー側に破棄する状態はない。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Me は認証済みユーザー自身の情報を返す。
// /api/auth以下はPublicルートでコンテキストにユーザーが注入されないため、
// ここでセッションCookieを直接検証する。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	userID, ok := h.verifier.Verify(cookie.Value)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Image: user.Image,
	})
}

// logSignInFailure はサインイン失敗の監査ログを出力する。
func logSignInFailure(email string, err error) {
	slog.Warn("sign-in verification failed",
		slog.String("email", email),
		slog.String("error", err.Error()),
	)
}
