package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/postwriter/internal/middleware"
	"github.com/hitoshi/postwriter/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	signInErr    error
	verifyToken  string
	verifyErr    error
	requestedFor []string
	user         *model.User
	userErr      error
}

func (m *mockAuthService) RequestSignIn(ctx context.Context, email string) error {
	m.requestedFor = append(m.requestedFor, email)
	return m.signInErr
}
func (m *mockAuthService) VerifySignIn(ctx context.Context, email, token string) (string, error) {
	if m.verifyErr != nil {
		return "", m.verifyErr
	}
	return m.verifyToken, nil
}
func (m *mockAuthService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return m.user, m.userErr
}

type stubVerifier struct {
	userID string
	ok     bool
}

func (s *stubVerifier) Verify(token string) (string, bool) {
	return s.userID, s.ok
}

func newTestAuthHandler(service *mockAuthService, verifier *stubVerifier) *AuthHandler {
	return NewAuthHandler(service, verifier, AuthHandlerConfig{
		CookieSecure:  false,
		SessionMaxAge: 3600,
	})
}

// --- SignIn ---

func TestAuthHandler_SignIn_Success(t *testing.T) {
	service := &mockAuthService{}
	h := newTestAuthHandler(service, &stubVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin",
		strings.NewReader(`{"email":"user@example.com"}`))
	w := httptest.NewRecorder()

	h.SignIn(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if len(service.requestedFor) != 1 || service.requestedFor[0] != "user@example.com" {
		t.Errorf("サインイン要求先 = %v, want [user@example.com]", service.requestedFor)
	}
}

func TestAuthHandler_SignIn_InvalidJSON_Returns400(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{}, &stubVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", strings.NewReader("{invalid"))
	w := httptest.NewRecorder()

	h.SignIn(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestAuthHandler_SignIn_ValidationError_Returns422(t *testing.T) {
	service := &mockAuthService{signInErr: model.NewValidationError("メールアドレスが指定されていません")}
	h := newTestAuthHandler(service, &stubVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", strings.NewReader(`{"email":""}`))
	w := httptest.NewRecorder()

	h.SignIn(w, req)

	if w.Result().StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnprocessableEntity)
	}
}

// --- Verify ---

func TestAuthHandler_Verify_SetsSessionCookieAndRedirects(t *testing.T) {
	service := &mockAuthService{verifyToken: "session-token-abc"}
	h := newTestAuthHandler(service, &stubVerifier{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify?email=user@example.com&token=tok", nil)
	w := httptest.NewRecorder()

	h.Verify(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := resp.Header.Get("Location"); loc != "/dashboard" {
		t.Errorf("Location = %q, want %q", loc, "/dashboard")
	}

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("セッションCookieが設定されていない")
	}
	if sessionCookie.Value != "session-token-abc" {
		t.Errorf("Cookie値 = %q, want %q", sessionCookie.Value, "session-token-abc")
	}
	if !sessionCookie.HttpOnly {
		t.Error("セッションCookieはHttpOnlyであるべき")
	}
}

func TestAuthHandler_Verify_InvalidToken_Returns401(t *testing.T) {
	service := &mockAuthService{verifyErr: model.NewTokenInvalidError()}
	h := newTestAuthHandler(service, &stubVerifier{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify?email=user@example.com&token=bad", nil)
	w := httptest.NewRecorder()

	h.Verify(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			t.Error("検証失敗時にセッションCookieが設定された")
		}
	}
}

// --- Logout ---

func TestAuthHandler_Logout_ClearsSessionCookie(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{}, &stubVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "some-token"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("削除用のセッションCookieが設定されていない")
	}
	if sessionCookie.MaxAge >= 0 {
		t.Errorf("MaxAge = %d, want 負の値（削除指示）", sessionCookie.MaxAge)
	}
	if sessionCookie.Value != "" {
		t.Errorf("Cookie値 = %q, want 空", sessionCookie.Value)
	}
}

// --- Me ---

func TestAuthHandler_Me_WithValidSession_ReturnsUser(t *testing.T) {
	service := &mockAuthService{user: &model.User{ID: "user-1", Name: "一郎", Email: "user@example.com"}}
	h := newTestAuthHandler(service, &stubVerifier{userID: "user-1", ok: true})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "valid"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body userResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスボディのデコードに失敗した: %v", err)
	}
	if body.ID != "user-1" || body.Email != "user@example.com" {
		t.Errorf("ユーザー情報が不正: %+v", body)
	}
}

func TestAuthHandler_Me_WithoutCookie_Returns401(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{}, &stubVerifier{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthHandler_Me_WithInvalidSession_Returns401(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{}, &stubVerifier{ok: false})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "tampered"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}
