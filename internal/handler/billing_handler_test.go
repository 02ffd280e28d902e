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

type mockBillingService struct {
	url          string
	sessionErr   error
	webhookErr   error
	gotPayload   []byte
	gotSignature string
}

func (m *mockBillingService) CreateBillingSession(ctx context.Context, userID string) (string, error) {
	if m.sessionErr != nil {
		return "", m.sessionErr
	}
	return m.url, nil
}
func (m *mockBillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	m.gotPayload = payload
	m.gotSignature = signature
	return m.webhookErr
}

type stubPlanResolver struct {
	plan model.Plan
	err  error
}

func (s *stubPlanResolver) ResolveByID(ctx context.Context, userID string) (model.Plan, error) {
	return s.plan, s.err
}

// --- CreateSession ---

func TestBillingHandler_CreateSession_ReturnsURL(t *testing.T) {
	h := NewBillingHandler(&mockBillingService{url: "https://checkout.stripe.com/c/pay_123"}, &stubPlanResolver{})

	req := httptest.NewRequest(http.MethodPost, "/api/billing/checkout", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()

	h.CreateSession(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body billingSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスボディのデコードに失敗した: %v", err)
	}
	if body.URL != "https://checkout.stripe.com/c/pay_123" {
		t.Errorf("url = %q, want チェックアウトURL", body.URL)
	}
}

func TestBillingHandler_CreateSession_WithoutUser_Returns401(t *testing.T) {
	h := NewBillingHandler(&mockBillingService{}, &stubPlanResolver{})

	req := httptest.NewRequest(http.MethodPost, "/api/billing/checkout", nil)
	w := httptest.NewRecorder()

	h.CreateSession(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- GetPlan ---

func TestBillingHandler_GetPlan_ReturnsResolvedPlan(t *testing.T) {
	plan := model.ProPlan
	plan.CurrentPeriodEnd = 1700000000000
	h := NewBillingHandler(&mockBillingService{}, &stubPlanResolver{plan: plan})

	req := httptest.NewRequest(http.MethodGet, "/api/billing/plan", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()

	h.GetPlan(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body planResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスボディのデコードに失敗した: %v", err)
	}
	if !body.IsPro {
		t.Error("is_pro = false, want true")
	}
	if body.CurrentPeriodEnd != 1700000000000 {
		t.Errorf("current_period_end = %d, want 1700000000000", body.CurrentPeriodEnd)
	}
}

func TestBillingHandler_GetPlan_UserNotFound_Returns404(t *testing.T) {
	h := NewBillingHandler(&mockBillingService{}, &stubPlanResolver{err: model.NewUserNotFoundError()})

	req := httptest.NewRequest(http.MethodGet, "/api/billing/plan", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "ghost"))
	w := httptest.NewRecorder()

	h.GetPlan(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

// --- Webhook ---

func TestBillingHandler_Webhook_PassesPayloadAndSignature(t *testing.T) {
	service := &mockBillingService{}
	h := NewBillingHandler(service, &stubPlanResolver{})

	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", strings.NewReader(`{"type":"checkout.session.completed"}`))
	req.Header.Set("Stripe-Signature", "t=123,v1=abc")
	w := httptest.NewRecorder()

	h.Webhook(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if string(service.gotPayload) != `{"type":"checkout.session.completed"}` {
		t.Errorf("ペイロード = %s, want 受信ボディそのまま", service.gotPayload)
	}
	if service.gotSignature != "t=123,v1=abc" {
		t.Errorf("署名 = %q, want %q", service.gotSignature, "t=123,v1=abc")
	}
}

func TestBillingHandler_Webhook_HandlingFailure_Returns400(t *testing.T) {
	service := &mockBillingService{webhookErr: context.DeadlineExceeded}
	h := NewBillingHandler(service, &stubPlanResolver{})

	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.Webhook(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}
