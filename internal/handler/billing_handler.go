package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/postwriter/internal/middleware"
	"github.com/hitoshi/postwriter/internal/model"
)

// webhookBodyLimit はStripe Webhookボディの最大サイズ。
const webhookBodyLimit = 65536

// BillingServiceInterface は課金ハンドラーが必要とするサービスインターフェース。
type BillingServiceInterface interface {
	// CreateBillingSession はチェックアウトまたはポータルセッションのURLを返す。
	CreateBillingSession(ctx context.Context, userID string) (string, error)
	// HandleWebhook はStripeから受信したWebhookイベントを処理する。
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// PlanResolverInterface はプラン照会に必要なインターフェース。
// plan.Resolverの部分集合として定義する。
type PlanResolverInterface interface {
	ResolveByID(ctx context.Context, userID string) (model.Plan, error)
}

// BillingHandler は課金関連のHTTPハンドラー。
type BillingHandler struct {
	service BillingServiceInterface
	plans   PlanResolverInterface
}

// NewBillingHandler はBillingHandlerを生成する。
func NewBillingHandler(service BillingServiceInterface, plans PlanResolverInterface) *BillingHandler {
	return &BillingHandler{
		service: service,
		plans:   plans,
	}
}

// billingSessionResponse は課金セッションのAPIレスポンス。
type billingSessionResponse struct {
	URL string `json:"url"`
}

// planResponse は現在プランのAPIレスポンス。
type planResponse struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	IsPro            bool   `json:"is_pro"`
	CurrentPeriodEnd int64  `json:"current_period_end,omitempty"`
}

// CreateSession はStripe課金セッションを作成する。
// POST /api/billing/checkout
func (h *BillingHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	url, err := h.service.CreateBillingSession(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, billingSessionResponse{URL: url})
}

// GetPlan は認証済みユーザーの現在プランを返す。
// GET /api/billing/plan
func (h *BillingHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	plan, err := h.plans.ResolveByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, planResponse{
		Name:             plan.Name,
		Description:      plan.Description,
		IsPro:            plan.IsPro,
		CurrentPeriodEnd: plan.CurrentPeriodEnd,
	})
}

// Webhook はStripe Webhookを受信する。
// 署名検証に失敗した場合は400を返し、Stripe側のリトライに委ねる。
// POST /api/billing/webhook
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil {
		slog.Error("failed to read webhook body", slog.String("error", err.Error()))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := h.service.HandleWebhook(r.Context(), payload, signature); err != nil {
		slog.Error("webhook handling failed", slog.String("error", err.Error()))
		http.Error(w, "webhook error", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
}
