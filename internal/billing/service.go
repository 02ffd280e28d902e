// Package billing はStripeを使った課金（Proプランのサブスクリプション）を提供する。
//
// チェックアウトセッションの作成とStripe Webhookの処理を担当し、
// 課金状態の変化をユーザーのStripe系フィールドに反映する。
// プラン判定そのものはplanパッケージが行う。
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v78"
	portalsession "github.com/stripe/stripe-go/v78/billingportal/session"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/customer"
	"github.com/stripe/stripe-go/v78/subscription"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/hitoshi/postwriter/internal/model"
	"github.com/hitoshi/postwriter/internal/repository"
)

// PlanResolver はユーザーの現在プランを解決するインターフェース。
// plan.Resolverの部分集合として定義する。
type PlanResolver interface {
	Resolve(user *model.User) model.Plan
}

// ServiceConfig は課金サービスの設定。
type ServiceConfig struct {
	APIKey        string // Stripe APIシークレットキー
	WebhookSecret string // Webhook署名検証シークレット
	ProPriceID    string // ProプランのStripe Price ID
	BaseURL       string // チェックアウト完了後の戻り先ベースURL
}

// Service はStripe課金に関するビジネスロジックを提供する。
type Service struct {
	users  repository.UserRepository
	plans  PlanResolver
	config ServiceConfig

	// fetchSubscription はテストでStripe API呼び出しを差し替えるためのフック。
	fetchSubscription func(subscriptionID string) (*stripe.Subscription, error)
}

// NewService はServiceを生成し、StripeクライアントにAPIキーを設定する。
func NewService(users repository.UserRepository, plans PlanResolver, config ServiceConfig) *Service {
	stripe.Key = config.APIKey
	return &Service{
		users:  users,
		plans:  plans,
		config: config,
		fetchSubscription: func(subscriptionID string) (*stripe.Subscription, error) {
			return subscription.Get(subscriptionID, nil)
		},
	}
}

// CreateBillingSession はユーザーの課金状態に応じたStripeセッションのURLを返す。
//   - Proユーザー: 既存サブスクリプション管理用のカスタマーポータルセッション
//   - Freeユーザー: Proプラン購入用のチェックアウトセッション
//
// Stripe上の顧客が未作成の場合はこのタイミングで作成し、ユーザーに紐付ける。
func (s *Service) CreateBillingSession(ctx context.Context, userID string) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("課金セッション作成のためのユーザー取得に失敗しました: %w", err)
	}
	if user == nil {
		return "", model.NewUserNotFoundError()
	}

	returnURL := s.config.BaseURL + "/dashboard/billing"

	// 課金中のユーザーはチェックアウトではなくポータルで管理する
	if s.plans.Resolve(user).IsPro && user.StripeCustomerID != "" {
		ps, err := portalsession.New(&stripe.BillingPortalSessionParams{
			Customer:  stripe.String(user.StripeCustomerID),
			ReturnURL: stripe.String(returnURL),
		})
		if err != nil {
			return "", fmt.Errorf("カスタマーポータルセッションの作成に失敗しました: %w", err)
		}
		return ps.URL, nil
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		c, err := customer.New(&stripe.CustomerParams{
			Name:  stripe.String(user.Name),
			Email: stripe.String(user.Email),
		})
		if err != nil {
			return "", fmt.Errorf("Stripe顧客の作成に失敗しました: %w", err)
		}
		customerID = c.ID
	}

	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(customerID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(returnURL),
		CancelURL:  stripe.String(returnURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.config.ProPriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	cs, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("チェックアウトセッションの作成に失敗しました: %w", err)
	}

	slog.Info("checkout session created",
		slog.String("user_id", user.ID),
		slog.String("stripe_customer_id", customerID),
	)
	return cs.URL, nil
}

// HandleWebhook はStripeから受信したWebhookイベントを処理する。
// 署名検証に失敗した場合はエラーを返し、イベントは適用しない。
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
	if err != nil {
		return fmt.Errorf("Webhook署名の検証に失敗しました: %w", err)
	}
	return s.ApplyEvent(ctx, event)
}

// ApplyEvent は検証済みのStripeイベントを課金状態に反映する。
// 関心のないイベント種別はログに記録して無視する。
func (s *Service) ApplyEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return fmt.Errorf("checkout.sessionの読み取りに失敗しました: %w", err)
		}
		if cs.Subscription == nil || cs.Customer == nil {
			return fmt.Errorf("checkout.sessionにサブスクリプション情報がありません")
		}
		// 期間終了日時を得るため、完全なサブスクリプションを取得する
		sub, err := s.fetchSubscription(cs.Subscription.ID)
		if err != nil {
			return fmt.Errorf("サブスクリプションの取得に失敗しました: %w", err)
		}
		return s.applySubscription(ctx, cs.Customer.ID, sub)

	case "invoice.payment_succeeded":
		// 継続課金の更新。期間終了日時が先に延びる
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("invoiceの読み取りに失敗しました: %w", err)
		}
		if inv.Subscription == nil || inv.Customer == nil {
			return fmt.Errorf("invoiceにサブスクリプション情報がありません")
		}
		sub, err := s.fetchSubscription(inv.Subscription.ID)
		if err != nil {
			return fmt.Errorf("サブスクリプションの取得に失敗しました: %w", err)
		}
		return s.applySubscription(ctx, inv.Customer.ID, sub)

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("subscriptionの読み取りに失敗しました: %w", err)
		}
		if sub.Customer == nil {
			return fmt.Errorf("subscriptionに顧客情報がありません")
		}
		return s.applySubscription(ctx, sub.Customer.ID, &sub)

	default:
		slog.Info("未対応のStripeイベントを無視しました", slog.String("event_type", string(event.Type)))
		return nil
	}
}

// applySubscription はサブスクリプションの内容をユーザーの課金フィールドに反映する。
func (s *Service) applySubscription(ctx context.Context, customerID string, sub *stripe.Subscription) error {
	user, err := s.users.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		return fmt.Errorf("Stripe顧客IDによるユーザー検索に失敗しました: %w", err)
	}
	if user == nil {
		return fmt.Errorf("Stripe顧客 %s に対応するユーザーが存在しません", customerID)
	}

	var priceID string
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}
	periodEnd := time.Unix(sub.CurrentPeriodEnd, 0)

	if err := s.users.UpdateBilling(ctx, user.ID, customerID, sub.ID, priceID, periodEnd); err != nil {
		return fmt.Errorf("課金情報の更新に失敗しました: %w", err)
	}

	slog.Info("subscription applied",
		slog.String("user_id", user.ID),
		slog.String("subscription_id", sub.ID),
		slog.String("status", string(sub.Status)),
		slog.Time("current_period_end", periodEnd),
	)
	return nil
}
