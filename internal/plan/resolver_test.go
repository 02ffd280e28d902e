package plan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/postwriter/internal/model"
)

// mockUserRepo はUserRepositoryのテスト用実装。
type mockUserRepo struct {
	user *model.User
	err  error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.user, m.err
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) UpdateBilling(ctx context.Context, userID, customerID, subscriptionID, priceID string, currentPeriodEnd time.Time) error {
	return nil
}
func (m *mockUserRepo) FindByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	return nil, nil
}

func fixedResolver(now time.Time) *Resolver {
	r := NewResolver(&mockUserRepo{})
	r.now = func() time.Time { return now }
	return r
}

func TestResolver_Resolve_NoBillingFields_IsFree(t *testing.T) {
	r := fixedResolver(time.Now())

	p := r.Resolve(&model.User{ID: "user-1"})
	if p.IsPro {
		t.Error("課金フィールドのないユーザーはFreeであるべき")
	}
	if p.Name != "Free" {
		t.Errorf("プラン名 = %q, want %q", p.Name, "Free")
	}
	if p.CurrentPeriodEnd != 0 {
		t.Errorf("CurrentPeriodEnd = %d, want 0", p.CurrentPeriodEnd)
	}
}

func TestResolver_Resolve_ActiveSubscription_IsPro(t *testing.T) {
	now := time.Now()
	r := fixedResolver(now)

	periodEnd := now.Add(20 * 24 * time.Hour)
	user := &model.User{
		ID:                     "user-1",
		StripePriceID:          "price_pro",
		StripeCurrentPeriodEnd: &periodEnd,
	}

	p := r.Resolve(user)
	if !p.IsPro {
		t.Error("有効なサブスクリプションを持つユーザーはProであるべき")
	}
	if p.StripePriceID != "price_pro" {
		t.Errorf("StripePriceID = %q, want %q", p.StripePriceID, "price_pro")
	}
	if p.CurrentPeriodEnd != periodEnd.UnixMilli() {
		t.Errorf("CurrentPeriodEnd = %d, want %d", p.CurrentPeriodEnd, periodEnd.UnixMilli())
	}
}

func TestResolver_Resolve_WithinGracePeriod_IsPro(t *testing.T) {
	now := time.Now()
	r := fixedResolver(now)

	// 期間終了から23時間経過: 24時間の猶予内なのでPro
	periodEnd := now.Add(-23 * time.Hour)
	user := &model.User{
		ID:                     "user-1",
		StripePriceID:          "price_pro",
		StripeCurrentPeriodEnd: &periodEnd,
	}

	if p := r.Resolve(user); !p.IsPro {
		t.Error("猶予期間内（期間終了から23時間）のユーザーはProであるべき")
	}
}

func TestResolver_Resolve_PastGracePeriod_IsFree(t *testing.T) {
	now := time.Now()
	r := fixedResolver(now)

	// 期間終了から25時間経過: 猶予を超えているのでFree
	periodEnd := now.Add(-25 * time.Hour)
	user := &model.User{
		ID:                     "user-1",
		StripePriceID:          "price_pro",
		StripeCurrentPeriodEnd: &periodEnd,
	}

	if p := r.Resolve(user); p.IsPro {
		t.Error("猶予期間を超えたユーザーはFreeであるべき")
	}
}

func TestResolver_Resolve_GraceBoundary_ExactlyAtLimit_IsPro(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	r := fixedResolver(now)

	// periodEnd + 猶予 == now ちょうどはPro（>=比較）
	periodEnd := now.Add(-24 * time.Hour)
	user := &model.User{
		ID:                     "user-1",
		StripePriceID:          "price_pro",
		StripeCurrentPeriodEnd: &periodEnd,
	}

	if p := r.Resolve(user); !p.IsPro {
		t.Error("猶予期間ちょうどの境界ではProであるべき")
	}
}

func TestResolver_Resolve_MissingPriceID_IsFree(t *testing.T) {
	now := time.Now()
	r := fixedResolver(now)

	// 期間は有効でもPriceIDがなければFree
	periodEnd := now.Add(20 * 24 * time.Hour)
	user := &model.User{
		ID:                     "user-1",
		StripeCurrentPeriodEnd: &periodEnd,
	}

	if p := r.Resolve(user); p.IsPro {
		t.Error("stripePriceIdのないユーザーはFreeであるべき")
	}
}

func TestResolver_ResolveByID_LoadsUser(t *testing.T) {
	periodEnd := time.Now().Add(20 * 24 * time.Hour)
	repo := &mockUserRepo{
		user: &model.User{
			ID:                     "user-1",
			StripePriceID:          "price_pro",
			StripeCurrentPeriodEnd: &periodEnd,
		},
	}
	r := NewResolver(repo)

	p, err := r.ResolveByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ResolveByID() がエラーを返した: %v", err)
	}
	if !p.IsPro {
		t.Error("有効なサブスクリプションを持つユーザーはProであるべき")
	}
}

func TestResolver_ResolveByID_UserNotFound_ReturnsError(t *testing.T) {
	r := NewResolver(&mockUserRepo{user: nil})

	_, err := r.ResolveByID(context.Background(), "missing")
	if err == nil {
		t.Fatal("存在しないユーザーに対してエラーを返すべき")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("エラー = %v, want USER_NOT_FOUND", err)
	}
}

func TestResolver_ResolveByID_StorageFault_ReturnsError(t *testing.T) {
	r := NewResolver(&mockUserRepo{err: errors.New("db down")})

	if _, err := r.ResolveByID(context.Background(), "user-1"); err == nil {
		t.Fatal("ストレージ障害時にエラーを返すべき")
	}
}
