package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/postwriter/internal/model"
)

// fakePlanResolver はPlanResolverのテスト用実装。
type fakePlanResolver struct {
	isPro bool
}

func (f *fakePlanResolver) Resolve(user *model.User) model.Plan {
	if f.isPro {
		return model.ProPlan
	}
	return model.FreePlan
}

// mockPostRepo はPostRepositoryのテスト用実装。カウントのみ使用する。
type mockPostRepo struct {
	count       int
	countErr    error
	countCalled bool
}

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	return nil, nil
}
func (m *mockPostRepo) CountByAuthorID(ctx context.Context, authorID string) (int, error) {
	m.countCalled = true
	return m.count, m.countErr
}
func (m *mockPostRepo) ListByAuthorID(ctx context.Context, authorID string) ([]*model.Post, error) {
	return nil, nil
}
func (m *mockPostRepo) Create(ctx context.Context, post *model.Post) error { return nil }
func (m *mockPostRepo) Update(ctx context.Context, post *model.Post) error { return nil }
func (m *mockPostRepo) DeleteByID(ctx context.Context, id string) error    { return nil }

func TestEnforcer_ProUser_AlwaysAllowed(t *testing.T) {
	posts := &mockPostRepo{count: 50}
	e := NewEnforcer(&fakePlanResolver{isPro: true}, posts)

	d, err := e.CanCreatePost(context.Background(), &model.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("CanCreatePost() がエラーを返した: %v", err)
	}
	if !d.Allowed {
		t.Error("Proユーザーは記事数に関わらず許可されるべき")
	}
	if posts.countCalled {
		t.Error("Proユーザーに対して記事カウントは不要")
	}
}

func TestEnforcer_FreeUser_UnderLimit_Allowed(t *testing.T) {
	// 既存2件のFreeユーザーは3件目を作成できる
	e := NewEnforcer(&fakePlanResolver{}, &mockPostRepo{count: 2})

	d, err := e.CanCreatePost(context.Background(), &model.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("CanCreatePost() がエラーを返した: %v", err)
	}
	if !d.Allowed {
		t.Error("上限未満のFreeユーザーは許可されるべき")
	}
}

func TestEnforcer_FreeUser_AtLimit_Denied(t *testing.T) {
	// 既存3件のFreeユーザーは拒否される
	e := NewEnforcer(&fakePlanResolver{}, &mockPostRepo{count: 3})

	d, err := e.CanCreatePost(context.Background(), &model.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("CanCreatePost() がエラーを返した: %v", err)
	}
	if d.Allowed {
		t.Error("上限に達したFreeユーザーは拒否されるべき")
	}
	if d.Reason == "" {
		t.Error("拒否判定には理由が付与されるべき")
	}
}

func TestEnforcer_FreeUser_OverLimit_Denied(t *testing.T) {
	e := NewEnforcer(&fakePlanResolver{}, &mockPostRepo{count: 10})

	d, err := e.CanCreatePost(context.Background(), &model.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("CanCreatePost() がエラーを返した: %v", err)
	}
	if d.Allowed {
		t.Error("上限を超えたFreeユーザーは拒否されるべき")
	}
}

func TestEnforcer_FreeUser_ZeroPosts_Allowed(t *testing.T) {
	e := NewEnforcer(&fakePlanResolver{}, &mockPostRepo{count: 0})

	d, err := e.CanCreatePost(context.Background(), &model.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("CanCreatePost() がエラーを返した: %v", err)
	}
	if !d.Allowed {
		t.Error("記事のないFreeユーザーは許可されるべき")
	}
}

func TestEnforcer_StorageFault_ReturnsError(t *testing.T) {
	e := NewEnforcer(&fakePlanResolver{}, &mockPostRepo{countErr: errors.New("db down")})

	_, err := e.CanCreatePost(context.Background(), &model.User{ID: "user-1"})
	if err == nil {
		t.Fatal("ストレージ障害は拒否判定ではなくエラーとして返すべき")
	}
}
