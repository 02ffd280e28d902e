// Package post は記事のCRUDに関するビジネスロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/postwriter/internal/model"
	"github.com/hitoshi/postwriter/internal/quota"
	"github.com/hitoshi/postwriter/internal/repository"
	"github.com/hitoshi/postwriter/internal/security"
)

// maxTitleLength は記事タイトルの最大文字数。
const maxTitleLength = 128

// QuotaEnforcer は記事作成可否の判定に必要なインターフェース。
// quota.Enforcerの部分集合として定義する。
type QuotaEnforcer interface {
	CanCreatePost(ctx context.Context, user *model.User) (quota.Decision, error)
}

// PostRecorder は記事関連メトリクスの記録に必要なインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type PostRecorder interface {
	RecordPostCreated()
	RecordQuotaDenied()
}

// UpdatePostInput は記事更新の入力。nilのフィールドは変更しない。
type UpdatePostInput struct {
	Title     *string
	Content   *string
	Published *bool
}

// Service は記事に関するビジネスロジックを提供する。
// 作成時はクォータ判定と本文サニタイズを行い、
// 更新・削除は作成者本人にのみ許可する。
type Service struct {
	posts     repository.PostRepository
	users     repository.UserRepository
	quota     QuotaEnforcer
	sanitizer security.ContentSanitizerService
	recorder  PostRecorder
	// now はテストで時刻を固定するためのフック。
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	posts repository.PostRepository,
	users repository.UserRepository,
	quota QuotaEnforcer,
	sanitizer security.ContentSanitizerService,
	recorder PostRecorder,
) *Service {
	return &Service{
		posts:     posts,
		users:     users,
		quota:     quota,
		sanitizer: sanitizer,
		recorder:  recorder,
		now:       time.Now,
	}
}

// Create は新しい記事を作成する。
// クォータ判定が拒否の場合はPOST_LIMIT_REACHEDエラーを返し、記事は作成しない。
// 本文は保存前にサニタイズされる。
func (s *Service) Create(ctx context.Context, authorID, title, content string) (*model.Post, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("記事作成のためのユーザー取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	decision, err := s.quota.CanCreatePost(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("クォータ判定に失敗しました: %w", err)
	}
	if !decision.Allowed {
		s.recorder.RecordQuotaDenied()
		slog.Info("post creation denied by quota",
			slog.String("user_id", authorID),
			slog.String("reason", decision.Reason),
		)
		return nil, model.NewPostLimitError()
	}

	now := s.now()
	post := &model.Post{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   s.sanitizer.Sanitize(content),
		Published: false,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("記事の作成に失敗しました: %w", err)
	}

	s.recorder.RecordPostCreated()
	slog.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("user_id", authorID),
	)
	return post, nil
}

// Get は指定IDの記事を取得する。見つからない場合はPOST_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, postID string) (*model.Post, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	return post, nil
}

// List は指定ユーザーの記事一覧を更新日時の降順で返す。
func (s *Service) List(ctx context.Context, authorID string) ([]*model.Post, error) {
	posts, err := s.posts.ListByAuthorID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	return posts, nil
}

// Update は記事を更新する。作成者本人以外の更新はFORBIDDENエラーとなる。
func (s *Service) Update(ctx context.Context, userID, postID string, input UpdatePostInput) (*model.Post, error) {
	post, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, model.NewForbiddenError()
	}

	if input.Title != nil {
		if err := validateTitle(*input.Title); err != nil {
			return nil, err
		}
		post.Title = *input.Title
	}
	if input.Content != nil {
		post.Content = s.sanitizer.Sanitize(*input.Content)
	}
	if input.Published != nil {
		post.Published = *input.Published
	}
	post.UpdatedAt = s.now()

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("記事の更新に失敗しました: %w", err)
	}
	return post, nil
}

// Delete は記事を削除する。作成者本人以外の削除はFORBIDDENエラーとなる。
func (s *Service) Delete(ctx context.Context, userID, postID string) error {
	post, err := s.Get(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return model.NewForbiddenError()
	}

	if err := s.posts.DeleteByID(ctx, postID); err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}

	slog.Info("post deleted",
		slog.String("post_id", postID),
		slog.String("user_id", userID),
	)
	return nil
}

// validateTitle は記事タイトルを検証する。
func validateTitle(title string) error {
	if title == "" {
		return model.NewValidationError("タイトルが空です")
	}
	if len([]rune(title)) > maxTitleLength {
		return model.NewValidationError(fmt.Sprintf("タイトルは%d文字以内で指定してください", maxTitleLength))
	}
	return nil
}
