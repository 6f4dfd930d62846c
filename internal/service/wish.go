package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"counseling-api/internal/apperr"
	"counseling-api/internal/auth"
	"counseling-api/internal/metrics"
	"counseling-api/internal/model"
	"counseling-api/internal/store"
)

var wishImagePath = regexp.MustCompile(`^wish/images/[\w.-]+$`)

type WishStore interface {
	CreateWish(ctx context.Context, w *model.Wish) error
	WishByID(ctx context.Context, id string) (*model.Wish, error)
	ListWishes(ctx context.Context, viewerID string, limit, offset int) ([]model.WishView, error)
	ToggleLike(ctx context.Context, wishID, userID string) (bool, int64, error)
	DeleteWish(ctx context.Context, id string) error
	UnreadWishCount(ctx context.Context, userID string) (int64, error)
	MarkWishesRead(ctx context.Context, userID string) error
	WishAuthor(ctx context.Context, wishID string) (*model.WishAuthor, error)
}

type WishService struct {
	base
	store WishStore
}

func NewWishService(st WishStore, log *zap.Logger) *WishService {
	return &WishService{base: newBase(log), store: st}
}

type CreateWishInput struct {
	Content   string
	Images    []string
	Anonymous *bool
	QuoteID   *string
}

type LikeResult struct {
	Liked     bool
	LikeCount int64
}

// AuthorCard is what a reader may learn about a wish's author.
type AuthorCard struct {
	Anonymous bool
	Name      *string
	JoinedAt  *time.Time
}

func (s *WishService) List(ctx context.Context, viewerID string, p Page) ([]model.WishView, error) {
	p = p.Normalize()
	out, err := s.store.ListWishes(ctx, viewerID, p.Size, p.Offset())
	if err != nil {
		return nil, s.internal("list wishes", err)
	}
	return out, nil
}

func (s *WishService) Create(ctx context.Context, authorID string, in CreateWishInput) (*model.Wish, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && len(in.Images) == 0 && in.QuoteID == nil {
		return nil, apperr.InvalidArg("内容、图片和引用至少填写一项")
	}
	if runeLen(content) > model.MaxWishContentLen {
		return nil, apperr.InvalidArg("内容不能超过1000字")
	}
	if len(in.Images) > model.MaxWishImages {
		return nil, apperr.InvalidArg("图片最多9张")
	}
	for _, img := range in.Images {
		if !wishImagePath.MatchString(img) {
			return nil, apperr.InvalidArg("图片路径不合法")
		}
	}
	if in.QuoteID != nil {
		if _, err := s.store.WishByID(ctx, *in.QuoteID); err != nil {
			return nil, s.notFoundOr("load quoted wish", err, apperr.ErrQuotedWishNotFound)
		}
	}

	anonymous := true
	if in.Anonymous != nil {
		anonymous = *in.Anonymous
	}
	w := &model.Wish{
		ID:        uuid.New().String(),
		UserID:    authorID,
		Content:   content,
		Images:    in.Images,
		Anonymous: anonymous,
		QuoteID:   in.QuoteID,
	}
	if w.Images == nil {
		w.Images = []string{}
	}
	if err := s.store.CreateWish(ctx, w); err != nil {
		return nil, s.internal("create wish", err)
	}
	metrics.WishEvent("create")
	return w, nil
}

func (s *WishService) ToggleLike(ctx context.Context, userID, wishID string) (LikeResult, error) {
	liked, n, err := s.store.ToggleLike(ctx, wishID, userID)
	if err != nil {
		return LikeResult{}, s.notFoundOr("toggle like", err, apperr.ErrWishNotFound)
	}
	if liked {
		metrics.WishEvent("like")
	} else {
		metrics.WishEvent("unlike")
	}
	return LikeResult{Liked: liked, LikeCount: n}, nil
}

// Delete removes a wish. Only its author or an admin may do so.
func (s *WishService) Delete(ctx context.Context, actor auth.Principal, id string) error {
	w, err := s.store.WishByID(ctx, id)
	if err != nil {
		return s.notFoundOr("load wish", err, apperr.ErrWishNotFound)
	}
	if !actor.Is(model.RoleAdmin) && w.UserID != actor.ID {
		return apperr.ErrNotWishAuthor
	}
	if err := s.store.DeleteWish(ctx, id); err != nil {
		// deleted concurrently
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return s.internal("delete wish", err)
	}
	metrics.WishEvent("delete")
	s.log.Info("wish deleted", zap.String("wish_id", id), zap.String("by", actor.ID))
	return nil
}

func (s *WishService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.UnreadWishCount(ctx, userID)
	if err != nil {
		return 0, s.internal("unread wishes", err)
	}
	return n, nil
}

func (s *WishService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.store.MarkWishesRead(ctx, userID); err != nil {
		return s.internal("mark wishes read", err)
	}
	return nil
}

func (s *WishService) AuthorCard(ctx context.Context, wishID string) (*AuthorCard, error) {
	a, err := s.store.WishAuthor(ctx, wishID)
	if err != nil {
		return nil, s.notFoundOr("wish author", err, apperr.ErrWishNotFound)
	}
	if a.Anonymous {
		return &AuthorCard{Anonymous: true}, nil
	}
	card := &AuthorCard{JoinedAt: &a.JoinedAt}
	if a.Name != "" && a.Name != model.DefaultUserName {
		name := a.Name
		card.Name = &name
	}
	return card, nil
}
