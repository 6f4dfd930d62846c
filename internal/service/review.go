package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"counseling-api/internal/apperr"
	"counseling-api/internal/cache"
	"counseling-api/internal/model"
	"counseling-api/internal/store"
)

const (
	MaxReviewContentLen = 2000
	MaxReviewTags       = 5
	MaxTagLen           = 10
)

type ReviewStore interface {
	ConsultantByID(ctx context.Context, id string) (*model.Consultant, error)
	AppointmentByID(ctx context.Context, id string) (*model.Appointment, error)
	CreateReview(ctx context.Context, r *model.Review) error
	ListUserReviews(ctx context.Context, userID string) ([]model.Review, error)
}

type ReviewService struct {
	base
	store ReviewStore
	cache cache.Cache
}

func NewReviewService(st ReviewStore, c cache.Cache, log *zap.Logger) *ReviewService {
	if c == nil {
		c = cache.Nop{}
	}
	return &ReviewService{base: newBase(log), store: st, cache: c}
}

type CreateReviewInput struct {
	ConsultantID  string
	AppointmentID *string
	Rating        int
	Content       *string
	Tags          []string
}

func validateReview(in CreateReviewInput) error {
	if in.Rating < 1 || in.Rating > 5 {
		return apperr.Validation("评分需在1到5之间")
	}
	if in.Content != nil && runeLen(*in.Content) > MaxReviewContentLen {
		return apperr.Validation("评价内容不能超过2000字")
	}
	if len(in.Tags) > MaxReviewTags {
		return apperr.Validation("标签最多5个")
	}
	for _, t := range in.Tags {
		if n := runeLen(t); n < 1 || n > MaxTagLen {
			return apperr.Validation("标签长度需在1到10之间")
		}
	}
	return nil
}

func (s *ReviewService) Create(ctx context.Context, userID string, in CreateReviewInput) (*model.Review, error) {
	if err := validateReview(in); err != nil {
		return nil, err
	}
	if _, err := s.store.ConsultantByID(ctx, in.ConsultantID); err != nil {
		return nil, s.notFoundOr("load consultant", err, apperr.ErrConsultantNotFound)
	}
	if in.AppointmentID != nil {
		a, err := s.store.AppointmentByID(ctx, *in.AppointmentID)
		if err != nil {
			return nil, s.notFoundOr("load appointment", err, apperr.ErrAppointmentNotFound)
		}
		if a.UserID != userID {
			return nil, apperr.ErrAppointmentNotFound
		}
		if a.ConsultantID != in.ConsultantID {
			return nil, apperr.InvalidArg("预约与咨询师不匹配")
		}
	}

	r := &model.Review{
		ID:            uuid.New().String(),
		UserID:        userID,
		ConsultantID:  in.ConsultantID,
		AppointmentID: in.AppointmentID,
		Rating:        in.Rating,
		Content:       in.Content,
		Tags:          in.Tags,
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if err := s.store.CreateReview(ctx, r); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, apperr.ErrAlreadyReviewed
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.ErrConsultantNotFound
		}
		return nil, s.internal("create review", err)
	}

	// rating changed
	if err := s.cache.Delete(ctx, cache.KeyConsultantList, cache.ConsultantKey(in.ConsultantID)); err != nil {
		s.log.Warn("consultant cache invalidation failed", zap.Error(err))
	}
	return r, nil
}

func (s *ReviewService) ListMine(ctx context.Context, userID string) ([]model.Review, error) {
	out, err := s.store.ListUserReviews(ctx, userID)
	if err != nil {
		return nil, s.internal("list user reviews", err)
	}
	return out, nil
}
