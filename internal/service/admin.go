package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"counseling-api/internal/apperr"
	"counseling-api/internal/auth"
	"counseling-api/internal/cache"
	"counseling-api/internal/model"
	"counseling-api/internal/store"
)

type AdminStore interface {
	CreateConsultant(ctx context.Context, c *model.Consultant) error
	UserByID(ctx context.Context, id string) (*model.User, error)
	ApplicationByID(ctx context.Context, id string) (*model.ConsultantApplication, error)
	ListApplications(ctx context.Context, status *model.ApplicationStatus) ([]model.ConsultantApplication, error)
	ResolveApplication(ctx context.Context, id string, status model.ApplicationStatus, comment *string, consultant *model.Consultant) error
}

type AdminService struct {
	base
	store AdminStore
	cache cache.Cache
}

func NewAdminService(st AdminStore, c cache.Cache, log *zap.Logger) *AdminService {
	if c == nil {
		c = cache.Nop{}
	}
	return &AdminService{base: newBase(log), store: st, cache: c}
}

type CreateConsultantInput struct {
	Phone               string
	Password            string
	Name                string
	Level               string
	Specialty           []string
	Gender              model.Gender
	Location            string
	ExperienceYears     int
	Bio                 string
	ConsultationMethods []string
	Availability        string
}

func (s *AdminService) CreateConsultant(ctx context.Context, in CreateConsultantInput) (*model.Consultant, error) {
	if !phonePattern.MatchString(in.Phone) {
		return nil, apperr.Validation("手机号格式不正确")
	}
	if len(in.Password) < MinPasswordLen {
		return nil, apperr.Validation("密码至少8位")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, s.internal("hash password", err)
	}

	c := &model.Consultant{
		ID:                  uuid.New().String(),
		Phone:               in.Phone,
		PasswordHash:        hash,
		Name:                in.Name,
		Level:               in.Level,
		Specialty:           in.Specialty,
		Gender:              in.Gender,
		Location:            in.Location,
		Avatar:              model.DefaultConsultantAvatar,
		ExperienceYears:     in.ExperienceYears,
		Bio:                 in.Bio,
		ConsultationMethods: in.ConsultationMethods,
		Availability:        in.Availability,
	}
	if c.Level == "" {
		c.Level = model.DefaultConsultantLevel
	}
	if c.Gender == "" {
		c.Gender = model.GenderUnknown
	}
	if err := s.store.CreateConsultant(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ErrPhoneTaken
		}
		return nil, s.internal("create consultant", err)
	}
	s.dropDirectory(ctx)
	s.log.Info("consultant created", zap.String("consultant_id", c.ID))
	return c, nil
}

func (s *AdminService) Applications(ctx context.Context, status *model.ApplicationStatus) ([]model.ConsultantApplication, error) {
	out, err := s.store.ListApplications(ctx, status)
	if err != nil {
		return nil, s.internal("list applications", err)
	}
	return out, nil
}

// ReviewApplication approves or rejects a pending application. Approval
// creates a consultant account that signs in with the applicant's phone and
// password.
func (s *AdminService) ReviewApplication(ctx context.Context, id string, approve bool, comment *string) (*model.ConsultantApplication, error) {
	app, err := s.store.ApplicationByID(ctx, id)
	if err != nil {
		return nil, s.notFoundOr("load application", err, apperr.ErrApplicationNotFound)
	}
	if app.Status != model.ApplicationPending {
		return nil, apperr.ErrApplicationHandled
	}

	status := model.ApplicationRejected
	var consultant *model.Consultant
	if approve {
		status = model.ApplicationApproved
		u, err := s.store.UserByID(ctx, app.UserID)
		if err != nil {
			return nil, s.notFoundOr("load applicant", err, apperr.ErrUserNotFound)
		}
		consultant = &model.Consultant{
			ID:              uuid.New().String(),
			Phone:           app.Phone,
			PasswordHash:    u.PasswordHash,
			Name:            app.Name,
			Level:           model.DefaultConsultantLevel,
			Specialty:       app.Specialty,
			Gender:          u.Gender,
			Location:        u.Region,
			Avatar:          model.DefaultConsultantAvatar,
			ExperienceYears: app.ExperienceYears,
			Bio:             app.Bio,
		}
	}

	if err := s.store.ResolveApplication(ctx, id, status, comment, consultant); err != nil {
		switch {
		case errors.Is(err, store.ErrStateChanged):
			return nil, apperr.ErrApplicationHandled
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.ErrApplicationNotFound
		case errors.Is(err, store.ErrDuplicate):
			return nil, apperr.ErrPhoneTaken
		}
		return nil, s.internal("resolve application", err)
	}

	app.Status = status
	app.ReviewComment = comment
	if approve {
		s.dropDirectory(ctx)
	}
	s.log.Info("application reviewed", zap.String("application_id", id), zap.String("status", string(status)))
	return app, nil
}

func (s *AdminService) dropDirectory(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyConsultantList); err != nil {
		s.log.Warn("consultant cache invalidation failed", zap.Error(err))
	}
}
