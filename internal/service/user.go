package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"counseling-api/internal/apperr"
	"counseling-api/internal/model"
	"counseling-api/internal/store"
)

var (
	userAvatarPath = regexp.MustCompile(`^user/avatars/[\w.-]+\.(jpg|png|jpeg)$`)
	idCardPattern  = regexp.MustCompile(`^\d{17}[\dXx]$`)
)

type UserStore interface {
	UserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	CreateApplication(ctx context.Context, a *model.ConsultantApplication) error
}

type UserService struct {
	base
	store UserStore
}

func NewUserService(st UserStore, log *zap.Logger) *UserService {
	return &UserService{base: newBase(log), store: st}
}

// UpdateUserInput carries a partial profile; nil fields are left unchanged.
type UpdateUserInput struct {
	Name     *string
	Age      *int
	Gender   *model.Gender
	Region   *string
	Avatar   *string
	Birthday *time.Time
	Hobby    *string
}

type ApplyInput struct {
	Name            string
	IDCardNumber    string
	Phone           string
	Education       string
	University      string
	Major           string
	LicenseNumber   *string
	ExperienceYears int
	Specialty       []string
	Bio             string
	Reason          string
}

func (s *UserService) Profile(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, s.notFoundOr("load user", err, apperr.ErrUserNotFound)
	}
	return u, nil
}

func validateProfile(in UpdateUserInput, now time.Time) error {
	if in.Name != nil && (runeLen(*in.Name) < 1 || runeLen(*in.Name) > 20) {
		return apperr.Validation("昵称长度需在1到20之间")
	}
	if in.Age != nil && (*in.Age < 1 || *in.Age > 150) {
		return apperr.Validation("年龄需在1到150之间")
	}
	if in.Gender != nil {
		switch *in.Gender {
		case model.GenderMale, model.GenderFemale, model.GenderUnknown:
		default:
			return apperr.Validation("性别取值不合法")
		}
	}
	if in.Region != nil && (runeLen(*in.Region) < 1 || runeLen(*in.Region) > 50) {
		return apperr.Validation("地区长度需在1到50之间")
	}
	if in.Avatar != nil && !userAvatarPath.MatchString(*in.Avatar) {
		return apperr.Validation("头像路径不合法")
	}
	if in.Birthday != nil && in.Birthday.After(now) {
		return apperr.Validation("生日不能晚于今天")
	}
	if in.Hobby != nil && runeLen(*in.Hobby) > 200 {
		return apperr.Validation("爱好不能超过200字")
	}
	return nil
}

func (s *UserService) Update(ctx context.Context, userID string, in UpdateUserInput) (*model.User, error) {
	if err := validateProfile(in, s.now()); err != nil {
		return nil, err
	}
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, s.notFoundOr("load user", err, apperr.ErrUserNotFound)
	}

	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Age != nil {
		u.Age = *in.Age
	}
	if in.Gender != nil {
		u.Gender = *in.Gender
	}
	if in.Region != nil {
		u.Region = *in.Region
	}
	if in.Avatar != nil {
		u.Avatar = *in.Avatar
	}
	if in.Birthday != nil {
		u.Birthday = in.Birthday
	}
	if in.Hobby != nil {
		u.Hobby = in.Hobby
	}

	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, s.notFoundOr("update user", err, apperr.ErrUserNotFound)
	}
	return u, nil
}

// Apply files a consultant application. A user may have one pending at a time.
func (s *UserService) Apply(ctx context.Context, userID string, in ApplyInput) (*model.ConsultantApplication, error) {
	if !idCardPattern.MatchString(in.IDCardNumber) {
		return nil, apperr.Validation("身份证号格式不正确")
	}
	if !phonePattern.MatchString(in.Phone) {
		return nil, apperr.Validation("手机号格式不正确")
	}
	if len(in.Specialty) == 0 {
		return nil, apperr.Validation("至少填写一个擅长领域")
	}

	a := &model.ConsultantApplication{
		ID:              uuid.New().String(),
		UserID:          userID,
		Name:            in.Name,
		IDCardNumber:    in.IDCardNumber,
		Phone:           in.Phone,
		Education:       in.Education,
		University:      in.University,
		Major:           in.Major,
		LicenseNumber:   in.LicenseNumber,
		ExperienceYears: in.ExperienceYears,
		Specialty:       in.Specialty,
		Bio:             in.Bio,
		Reason:          in.Reason,
		Status:          model.ApplicationPending,
	}
	if err := s.store.CreateApplication(ctx, a); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ErrApplicationPending
		}
		return nil, s.internal("create application", err)
	}
	s.log.Info("consultant application filed", zap.String("application_id", a.ID), zap.String("user_id", userID))
	return a, nil
}
