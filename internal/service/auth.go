package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"counseling-api/internal/apperr"
	"counseling-api/internal/auth"
	"counseling-api/internal/config"
	"counseling-api/internal/model"
	"counseling-api/internal/store"
)

var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

const MinPasswordLen = 8

type AuthStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByPhone(ctx context.Context, phone string) (*model.User, error)
	ConsultantByPhone(ctx context.Context, phone string) (*model.Consultant, error)
	CreateRefreshToken(ctx context.Context, rt *model.RefreshToken) error
	RefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID string, next *model.RefreshToken) error
	RevokeRefreshTokens(ctx context.Context, subject string) error
}

type AuthService struct {
	base
	store      AuthStore
	issuer     *auth.Issuer
	refreshTTL time.Duration
	admin      config.Admin
}

func NewAuthService(st AuthStore, issuer *auth.Issuer, refreshTTL time.Duration, admin config.Admin, log *zap.Logger) *AuthService {
	return &AuthService{base: newBase(log), store: st, issuer: issuer, refreshTTL: refreshTTL, admin: admin}
}

// Tokens is the result of every successful sign-in. RefreshToken is empty
// for admin sessions.
type Tokens struct {
	SubjectID    string
	Role         model.Role
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

func (s *AuthService) Register(ctx context.Context, phone, password string) (*Tokens, error) {
	if !phonePattern.MatchString(phone) {
		return nil, apperr.InvalidArg("手机号格式不正确")
	}
	if len(password) < MinPasswordLen {
		return nil, apperr.InvalidArg("密码至少8位")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, s.internal("hash password", err)
	}
	u := &model.User{
		ID:           uuid.New().String(),
		Phone:        phone,
		PasswordHash: hash,
		Name:         model.DefaultUserName,
		Age:          18,
		Gender:       model.GenderUnknown,
		Region:       model.DefaultRegion,
		Avatar:       model.DefaultUserAvatar,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ErrPhoneTaken
		}
		return nil, s.internal("create user", err)
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return s.issue(ctx, u.ID, model.RoleUser)
}

// Login signs in a user or consultant by phone and password.
func (s *AuthService) Login(ctx context.Context, phone, password string, role model.Role) (*Tokens, error) {
	var id, hash string
	switch role {
	case model.RoleUser:
		u, err := s.store.UserByPhone(ctx, phone)
		if err != nil {
			return nil, s.notFoundOr("user by phone", err, apperr.ErrInvalidCredentials)
		}
		id, hash = u.ID, u.PasswordHash
	case model.RoleConsultant:
		c, err := s.store.ConsultantByPhone(ctx, phone)
		if err != nil {
			return nil, s.notFoundOr("consultant by phone", err, apperr.ErrInvalidCredentials)
		}
		id, hash = c.ID, c.PasswordHash
	default:
		return nil, apperr.InvalidArg("不支持的登录角色")
	}

	if !auth.CheckPassword(hash, password) {
		return nil, apperr.ErrInvalidCredentials
	}
	return s.issue(ctx, id, role)
}

func (s *AuthService) AdminLogin(username, password string) (*Tokens, error) {
	if s.admin.Password == "" ||
		subtle.ConstantTimeCompare([]byte(username), []byte(s.admin.Username)) != 1 ||
		subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) != 1 {
		return nil, apperr.ErrInvalidCredentials
	}
	access, err := s.issuer.MakeToken(username, model.RoleAdmin)
	if err != nil {
		return nil, s.internal("sign token", err)
	}
	return &Tokens{SubjectID: username, Role: model.RoleAdmin, AccessToken: access, ExpiresIn: s.issuer.TTL()}, nil
}

// Refresh exchanges a live refresh token for a new pair. Presenting a token
// that was already rotated revokes every token of its subject.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*Tokens, error) {
	rt, err := s.store.RefreshTokenByHash(ctx, auth.HashRefreshToken(raw))
	if err != nil {
		return nil, s.notFoundOr("refresh token by hash", err, apperr.ErrInvalidRefreshToken)
	}
	if rt.Revoked {
		s.log.Warn("refresh token reuse", zap.String("subject", rt.Subject))
		if err := s.store.RevokeRefreshTokens(ctx, rt.Subject); err != nil {
			return nil, s.internal("revoke refresh tokens", err)
		}
		return nil, apperr.ErrInvalidRefreshToken
	}
	if !s.now().Before(rt.ExpiresAt) {
		return nil, apperr.ErrInvalidRefreshToken
	}

	next, rawNext, err := s.newRefreshToken(rt.Subject, rt.Role)
	if err != nil {
		return nil, s.internal("generate refresh token", err)
	}
	if err := s.store.RotateRefreshToken(ctx, rt.ID, next); err != nil {
		if errors.Is(err, store.ErrStateChanged) {
			if err := s.store.RevokeRefreshTokens(ctx, rt.Subject); err != nil {
				s.log.Error("revoke refresh tokens after rotation race", zap.String("subject", rt.Subject), zap.Error(err))
			}
			return nil, apperr.ErrInvalidRefreshToken
		}
		return nil, s.internal("rotate refresh token", err)
	}

	access, err := s.issuer.MakeToken(rt.Subject, rt.Role)
	if err != nil {
		return nil, s.internal("sign token", err)
	}
	return &Tokens{
		SubjectID:    rt.Subject,
		Role:         rt.Role,
		AccessToken:  access,
		RefreshToken: rawNext,
		ExpiresIn:    s.issuer.TTL(),
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, subject string) error {
	if err := s.store.RevokeRefreshTokens(ctx, subject); err != nil {
		return s.internal("revoke refresh tokens", err)
	}
	return nil
}

func (s *AuthService) issue(ctx context.Context, id string, role model.Role) (*Tokens, error) {
	access, err := s.issuer.MakeToken(id, role)
	if err != nil {
		return nil, s.internal("sign token", err)
	}
	rt, raw, err := s.newRefreshToken(id, role)
	if err != nil {
		return nil, s.internal("generate refresh token", err)
	}
	if err := s.store.CreateRefreshToken(ctx, rt); err != nil {
		return nil, s.internal("store refresh token", err)
	}
	return &Tokens{SubjectID: id, Role: role, AccessToken: access, RefreshToken: raw, ExpiresIn: s.issuer.TTL()}, nil
}

func (s *AuthService) newRefreshToken(subject string, role model.Role) (*model.RefreshToken, string, error) {
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, "", err
	}
	return &model.RefreshToken{
		ID:        uuid.New().String(),
		Subject:   subject,
		Role:      role,
		TokenHash: hash,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}, raw, nil
}
