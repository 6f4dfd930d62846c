// Package mocks provides testify mocks for the service dependencies.
package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"counseling-api/internal/model"
)

// Store mocks every persistence method the services use.
type Store struct {
	mock.Mock
}

func ptr[T any](args mock.Arguments, i int) *T {
	if v := args.Get(i); v != nil {
		return v.(*T)
	}
	return nil
}

func slice[T any](args mock.Arguments, i int) []T {
	if v := args.Get(i); v != nil {
		return v.([]T)
	}
	return nil
}

func (m *Store) CreateUser(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *Store) UserByPhone(ctx context.Context, phone string) (*model.User, error) {
	args := m.Called(ctx, phone)
	return ptr[model.User](args, 0), args.Error(1)
}

func (m *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	return ptr[model.User](args, 0), args.Error(1)
}

func (m *Store) UpdateUser(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *Store) CreateConsultant(ctx context.Context, c *model.Consultant) error {
	return m.Called(ctx, c).Error(0)
}

func (m *Store) ConsultantByID(ctx context.Context, id string) (*model.Consultant, error) {
	args := m.Called(ctx, id)
	return ptr[model.Consultant](args, 0), args.Error(1)
}

func (m *Store) ConsultantByPhone(ctx context.Context, phone string) (*model.Consultant, error) {
	args := m.Called(ctx, phone)
	return ptr[model.Consultant](args, 0), args.Error(1)
}

func (m *Store) ListConsultants(ctx context.Context) ([]model.Consultant, error) {
	args := m.Called(ctx)
	return slice[model.Consultant](args, 0), args.Error(1)
}

func (m *Store) UpdateConsultant(ctx context.Context, c *model.Consultant) error {
	return m.Called(ctx, c).Error(0)
}

func (m *Store) SetConsultantAvatar(ctx context.Context, id, path string) error {
	return m.Called(ctx, id, path).Error(0)
}

func (m *Store) CreateApplication(ctx context.Context, a *model.ConsultantApplication) error {
	return m.Called(ctx, a).Error(0)
}

func (m *Store) ApplicationByID(ctx context.Context, id string) (*model.ConsultantApplication, error) {
	args := m.Called(ctx, id)
	return ptr[model.ConsultantApplication](args, 0), args.Error(1)
}

func (m *Store) ListApplications(ctx context.Context, status *model.ApplicationStatus) ([]model.ConsultantApplication, error) {
	args := m.Called(ctx, status)
	return slice[model.ConsultantApplication](args, 0), args.Error(1)
}

func (m *Store) ResolveApplication(ctx context.Context, id string, status model.ApplicationStatus, comment *string, c *model.Consultant) error {
	return m.Called(ctx, id, status, comment, c).Error(0)
}

func (m *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *Store) AppointmentByID(ctx context.Context, id string) (*model.Appointment, error) {
	args := m.Called(ctx, id)
	return ptr[model.Appointment](args, 0), args.Error(1)
}

func (m *Store) SetAppointmentStatus(ctx context.Context, id string, from, to model.AppointmentStatus, reason *string) error {
	return m.Called(ctx, id, from, to, reason).Error(0)
}

func (m *Store) ListUserAppointments(ctx context.Context, userID string) ([]model.Appointment, error) {
	args := m.Called(ctx, userID)
	return slice[model.Appointment](args, 0), args.Error(1)
}

func (m *Store) ListConsultantAppointments(ctx context.Context, consultantID string) ([]model.Appointment, error) {
	args := m.Called(ctx, consultantID)
	return slice[model.Appointment](args, 0), args.Error(1)
}

func (m *Store) ListAppointments(ctx context.Context, limit, offset int) ([]model.Appointment, int64, error) {
	args := m.Called(ctx, limit, offset)
	return slice[model.Appointment](args, 0), args.Get(1).(int64), args.Error(2)
}

func (m *Store) CreateReview(ctx context.Context, r *model.Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *Store) ListConsultantReviews(ctx context.Context, consultantID string) ([]model.Review, error) {
	args := m.Called(ctx, consultantID)
	return slice[model.Review](args, 0), args.Error(1)
}

func (m *Store) ListUserReviews(ctx context.Context, userID string) ([]model.Review, error) {
	args := m.Called(ctx, userID)
	return slice[model.Review](args, 0), args.Error(1)
}

func (m *Store) CreateWish(ctx context.Context, w *model.Wish) error {
	return m.Called(ctx, w).Error(0)
}

func (m *Store) WishByID(ctx context.Context, id string) (*model.Wish, error) {
	args := m.Called(ctx, id)
	return ptr[model.Wish](args, 0), args.Error(1)
}

func (m *Store) ListWishes(ctx context.Context, viewerID string, limit, offset int) ([]model.WishView, error) {
	args := m.Called(ctx, viewerID, limit, offset)
	return slice[model.WishView](args, 0), args.Error(1)
}

func (m *Store) ToggleLike(ctx context.Context, wishID, userID string) (bool, int64, error) {
	args := m.Called(ctx, wishID, userID)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}

func (m *Store) DeleteWish(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *Store) UnreadWishCount(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Store) MarkWishesRead(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *Store) WishAuthor(ctx context.Context, wishID string) (*model.WishAuthor, error) {
	args := m.Called(ctx, wishID)
	return ptr[model.WishAuthor](args, 0), args.Error(1)
}

func (m *Store) UpsertStaticResource(ctx context.Context, r *model.StaticResource) error {
	return m.Called(ctx, r).Error(0)
}

func (m *Store) StaticResourceByID(ctx context.Context, id string) (*model.StaticResource, error) {
	args := m.Called(ctx, id)
	return ptr[model.StaticResource](args, 0), args.Error(1)
}

func (m *Store) ListStaticResources(ctx context.Context, valid *bool) ([]model.StaticResource, error) {
	args := m.Called(ctx, valid)
	return slice[model.StaticResource](args, 0), args.Error(1)
}

func (m *Store) SetStaticResourceValid(ctx context.Context, id string, valid bool) error {
	return m.Called(ctx, id, valid).Error(0)
}

func (m *Store) DeleteStaticResource(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *Store) StaleStaticResources(ctx context.Context, cutoff time.Time) ([]model.StaticResource, error) {
	args := m.Called(ctx, cutoff)
	return slice[model.StaticResource](args, 0), args.Error(1)
}

func (m *Store) CreateRefreshToken(ctx context.Context, rt *model.RefreshToken) error {
	return m.Called(ctx, rt).Error(0)
}

func (m *Store) RefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	return ptr[model.RefreshToken](args, 0), args.Error(1)
}

func (m *Store) RotateRefreshToken(ctx context.Context, oldID string, next *model.RefreshToken) error {
	return m.Called(ctx, oldID, next).Error(0)
}

func (m *Store) RevokeRefreshTokens(ctx context.Context, subject string) error {
	return m.Called(ctx, subject).Error(0)
}

// ObjectStore mocks storage.ObjectStore.
type ObjectStore struct {
	mock.Mock
}

func (m *ObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return m.Called(ctx, key, r, size, contentType).Error(0)
}

func (m *ObjectStore) Remove(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// Cache mocks cache.Cache.
type Cache struct {
	mock.Mock
}

func (m *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	args := m.Called(ctx, key, dst)
	return args.Bool(0), args.Error(1)
}

func (m *Cache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	return m.Called(ctx, key, v, ttl).Error(0)
}

func (m *Cache) Delete(ctx context.Context, keys ...string) error {
	args := make([]any, 0, len(keys)+1)
	args = append(args, ctx)
	for _, k := range keys {
		args = append(args, k)
	}
	return m.Called(args...).Error(0)
}
