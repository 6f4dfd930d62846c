package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"counseling-api/internal/apperr"
	"counseling-api/internal/auth"
	"counseling-api/internal/metrics"
	"counseling-api/internal/model"
	"counseling-api/internal/store"
)

const MaxNoteLen = 500

type AppointmentStore interface {
	ConsultantByID(ctx context.Context, id string) (*model.Consultant, error)
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	AppointmentByID(ctx context.Context, id string) (*model.Appointment, error)
	SetAppointmentStatus(ctx context.Context, id string, from, to model.AppointmentStatus, reason *string) error
	ListUserAppointments(ctx context.Context, userID string) ([]model.Appointment, error)
	ListConsultantAppointments(ctx context.Context, consultantID string) ([]model.Appointment, error)
	ListAppointments(ctx context.Context, limit, offset int) ([]model.Appointment, int64, error)
}

type AppointmentService struct {
	base
	store AppointmentStore
}

func NewAppointmentService(st AppointmentStore, log *zap.Logger) *AppointmentService {
	return &AppointmentService{base: newBase(log), store: st}
}

type CreateAppointmentInput struct {
	ConsultantID string
	StartTime    time.Time
	EndTime      time.Time
	Note         *string
}

func (s *AppointmentService) validate(in CreateAppointmentInput) error {
	if !in.EndTime.After(in.StartTime) {
		return apperr.InvalidArg("结束时间必须晚于开始时间")
	}
	d := in.EndTime.Sub(in.StartTime)
	if d < model.MinAppointmentDuration || d > model.MaxAppointmentDuration {
		return apperr.InvalidArg("预约时长需在15到180分钟之间")
	}
	if !in.StartTime.After(s.now()) {
		return apperr.InvalidArg("不能预约过去的时间")
	}
	if in.Note != nil && runeLen(*in.Note) > MaxNoteLen {
		return apperr.InvalidArg("备注不能超过500字")
	}
	return nil
}

// Create books a PENDING appointment for userID.
func (s *AppointmentService) Create(ctx context.Context, userID string, in CreateAppointmentInput) (*model.Appointment, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	if _, err := s.store.ConsultantByID(ctx, in.ConsultantID); err != nil {
		return nil, s.notFoundOr("load consultant", err, apperr.ErrConsultantNotFound)
	}

	a := &model.Appointment{
		ID:           uuid.New().String(),
		UserID:       userID,
		ConsultantID: in.ConsultantID,
		StartTime:    in.StartTime.UTC(),
		EndTime:      in.EndTime.UTC(),
		Status:       model.StatusPending,
		Note:         in.Note,
	}
	if err := s.store.CreateAppointment(ctx, a); err != nil {
		if errors.Is(err, store.ErrSlotTaken) {
			metrics.BookingConflict()
			return nil, apperr.ErrSlotTaken
		}
		return nil, s.internal("create appointment", err)
	}

	metrics.AppointmentTransition(string(a.Status))
	s.log.Info("appointment created",
		zap.String("appointment_id", a.ID),
		zap.String("consultant_id", a.ConsultantID),
		zap.Time("start", a.StartTime),
	)
	return a, nil
}

// visible loads id if the actor is its user or its consultant.
func (s *AppointmentService) visible(ctx context.Context, actor auth.Principal, id string) (*model.Appointment, error) {
	a, err := s.store.AppointmentByID(ctx, id)
	if err != nil {
		return nil, s.notFoundOr("load appointment", err, apperr.ErrAppointmentNotFound)
	}
	switch actor.Role {
	case model.RoleUser:
		if a.UserID != actor.ID {
			return nil, apperr.ErrAppointmentNotFound
		}
	case model.RoleConsultant:
		if a.ConsultantID != actor.ID {
			return nil, apperr.ErrAppointmentNotFound
		}
	default:
		return nil, apperr.Forbidden("无权操作该预约")
	}
	return a, nil
}

// Cancel cancels on behalf of the appointment's user or consultant. An
// already cancelled appointment is returned unchanged.
func (s *AppointmentService) Cancel(ctx context.Context, actor auth.Principal, id string, reason *string) (*model.Appointment, error) {
	a, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status.Cancelled() {
		return a, nil
	}
	if !s.now().Before(a.StartTime) {
		return nil, apperr.ErrAppointmentStarted
	}

	to := model.StatusCancelledByUser
	if actor.Role == model.RoleConsultant {
		to = model.StatusCancelledByConsultant
	}

	if err := s.store.SetAppointmentStatus(ctx, a.ID, a.Status, to, reason); err != nil {
		if !errors.Is(err, store.ErrStateChanged) {
			return nil, s.internal("cancel appointment", err)
		}
		// lost a race; fine if the winner also cancelled
		cur, err := s.store.AppointmentByID(ctx, a.ID)
		if err != nil {
			return nil, s.internal("reload appointment", err)
		}
		if cur.Status.Cancelled() {
			return cur, nil
		}
		return nil, apperr.Conflict("预约状态已变化，请刷新后重试")
	}

	a.Status = to
	if reason != nil {
		a.CancelReason = reason
	}
	metrics.AppointmentTransition(string(to))
	s.log.Info("appointment cancelled",
		zap.String("appointment_id", a.ID),
		zap.String("status", string(to)),
	)
	return a, nil
}

// Confirm moves a PENDING appointment of consultantID to CONFIRMED.
func (s *AppointmentService) Confirm(ctx context.Context, consultantID, id string) (*model.Appointment, error) {
	a, err := s.visible(ctx, auth.Principal{ID: consultantID, Role: model.RoleConsultant}, id)
	if err != nil {
		return nil, err
	}
	if a.Status != model.StatusPending {
		return nil, apperr.ErrNotPending
	}
	if !s.now().Before(a.StartTime) {
		return nil, apperr.ErrAppointmentStarted
	}

	if err := s.store.SetAppointmentStatus(ctx, a.ID, model.StatusPending, model.StatusConfirmed, nil); err != nil {
		if errors.Is(err, store.ErrStateChanged) {
			return nil, apperr.ErrNotPending
		}
		return nil, s.internal("confirm appointment", err)
	}

	a.Status = model.StatusConfirmed
	metrics.AppointmentTransition(string(a.Status))
	s.log.Info("appointment confirmed", zap.String("appointment_id", a.ID))
	return a, nil
}

func (s *AppointmentService) ListForUser(ctx context.Context, userID string) ([]model.Appointment, error) {
	out, err := s.store.ListUserAppointments(ctx, userID)
	if err != nil {
		return nil, s.internal("list user appointments", err)
	}
	return out, nil
}

func (s *AppointmentService) ListForConsultant(ctx context.Context, consultantID string) ([]model.Appointment, error) {
	out, err := s.store.ListConsultantAppointments(ctx, consultantID)
	if err != nil {
		return nil, s.internal("list consultant appointments", err)
	}
	return out, nil
}

func (s *AppointmentService) ListAll(ctx context.Context, p Page) ([]model.Appointment, int64, error) {
	p = p.Normalize()
	out, total, err := s.store.ListAppointments(ctx, p.Size, p.Offset())
	if err != nil {
		return nil, 0, s.internal("list appointments", err)
	}
	return out, total, nil
}
