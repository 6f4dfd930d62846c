package model

import "time"

type AppointmentStatus string

const (
	StatusPending               AppointmentStatus = "PENDING"
	StatusConfirmed             AppointmentStatus = "CONFIRMED"
	StatusCancelledByUser       AppointmentStatus = "CANCELLED_BY_USER"
	StatusCancelledByConsultant AppointmentStatus = "CANCELLED_BY_CONSULTANT"
)

// ActiveStatuses occupy the consultant's time slot.
var ActiveStatuses = []AppointmentStatus{StatusPending, StatusConfirmed}

func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s AppointmentStatus) Cancelled() bool {
	return s == StatusCancelledByUser || s == StatusCancelledByConsultant
}

var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelledByUser, StatusCancelledByConsultant},
	StatusConfirmed: {StatusCancelledByUser, StatusCancelledByConsultant},
}

// CanTransition reports whether from -> to is an edge of the appointment state machine.
func (s AppointmentStatus) CanTransition(to AppointmentStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	MinAppointmentDuration = 15 * time.Minute
	MaxAppointmentDuration = 180 * time.Minute
)

type Appointment struct {
	ID           string
	UserID       string
	ConsultantID string
	StartTime    time.Time
	EndTime      time.Time
	Status       AppointmentStatus
	Note         *string
	CancelReason *string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// filled by listing queries only
	UserName       string
	UserAvatar     string
	ConsultantName string
}
