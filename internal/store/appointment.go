package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"counseling-api/internal/model"
)

const appointmentColumns = `a.id, a.user_id, a.consultant_id, a.start_time, a.end_time,
	a.status, a.note, a.cancel_reason, a.created_at, a.updated_at`

func scanAppointment(row interface{ Scan(...any) error }, extra ...any) (*model.Appointment, error) {
	a := &model.Appointment{}
	dest := []any{&a.ID, &a.UserID, &a.ConsultantID, &a.StartTime, &a.EndTime,
		&a.Status, &a.Note, &a.CancelReason, &a.CreatedAt, &a.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAppointment inserts a if the consultant has no active appointment
// overlapping [start, end). Bookings for one consultant are serialized by an
// advisory lock; the exclusion constraint catches anything that slips past.
func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1))`, a.ConsultantID,
		); err != nil {
			return classify(err, "lock consultant")
		}

		var taken bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(
				SELECT 1 FROM appointments
				WHERE consultant_id = $1
				  AND status IN ('PENDING', 'CONFIRMED')
				  AND start_time < $3
				  AND end_time > $2)`,
			a.ConsultantID, a.StartTime, a.EndTime,
		).Scan(&taken)
		if err != nil {
			return classify(err, "check overlap")
		}
		if taken {
			return ErrSlotTaken
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO appointments (id, user_id, consultant_id, start_time, end_time, status, note)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)
			 RETURNING created_at, updated_at`,
			a.ID, a.UserID, a.ConsultantID, a.StartTime, a.EndTime, a.Status, a.Note,
		).Scan(&a.CreatedAt, &a.UpdatedAt)
		return classify(err, "insert appointment")
	})
}

func (s *Store) AppointmentByID(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments a WHERE a.id = $1`, id))
	return a, classify(err, "appointment by id")
}

// SetAppointmentStatus applies from -> to only if the row still holds from.
func (s *Store) SetAppointmentStatus(ctx context.Context, id string, from, to model.AppointmentStatus, reason *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE appointments
		 SET status=$3, cancel_reason=COALESCE($4, cancel_reason), updated_at=NOW()
		 WHERE id=$1 AND status=$2`,
		id, from, to, reason,
	)
	if err != nil {
		return classify(err, "set appointment status")
	}
	if tag.RowsAffected() == 0 {
		return ErrStateChanged
	}
	return nil
}

func (s *Store) ListUserAppointments(ctx context.Context, userID string) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+appointmentColumns+`, c.name
		 FROM appointments a JOIN consultants c ON c.id = a.consultant_id
		 WHERE a.user_id = $1
		 ORDER BY a.start_time DESC`, userID)
	if err != nil {
		return nil, classify(err, "list user appointments")
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		var name string
		a, err := scanAppointment(rows, &name)
		if err != nil {
			return nil, classify(err, "scan appointment")
		}
		a.ConsultantName = name
		out = append(out, *a)
	}
	return out, classify(rows.Err(), "list user appointments")
}

func (s *Store) ListConsultantAppointments(ctx context.Context, consultantID string) ([]model.Appointment, error) {
	return s.listWithClient(ctx,
		`SELECT `+appointmentColumns+`, u.name, u.avatar, c.name
		 FROM appointments a
		 JOIN users u ON u.id = a.user_id
		 JOIN consultants c ON c.id = a.consultant_id
		 WHERE a.consultant_id = $1
		 ORDER BY a.start_time DESC`, consultantID)
}

// ListAppointments pages through every appointment, newest start first.
func (s *Store) ListAppointments(ctx context.Context, limit, offset int) ([]model.Appointment, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&total); err != nil {
		return nil, 0, classify(err, "count appointments")
	}
	out, err := s.listWithClient(ctx,
		`SELECT `+appointmentColumns+`, u.name, u.avatar, c.name
		 FROM appointments a
		 JOIN users u ON u.id = a.user_id
		 JOIN consultants c ON c.id = a.consultant_id
		 ORDER BY a.start_time DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	return out, total, err
}

func (s *Store) listWithClient(ctx context.Context, q string, args ...any) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, classify(err, "list appointments")
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		var userName, userAvatar, consultantName string
		a, err := scanAppointment(rows, &userName, &userAvatar, &consultantName)
		if err != nil {
			return nil, classify(err, "scan appointment")
		}
		a.UserName, a.UserAvatar, a.ConsultantName = userName, userAvatar, consultantName
		out = append(out, *a)
	}
	return out, classify(rows.Err(), "list appointments")
}
