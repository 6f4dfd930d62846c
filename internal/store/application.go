package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"counseling-api/internal/model"
)

const applicationColumns = `id, user_id, name, id_card_number, phone, education, university,
	major, license_number, experience_years, specialty, bio, reason, status, review_comment,
	created_at, updated_at`

func scanApplication(row interface{ Scan(...any) error }) (*model.ConsultantApplication, error) {
	a := &model.ConsultantApplication{}
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.IDCardNumber, &a.Phone, &a.Education,
		&a.University, &a.Major, &a.LicenseNumber, &a.ExperienceYears, &a.Specialty, &a.Bio,
		&a.Reason, &a.Status, &a.ReviewComment, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateApplication fails with ErrDuplicate while the user has a pending one.
func (s *Store) CreateApplication(ctx context.Context, a *model.ConsultantApplication) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO consultant_applications (id, user_id, name, id_card_number, phone,
		   education, university, major, license_number, experience_years, specialty, bio,
		   reason, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		 RETURNING created_at, updated_at`,
		a.ID, a.UserID, a.Name, a.IDCardNumber, a.Phone, a.Education, a.University, a.Major,
		a.LicenseNumber, a.ExperienceYears, orEmpty(a.Specialty), a.Bio, a.Reason, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return classify(err, "create application")
}

func (s *Store) ApplicationByID(ctx context.Context, id string) (*model.ConsultantApplication, error) {
	a, err := scanApplication(s.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM consultant_applications WHERE id = $1`, id))
	return a, classify(err, "application by id")
}

// ListApplications returns applications newest first, filtered by status when given.
func (s *Store) ListApplications(ctx context.Context, status *model.ApplicationStatus) ([]model.ConsultantApplication, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+applicationColumns+` FROM consultant_applications
		 WHERE $1::text IS NULL OR status = $1
		 ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, classify(err, "list applications")
	}
	defer rows.Close()

	out := []model.ConsultantApplication{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, classify(err, "scan application")
		}
		out = append(out, *a)
	}
	return out, classify(rows.Err(), "list applications")
}

// ResolveApplication moves a pending application to its final status. When
// consultant is non-nil it is created in the same transaction.
func (s *Store) ResolveApplication(ctx context.Context, id string, status model.ApplicationStatus, comment *string, consultant *model.Consultant) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var cur model.ApplicationStatus
		err := tx.QueryRow(ctx,
			`SELECT status FROM consultant_applications WHERE id = $1 FOR UPDATE`, id,
		).Scan(&cur)
		if err != nil {
			return classify(err, "lock application")
		}
		if cur != model.ApplicationPending {
			return ErrStateChanged
		}

		if _, err := tx.Exec(ctx,
			`UPDATE consultant_applications
			 SET status=$2, review_comment=$3, updated_at=NOW()
			 WHERE id=$1`, id, status, comment,
		); err != nil {
			return classify(err, "resolve application")
		}

		if consultant != nil {
			return classify(insertConsultant(ctx, tx, consultant), "create consultant")
		}
		return nil
	})
}
