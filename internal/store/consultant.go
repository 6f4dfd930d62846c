package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"counseling-api/internal/model"
)

const consultantColumns = `id, phone, password_hash, name, level, specialty, gender, location,
	rating, avatar, experience_years, consultation_count, price_per_hour, training_hours,
	supervision_hours, bio, consultation_methods, availability, education_list,
	experience_list, certification_list, created_at, updated_at`

func scanConsultant(row interface{ Scan(...any) error }) (*model.Consultant, error) {
	c := &model.Consultant{}
	err := row.Scan(&c.ID, &c.Phone, &c.PasswordHash, &c.Name, &c.Level, &c.Specialty,
		&c.Gender, &c.Location, &c.Rating, &c.Avatar, &c.ExperienceYears,
		&c.ConsultationCount, &c.PricePerHour, &c.TrainingHours, &c.SupervisionHours,
		&c.Bio, &c.ConsultationMethods, &c.Availability, &c.EducationList,
		&c.ExperienceList, &c.CertificationList, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func insertConsultant(ctx context.Context, q interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}, c *model.Consultant) error {
	return q.QueryRow(ctx,
		`INSERT INTO consultants (id, phone, password_hash, name, level, specialty, gender,
		   location, avatar, experience_years, bio, consultation_methods, availability,
		   education_list, experience_list, certification_list)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		 RETURNING created_at, updated_at`,
		c.ID, c.Phone, c.PasswordHash, c.Name, c.Level, orEmpty(c.Specialty), c.Gender,
		c.Location, c.Avatar, c.ExperienceYears, c.Bio, orEmpty(c.ConsultationMethods),
		c.Availability, orEmpty(c.EducationList), orEmpty(c.ExperienceList),
		orEmpty(c.CertificationList),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (s *Store) CreateConsultant(ctx context.Context, c *model.Consultant) error {
	return classify(insertConsultant(ctx, s.pool, c), "create consultant")
}

func (s *Store) ConsultantByID(ctx context.Context, id string) (*model.Consultant, error) {
	c, err := scanConsultant(s.pool.QueryRow(ctx,
		`SELECT `+consultantColumns+` FROM consultants WHERE id = $1`, id))
	return c, classify(err, "consultant by id")
}

func (s *Store) ConsultantByPhone(ctx context.Context, phone string) (*model.Consultant, error) {
	c, err := scanConsultant(s.pool.QueryRow(ctx,
		`SELECT `+consultantColumns+` FROM consultants WHERE phone = $1`, phone))
	return c, classify(err, "consultant by phone")
}

func (s *Store) ListConsultants(ctx context.Context) ([]model.Consultant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+consultantColumns+` FROM consultants ORDER BY rating DESC, created_at`)
	if err != nil {
		return nil, classify(err, "list consultants")
	}
	defer rows.Close()

	out := []model.Consultant{}
	for rows.Next() {
		c, err := scanConsultant(rows)
		if err != nil {
			return nil, classify(err, "scan consultant")
		}
		out = append(out, *c)
	}
	return out, classify(rows.Err(), "list consultants")
}

func (s *Store) UpdateConsultant(ctx context.Context, c *model.Consultant) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE consultants
		 SET name=$2, specialty=$3, gender=$4, location=$5, avatar=$6, experience_years=$7,
		     price_per_hour=$8, training_hours=$9, supervision_hours=$10, bio=$11,
		     consultation_methods=$12, availability=$13, education_list=$14,
		     experience_list=$15, certification_list=$16, updated_at=NOW()
		 WHERE id=$1
		 RETURNING updated_at`,
		c.ID, c.Name, orEmpty(c.Specialty), c.Gender, c.Location, c.Avatar, c.ExperienceYears,
		c.PricePerHour, c.TrainingHours, c.SupervisionHours, c.Bio,
		orEmpty(c.ConsultationMethods), c.Availability, orEmpty(c.EducationList),
		orEmpty(c.ExperienceList), orEmpty(c.CertificationList),
	).Scan(&c.UpdatedAt)
	return classify(err, "update consultant")
}

func (s *Store) SetConsultantAvatar(ctx context.Context, id, path string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE consultants SET avatar=$2, updated_at=NOW() WHERE id=$1`, id, path)
	if err != nil {
		return classify(err, "set consultant avatar")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// orEmpty keeps empty lists encoded as {} or [] instead of NULL.
func orEmpty[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
