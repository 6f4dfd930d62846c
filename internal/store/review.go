package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"counseling-api/internal/model"
)

const reviewColumns = `id, user_id, consultant_id, appointment_id, rating, content, tags, created_at`

func scanReview(row interface{ Scan(...any) error }) (*model.Review, error) {
	r := &model.Review{}
	err := row.Scan(&r.ID, &r.UserID, &r.ConsultantID, &r.AppointmentID, &r.Rating,
		&r.Content, &r.Tags, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateReview stores r and refreshes the consultant's average rating.
func (s *Store) CreateReview(ctx context.Context, r *model.Review) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx,
			`SELECT id FROM consultants WHERE id = $1 FOR UPDATE`, r.ConsultantID,
		).Scan(&id)
		if err != nil {
			return classify(err, "lock consultant")
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO reviews (id, user_id, consultant_id, appointment_id, rating, content, tags)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)
			 RETURNING created_at`,
			r.ID, r.UserID, r.ConsultantID, r.AppointmentID, r.Rating, r.Content, orEmpty(r.Tags),
		).Scan(&r.CreatedAt)
		if err != nil {
			return classify(err, "insert review")
		}

		_, err = tx.Exec(ctx,
			`UPDATE consultants
			 SET rating = (SELECT ROUND(AVG(rating)::numeric, 2) FROM reviews WHERE consultant_id = $1),
			     updated_at = NOW()
			 WHERE id = $1`, r.ConsultantID)
		return classify(err, "refresh rating")
	})
}

func (s *Store) ListConsultantReviews(ctx context.Context, consultantID string) ([]model.Review, error) {
	return s.listReviews(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE consultant_id = $1 ORDER BY created_at DESC`,
		consultantID)
}

func (s *Store) ListUserReviews(ctx context.Context, userID string) ([]model.Review, error) {
	return s.listReviews(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
}

func (s *Store) listReviews(ctx context.Context, q string, args ...any) ([]model.Review, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, classify(err, "list reviews")
	}
	defer rows.Close()

	out := []model.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, classify(err, "scan review")
		}
		out = append(out, *r)
	}
	return out, classify(rows.Err(), "list reviews")
}
