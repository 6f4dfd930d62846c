package store

import (
	"context"
	"time"

	"counseling-api/internal/model"
)

const staticColumns = `id, scope, category, filename, description, valid, created_at`

func scanStatic(row interface{ Scan(...any) error }) (*model.StaticResource, error) {
	r := &model.StaticResource{}
	err := row.Scan(&r.ID, &r.Scope, &r.Category, &r.Filename, &r.Description, &r.Valid, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpsertStaticResource records r. Re-uploading an existing path replaces its
// description and leaves id and validity unchanged; r is updated in place.
func (s *Store) UpsertStaticResource(ctx context.Context, r *model.StaticResource) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO static_resources (id, scope, category, filename, description, valid)
		 VALUES ($1,$2,$3,$4,$5,TRUE)
		 ON CONFLICT (scope, category, filename)
		 DO UPDATE SET description = EXCLUDED.description
		 RETURNING `+staticColumns,
		r.ID, r.Scope, r.Category, r.Filename, r.Description,
	).Scan(&r.ID, &r.Scope, &r.Category, &r.Filename, &r.Description, &r.Valid, &r.CreatedAt)
	return classify(err, "upsert static resource")
}

func (s *Store) StaticResourceByID(ctx context.Context, id string) (*model.StaticResource, error) {
	r, err := scanStatic(s.pool.QueryRow(ctx,
		`SELECT `+staticColumns+` FROM static_resources WHERE id = $1`, id))
	return r, classify(err, "static resource by id")
}

func (s *Store) ListStaticResources(ctx context.Context, valid *bool) ([]model.StaticResource, error) {
	return s.listStatic(ctx,
		`SELECT `+staticColumns+` FROM static_resources
		 WHERE $1::boolean IS NULL OR valid = $1
		 ORDER BY scope, category, filename`, valid)
}

// StaleStaticResources lists resources that have been invalid since before
// cutoff.
func (s *Store) StaleStaticResources(ctx context.Context, cutoff time.Time) ([]model.StaticResource, error) {
	return s.listStatic(ctx,
		`SELECT `+staticColumns+` FROM static_resources
		 WHERE valid = FALSE AND invalidated_at < $1
		 ORDER BY invalidated_at`, cutoff)
}

func (s *Store) listStatic(ctx context.Context, q string, args ...any) ([]model.StaticResource, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, classify(err, "list static resources")
	}
	defer rows.Close()

	out := []model.StaticResource{}
	for rows.Next() {
		r, err := scanStatic(rows)
		if err != nil {
			return nil, classify(err, "scan static resource")
		}
		out = append(out, *r)
	}
	return out, classify(rows.Err(), "list static resources")
}

// SetStaticResourceValid flips validity. invalidated_at is stamped on the
// transition to invalid and cleared on revalidation.
func (s *Store) SetStaticResourceValid(ctx context.Context, id string, valid bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE static_resources
		 SET invalidated_at = CASE
		         WHEN $2::boolean THEN NULL
		         WHEN valid THEN NOW()
		         ELSE invalidated_at
		     END,
		     valid = $2
		 WHERE id = $1`, id, valid)
	if err != nil {
		return classify(err, "set static resource valid")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteStaticResource(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM static_resources WHERE id = $1`, id)
	if err != nil {
		return classify(err, "delete static resource")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
