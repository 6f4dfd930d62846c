package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"counseling-api/internal/model"
)

func (s *Store) CreateWish(ctx context.Context, w *model.Wish) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO wishes (id, user_id, content, images, anonymous, quote_id)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING created_at, updated_at`,
		w.ID, w.UserID, w.Content, orEmpty(w.Images), w.Anonymous, w.QuoteID,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	return classify(err, "create wish")
}

func (s *Store) WishByID(ctx context.Context, id string) (*model.Wish, error) {
	w := &model.Wish{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, content, images, anonymous, quote_id, created_at, updated_at
		 FROM wishes WHERE id = $1`, id,
	).Scan(&w.ID, &w.UserID, &w.Content, &w.Images, &w.Anonymous, &w.QuoteID,
		&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, classify(err, "wish by id")
	}
	return w, nil
}

// ListWishes returns one page of the feed, newest first, as seen by viewerID.
func (s *Store) ListWishes(ctx context.Context, viewerID string, limit, offset int) ([]model.WishView, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT w.id, w.user_id, w.content, w.images, w.anonymous, w.quote_id,
		        w.created_at, w.updated_at,
		        (SELECT COUNT(*) FROM wish_likes l WHERE l.wish_id = w.id),
		        EXISTS(SELECT 1 FROM wish_likes l WHERE l.wish_id = w.id AND l.user_id = $1)
		 FROM wishes w
		 ORDER BY w.created_at DESC, w.id
		 LIMIT $2 OFFSET $3`, viewerID, limit, offset)
	if err != nil {
		return nil, classify(err, "list wishes")
	}
	defer rows.Close()

	out := []model.WishView{}
	for rows.Next() {
		var v model.WishView
		if err := rows.Scan(&v.ID, &v.UserID, &v.Content, &v.Images, &v.Anonymous,
			&v.QuoteID, &v.CreatedAt, &v.UpdatedAt, &v.LikeCount, &v.LikedByMe,
		); err != nil {
			return nil, classify(err, "scan wish")
		}
		out = append(out, v)
	}
	return out, classify(rows.Err(), "list wishes")
}

// ToggleLike flips userID's like on wishID while holding the wish row lock,
// returning the new state and like count.
func (s *Store) ToggleLike(ctx context.Context, wishID, userID string) (liked bool, count int64, err error) {
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		var id string
		if err := tx.QueryRow(ctx,
			`SELECT id FROM wishes WHERE id = $1 FOR UPDATE`, wishID,
		).Scan(&id); err != nil {
			return classify(err, "lock wish")
		}

		tag, err := tx.Exec(ctx,
			`DELETE FROM wish_likes WHERE wish_id = $1 AND user_id = $2`, wishID, userID)
		if err != nil {
			return classify(err, "unlike")
		}
		if tag.RowsAffected() == 0 {
			if _, err := tx.Exec(ctx,
				`INSERT INTO wish_likes (id, wish_id, user_id) VALUES ($1,$2,$3)`,
				uuid.New().String(), wishID, userID,
			); err != nil {
				return classify(err, "like")
			}
			liked = true
		}

		return classify(tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM wish_likes WHERE wish_id = $1`, wishID,
		).Scan(&count), "count likes")
	})
	return liked, count, err
}

// DeleteWish removes a wish with its likes and detaches wishes quoting it.
func (s *Store) DeleteWish(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM wish_likes WHERE wish_id = $1`, id); err != nil {
			return classify(err, "delete likes")
		}
		if _, err := tx.Exec(ctx,
			`UPDATE wishes SET quote_id = NULL, updated_at = NOW() WHERE quote_id = $1`, id,
		); err != nil {
			return classify(err, "detach quotes")
		}
		tag, err := tx.Exec(ctx, `DELETE FROM wishes WHERE id = $1`, id)
		if err != nil {
			return classify(err, "delete wish")
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// UnreadWishCount counts others' wishes newer than the user's read cursor.
// A user without a cursor has nothing unread.
func (s *Store) UnreadWishCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(w.id)
		 FROM wish_inbox_state st
		 JOIN wishes w ON w.created_at > st.last_checked_at AND w.user_id <> st.user_id
		 WHERE st.user_id = $1`, userID,
	).Scan(&n)
	return n, classify(err, "unread wishes")
}

// MarkWishesRead moves the cursor to the database clock, the same clock that
// stamps wishes.created_at.
func (s *Store) MarkWishesRead(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO wish_inbox_state (user_id, last_checked_at) VALUES ($1, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET last_checked_at = EXCLUDED.last_checked_at`,
		userID)
	return classify(err, "mark wishes read")
}

// WishAuthor loads what the author card of a wish may show.
func (s *Store) WishAuthor(ctx context.Context, wishID string) (*model.WishAuthor, error) {
	a := &model.WishAuthor{}
	err := s.pool.QueryRow(ctx,
		`SELECT w.anonymous, u.name, u.created_at
		 FROM wishes w JOIN users u ON u.id = w.user_id
		 WHERE w.id = $1`, wishID,
	).Scan(&a.Anonymous, &a.Name, &a.JoinedAt)
	if err != nil {
		return nil, classify(err, "wish author")
	}
	return a, nil
}
