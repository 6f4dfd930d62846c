package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"counseling-api/internal/model"
)

func (s *Store) CreateRefreshToken(ctx context.Context, rt *model.RefreshToken) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO refresh_tokens (id, subject, role, token_hash, expires_at)
		 VALUES ($1,$2,$3,$4,$5)
		 RETURNING created_at`,
		rt.ID, rt.Subject, rt.Role, rt.TokenHash, rt.ExpiresAt,
	).Scan(&rt.CreatedAt)
	return classify(err, "create refresh token")
}

func (s *Store) RefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	rt := &model.RefreshToken{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, subject, role, token_hash, expires_at, revoked, replaced_by, created_at
		 FROM refresh_tokens WHERE token_hash = $1`, tokenHash,
	).Scan(&rt.ID, &rt.Subject, &rt.Role, &rt.TokenHash, &rt.ExpiresAt, &rt.Revoked,
		&rt.ReplacedBy, &rt.CreatedAt)
	if err != nil {
		return nil, classify(err, "refresh token by hash")
	}
	return rt, nil
}

// RotateRefreshToken revokes oldID and links it to next. A token that was
// already revoked by a concurrent rotation yields ErrStateChanged.
func (s *Store) RotateRefreshToken(ctx context.Context, oldID string, next *model.RefreshToken) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO refresh_tokens (id, subject, role, token_hash, expires_at)
			 VALUES ($1,$2,$3,$4,$5)
			 RETURNING created_at`,
			next.ID, next.Subject, next.Role, next.TokenHash, next.ExpiresAt,
		).Scan(&next.CreatedAt)
		if err != nil {
			return classify(err, "insert refresh token")
		}

		tag, err := tx.Exec(ctx,
			`UPDATE refresh_tokens SET revoked = TRUE, replaced_by = $1
			 WHERE id = $2 AND revoked = FALSE`,
			next.ID, oldID,
		)
		if err != nil {
			return classify(err, "revoke refresh token")
		}
		if tag.RowsAffected() == 0 {
			return ErrStateChanged
		}
		return nil
	})
}

// RevokeRefreshTokens revokes every live token of subject (logout or reuse).
func (s *Store) RevokeRefreshTokens(ctx context.Context, subject string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE subject = $1 AND revoked = FALSE`,
		subject,
	)
	return classify(err, "revoke refresh tokens")
}

// PurgeRefreshTokens drops tokens that expired before cutoff.
func (s *Store) PurgeRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, classify(err, "purge refresh tokens")
	}
	return tag.RowsAffected(), nil
}
