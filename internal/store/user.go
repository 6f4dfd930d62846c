package store

import (
	"context"

	"counseling-api/internal/model"
)

const userColumns = `id, phone, password_hash, name, age, gender, region, avatar,
	birthday, hobby, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Phone, &u.PasswordHash, &u.Name, &u.Age, &u.Gender,
		&u.Region, &u.Avatar, &u.Birthday, &u.Hobby, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, phone, password_hash, name, age, gender, region, avatar)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING created_at, updated_at`,
		u.ID, u.Phone, u.PasswordHash, u.Name, u.Age, u.Gender, u.Region, u.Avatar,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return classify(err, "create user")
}

func (s *Store) UserByPhone(ctx context.Context, phone string) (*model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone = $1`, phone))
	return u, classify(err, "user by phone")
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, classify(err, "user by id")
}

func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE users
		 SET name=$2, age=$3, gender=$4, region=$5, avatar=$6, birthday=$7, hobby=$8, updated_at=NOW()
		 WHERE id=$1
		 RETURNING updated_at`,
		u.ID, u.Name, u.Age, u.Gender, u.Region, u.Avatar, u.Birthday, u.Hobby,
	).Scan(&u.UpdatedAt)
	return classify(err, "update user")
}
