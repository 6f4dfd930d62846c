package migrations

import (
	"io"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"postgres://u:p@localhost:5432/db?sslmode=disable", "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{"postgresql://localhost/db", "pgx5://localhost/db"},
		{"pgx5://localhost/db", "pgx5://localhost/db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, driverURL(tt.in))
	}
}

func TestEmbeddedMigrationsPaired(t *testing.T) {
	src, err := iofs.New(files, "sql")
	require.NoError(t, err)
	defer src.Close()

	v, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	up, _, err := src.ReadUp(v)
	require.NoError(t, err)
	body, err := io.ReadAll(up)
	require.NoError(t, err)
	assert.Contains(t, string(body), "appointments_no_overlap")

	down, _, err := src.ReadDown(v)
	require.NoError(t, err)
	down.Close()

	next, err := src.Next(v)
	require.NoError(t, err)
	up, _, err = src.ReadUp(next)
	require.NoError(t, err)
	body, err = io.ReadAll(up)
	require.NoError(t, err)
	assert.Contains(t, string(body), "invalidated_at")

	down, _, err = src.ReadDown(next)
	require.NoError(t, err)
	down.Close()
}
