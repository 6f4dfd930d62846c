package store

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"counseling-api/internal/migrations"
	"counseling-api/internal/model"
)

var testStore *Store

func TestMain(m *testing.M) {
	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	var container *postgres.PostgresContainer
	if dsn == "" {
		container, dsn = startPostgres(ctx)
	}

	if dsn != "" {
		if err := migrations.Up(dsn); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		testStore = New(pool)
	}

	code := m.Run()

	if testStore != nil {
		testStore.pool.Close()
	}
	if container != nil {
		if err := testcontainers.TerminateContainer(container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
	os.Exit(code)
}

func startPostgres(ctx context.Context) (c *postgres.PostgresContainer, dsn string) {
	// no docker daemon: leave the store unset and skip
	defer func() {
		if r := recover(); r != nil {
			log.Printf("postgres container unavailable: %v", r)
			c, dsn = nil, ""
		}
	}()

	c, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("counseling"),
		postgres.WithUsername("counseling"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return nil, ""
	}
	dsn, err = c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Printf("failed to get connection string: %v", err)
		return c, ""
	}
	return c, dsn
}

func setup(t *testing.T) *Store {
	t.Helper()
	if testStore == nil {
		t.Skip("no database available (set DATABASE_URL or run docker)")
	}
	_, err := testStore.pool.Exec(context.Background(),
		`TRUNCATE refresh_tokens, static_resources, wish_inbox_state, wish_likes, wishes,
		          reviews, appointments, consultant_applications, consultants, users CASCADE`)
	require.NoError(t, err)
	return testStore
}

func seedUser(t *testing.T, s *Store, phone string) *model.User {
	t.Helper()
	u := &model.User{
		ID: uuid.New().String(), Phone: phone, PasswordHash: "x",
		Name: model.DefaultUserName, Age: 18, Gender: model.GenderUnknown,
		Region: model.DefaultRegion, Avatar: model.DefaultUserAvatar,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedConsultant(t *testing.T, s *Store, phone string) *model.Consultant {
	t.Helper()
	c := &model.Consultant{
		ID: uuid.New().String(), Phone: phone, PasswordHash: "x", Name: "Dr. Lin",
		Level: model.DefaultConsultantLevel, Gender: model.GenderFemale,
		Avatar: model.DefaultConsultantAvatar,
	}
	require.NoError(t, s.CreateConsultant(context.Background(), c))
	return c
}

func booking(userID, consultantID string, start time.Time, d time.Duration) *model.Appointment {
	return &model.Appointment{
		ID: uuid.New().String(), UserID: userID, ConsultantID: consultantID,
		StartTime: start, EndTime: start.Add(d), Status: model.StatusPending,
	}
}

func TestDuplicatePhone(t *testing.T) {
	s := setup(t)
	seedUser(t, s, "13800000001")

	err := s.CreateUser(context.Background(), &model.User{
		ID: uuid.New().String(), Phone: "13800000001", PasswordHash: "x",
		Name: "n", Gender: model.GenderUnknown, Region: "r", Avatar: "a",
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = s.UserByPhone(context.Background(), "13900000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppointmentOverlap(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	u := seedUser(t, s, "13800000001")
	c := seedConsultant(t, s, "13900000001")
	day := time.Now().Add(48 * time.Hour).Truncate(24 * time.Hour)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	first := booking(u.ID, c.ID, at(10, 0), 30*time.Minute)
	require.NoError(t, s.CreateAppointment(ctx, first))

	tests := []struct {
		name  string
		start time.Time
		d     time.Duration
		want  error
	}{
		{"overlapping", at(10, 15), 30 * time.Minute, ErrSlotTaken},
		{"containing", at(9, 30), 2 * time.Hour, ErrSlotTaken},
		{"adjacent after", at(10, 30), 30 * time.Minute, nil},
		{"adjacent before", at(9, 30), 30 * time.Minute, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.CreateAppointment(ctx, booking(u.ID, c.ID, tt.start, tt.d))
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	// a cancelled booking frees its slot
	require.NoError(t, s.SetAppointmentStatus(ctx, first.ID, model.StatusPending, model.StatusCancelledByUser, nil))
	assert.NoError(t, s.CreateAppointment(ctx, booking(u.ID, c.ID, at(10, 0), 30*time.Minute)))

	other := seedConsultant(t, s, "13900000002")
	assert.NoError(t, s.CreateAppointment(ctx, booking(u.ID, other.ID, at(10, 0), 30*time.Minute)))
}

func TestConcurrentBooking(t *testing.T) {
	s := setup(t)
	u := seedUser(t, s, "13800000001")
	c := seedConsultant(t, s, "13900000001")
	start := time.Now().Add(72 * time.Hour).Truncate(time.Hour)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.CreateAppointment(context.Background(), booking(u.ID, c.ID, start, time.Hour))
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success, "expected exactly 1 successful booking")
}

func TestAppointmentStatusCompareAndSet(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	u := seedUser(t, s, "13800000001")
	c := seedConsultant(t, s, "13900000001")
	a := booking(u.ID, c.ID, time.Now().Add(24*time.Hour), time.Hour)
	require.NoError(t, s.CreateAppointment(ctx, a))

	require.NoError(t, s.SetAppointmentStatus(ctx, a.ID, model.StatusPending, model.StatusConfirmed, nil))
	err := s.SetAppointmentStatus(ctx, a.ID, model.StatusPending, model.StatusCancelledByUser, nil)
	assert.ErrorIs(t, err, ErrStateChanged)

	reason := "schedule change"
	require.NoError(t, s.SetAppointmentStatus(ctx, a.ID, model.StatusConfirmed, model.StatusCancelledByConsultant, &reason))

	got, err := s.AppointmentByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelledByConsultant, got.Status)
	require.NotNil(t, got.CancelReason)
	assert.Equal(t, reason, *got.CancelReason)

	list, err := s.ListConsultantAppointments(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, u.Name, list[0].UserName)
	assert.Equal(t, u.Avatar, list[0].UserAvatar)
}

func TestReviewRefreshesRating(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	u := seedUser(t, s, "13800000001")
	c := seedConsultant(t, s, "13900000001")

	for _, r := range []int{5, 4, 4} {
		require.NoError(t, s.CreateReview(ctx, &model.Review{
			ID: uuid.New().String(), UserID: u.ID, ConsultantID: c.ID, Rating: r,
			Tags: []string{"耐心"},
		}))
	}

	got, err := s.ConsultantByID(ctx, c.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.33, got.Rating, 0.001)

	reviews, err := s.ListConsultantReviews(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 3)
}

func TestWishLikesAndDelete(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	author := seedUser(t, s, "13800000001")
	reader := seedUser(t, s, "13800000002")

	w := &model.Wish{ID: uuid.New().String(), UserID: author.ID, Content: "hello", Anonymous: true}
	require.NoError(t, s.CreateWish(ctx, w))
	quoting := &model.Wish{ID: uuid.New().String(), UserID: reader.ID, Content: "re", QuoteID: &w.ID}
	require.NoError(t, s.CreateWish(ctx, quoting))

	liked, n, err := s.ToggleLike(ctx, w.ID, reader.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 1, n)

	page, err := s.ListWishes(ctx, reader.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, quoting.ID, page[0].ID)
	assert.True(t, page[1].LikedByMe)
	assert.EqualValues(t, 1, page[1].LikeCount)

	liked, n, err = s.ToggleLike(ctx, w.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.EqualValues(t, 0, n)

	_, _, err = s.ToggleLike(ctx, uuid.New().String(), reader.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.ToggleLike(ctx, w.ID, author.ID)
	require.NoError(t, err)
	require.NoError(t, s.DeleteWish(ctx, w.ID))

	got, err := s.WishByID(ctx, quoting.ID)
	require.NoError(t, err)
	assert.Nil(t, got.QuoteID)

	assert.ErrorIs(t, s.DeleteWish(ctx, w.ID), ErrNotFound)
}

func TestUnreadWishCount(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	me := seedUser(t, s, "13800000001")
	other := seedUser(t, s, "13800000002")

	post := func(userID string) {
		require.NoError(t, s.CreateWish(ctx, &model.Wish{ID: uuid.New().String(), UserID: userID, Content: "x"}))
	}

	post(other.ID)
	n, err := s.UnreadWishCount(ctx, me.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "no cursor yet")

	require.NoError(t, s.MarkWishesRead(ctx, me.ID))
	post(other.ID)
	post(me.ID)

	n, err = s.UnreadWishCount(ctx, me.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.MarkWishesRead(ctx, me.ID))
	n, err = s.UnreadWishCount(ctx, me.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStaticResourceUpsertKeepsValidity(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	r := &model.StaticResource{ID: uuid.New().String(), Scope: "wish", Category: "images", Filename: "a.png"}
	require.NoError(t, s.UpsertStaticResource(ctx, r))
	assert.True(t, r.Valid)
	require.NoError(t, s.SetStaticResourceValid(ctx, r.ID, false))

	desc := "again"
	again := &model.StaticResource{ID: uuid.New().String(), Scope: "wish", Category: "images", Filename: "a.png", Description: &desc}
	require.NoError(t, s.UpsertStaticResource(ctx, again))
	assert.Equal(t, r.ID, again.ID)
	assert.False(t, again.Valid)

	invalid := false
	list, err := s.ListStaticResources(ctx, &invalid)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	stale, err := s.StaleStaticResources(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, stale, 1)

	require.NoError(t, s.DeleteStaticResource(ctx, r.ID))
	assert.ErrorIs(t, s.DeleteStaticResource(ctx, r.ID), ErrNotFound)
}

func TestStaleStaticResourcesCountFromInvalidation(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	r := &model.StaticResource{ID: uuid.New().String(), Scope: "consultant", Category: "avatars", Filename: "old.png"}
	require.NoError(t, s.UpsertStaticResource(ctx, r))
	_, err := s.pool.Exec(ctx,
		`UPDATE static_resources SET created_at = NOW() - INTERVAL '365 days' WHERE id = $1`, r.ID)
	require.NoError(t, err)

	require.NoError(t, s.SetStaticResourceValid(ctx, r.ID, false))
	stale, err := s.StaleStaticResources(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stale, "freshly invalidated resource is within the grace window")

	// a second invalidation keeps the original stamp
	_, err = s.pool.Exec(ctx,
		`UPDATE static_resources SET invalidated_at = NOW() - INTERVAL '2 hours' WHERE id = $1`, r.ID)
	require.NoError(t, err)
	require.NoError(t, s.SetStaticResourceValid(ctx, r.ID, false))
	stale, err = s.StaleStaticResources(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, stale, 1)

	require.NoError(t, s.SetStaticResourceValid(ctx, r.ID, true))
	require.NoError(t, s.SetStaticResourceValid(ctx, r.ID, false))
	stale, err = s.StaleStaticResources(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stale, "revalidation resets the clock")
}

func TestMalformedIDIsNotFound(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	for _, id := range []string{"123", "abc"} {
		_, err := s.ConsultantByID(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, id)
		_, err = s.AppointmentByID(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, id)
		_, err = s.WishByID(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, id)
		assert.ErrorIs(t, s.DeleteStaticResource(ctx, id), ErrNotFound, id)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"invalid text representation", &pgconn.PgError{Code: "22P02"}, ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "users_phone_key"}, ErrDuplicate},
		{"exclusion violation", &pgconn.PgError{Code: "23P01"}, ErrSlotTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(errors.Wrap(tt.in, "query"), "op"), tt.want)
		})
	}
	assert.NoError(t, classify(nil, "op"))
}

func TestRefreshTokenRotation(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	subject := uuid.New().String()

	old := &model.RefreshToken{ID: uuid.New().String(), Subject: subject, Role: model.RoleUser,
		TokenHash: "h1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.CreateRefreshToken(ctx, old))

	next := &model.RefreshToken{ID: uuid.New().String(), Subject: subject, Role: model.RoleUser,
		TokenHash: "h2", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.RotateRefreshToken(ctx, old.ID, next))

	got, err := s.RefreshTokenByHash(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)
	require.NotNil(t, got.ReplacedBy)
	assert.Equal(t, next.ID, *got.ReplacedBy)

	replay := &model.RefreshToken{ID: uuid.New().String(), Subject: subject, Role: model.RoleUser,
		TokenHash: "h3", ExpiresAt: time.Now().Add(time.Hour)}
	assert.ErrorIs(t, s.RotateRefreshToken(ctx, old.ID, replay), ErrStateChanged)

	require.NoError(t, s.RevokeRefreshTokens(ctx, subject))
	got, err = s.RefreshTokenByHash(ctx, "h2")
	require.NoError(t, err)
	assert.True(t, got.Revoked)
}

func TestApplicationLifecycle(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	u := seedUser(t, s, "13800000001")

	app := func() *model.ConsultantApplication {
		return &model.ConsultantApplication{
			ID: uuid.New().String(), UserID: u.ID, Name: "李", IDCardNumber: "110101199001011234",
			Phone: u.Phone, Education: "硕士", University: "北大", Major: "心理学",
			Bio: "bio", Reason: "reason", Status: model.ApplicationPending,
		}
	}
	first := app()
	require.NoError(t, s.CreateApplication(ctx, first))
	assert.ErrorIs(t, s.CreateApplication(ctx, app()), ErrDuplicate)

	c := &model.Consultant{ID: uuid.New().String(), Phone: u.Phone, PasswordHash: "x",
		Name: first.Name, Level: model.DefaultConsultantLevel, Gender: model.GenderUnknown,
		Avatar: model.DefaultConsultantAvatar}
	require.NoError(t, s.ResolveApplication(ctx, first.ID, model.ApplicationApproved, nil, c))
	assert.ErrorIs(t, s.ResolveApplication(ctx, first.ID, model.ApplicationRejected, nil, nil), ErrStateChanged)
	assert.ErrorIs(t, s.ResolveApplication(ctx, uuid.New().String(), model.ApplicationRejected, nil, nil), ErrNotFound)

	_, err := s.ConsultantByPhone(ctx, u.Phone)
	require.NoError(t, err)

	pending := model.ApplicationPending
	list, err := s.ListApplications(ctx, &pending)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.CreateApplication(ctx, app()))
}
