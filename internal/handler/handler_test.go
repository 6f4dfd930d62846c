package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"counseling-api/internal/auth"
	"counseling-api/internal/cache"
	"counseling-api/internal/config"
	"counseling-api/internal/handler"
	"counseling-api/internal/model"
	"counseling-api/internal/service"
	"counseling-api/internal/service/mocks"
	"counseling-api/internal/storage"
	"counseling-api/internal/store"
)

type env struct {
	router  *gin.Engine
	store   *mocks.Store
	objects *storage.Memory
	issuer  *auth.Issuer
}

func setup(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := &mocks.Store{}
	objects := storage.NewMemory()
	issuer := auth.NewIssuer("test-secret", time.Minute)
	static := service.NewStaticService(st, objects, nil)

	svc := handler.Services{
		Auth:         service.NewAuthService(st, issuer, time.Hour, config.Admin{Username: "admin", Password: "adminpass"}, nil),
		Users:        service.NewUserService(st, nil),
		Consultants:  service.NewConsultantService(st, cache.Nop{}, static, nil),
		Appointments: service.NewAppointmentService(st, nil),
		Reviews:      service.NewReviewService(st, cache.Nop{}, nil),
		Admin:        service.NewAdminService(st, cache.Nop{}, nil),
		Static:       static,
		Wishes:       service.NewWishService(st, nil),
	}
	r := handler.NewRouter(handler.New(svc, issuer, nil), handler.RouterConfig{})
	return &env{router: r, store: st, objects: objects, issuer: issuer}
}

func (e *env) token(t *testing.T, id string, role model.Role) string {
	t.Helper()
	tok, err := e.issuer.MakeToken(id, role)
	require.NoError(t, err)
	return tok
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	e := setup(t)
	w := e.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuards(t *testing.T) {
	e := setup(t)

	w := e.do(http.MethodGet, "/api/user/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodGet, "/api/user/profile", e.token(t, "c1", model.RoleConsultant), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodGet, "/api/admin/appointments", e.token(t, "u1", model.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProfileReportsDefaultsAsNull(t *testing.T) {
	e := setup(t)
	e.store.On("UserByID", mock.Anything, "u1").Return(&model.User{
		ID:     "u1",
		Phone:  "13800138000",
		Name:   model.DefaultUserName,
		Age:    18,
		Gender: model.GenderUnknown,
		Region: model.DefaultRegion,
		Avatar: model.DefaultUserAvatar,
	}, nil)

	w := e.do(http.MethodGet, "/api/user/profile", e.token(t, "u1", model.RoleUser), nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "13800138000", body["phone"])
	assert.EqualValues(t, 18, body["age"])
	for _, k := range []string{"name", "avatar", "gender", "region", "birthday", "hobby"} {
		v, ok := body[k]
		assert.True(t, ok, k)
		assert.Nil(t, v, k)
	}
	assert.NotContains(t, w.Body.String(), "PasswordHash")
}

func TestCreateAppointment(t *testing.T) {
	e := setup(t)
	tok := e.token(t, "u1", model.RoleUser)
	start := time.Now().Add(48 * time.Hour).Truncate(time.Minute)

	e.store.On("ConsultantByID", mock.Anything, "c1").Return(&model.Consultant{ID: "c1"}, nil)
	e.store.On("CreateAppointment", mock.Anything, mock.Anything).Return(nil).Once()
	e.store.On("CreateAppointment", mock.Anything, mock.Anything).Return(store.ErrSlotTaken).Once()

	req := map[string]any{
		"consultantId": "c1",
		"startTime":    start.Format(time.RFC3339),
		"endTime":      start.Add(time.Hour).Format(time.RFC3339),
	}
	w := e.do(http.MethodPost, "/api/user/appointments", tok, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "PENDING", decode(t, w)["status"])

	w = e.do(http.MethodPost, "/api/user/appointments", tok, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateAppointmentBadInput(t *testing.T) {
	e := setup(t)
	tok := e.token(t, "u1", model.RoleUser)
	start := time.Now().Add(48 * time.Hour)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"malformed json", `{"consultantId":`, http.StatusBadRequest},
		{"missing consultant", map[string]any{"startTime": start, "endTime": start.Add(time.Hour)}, http.StatusUnprocessableEntity},
		{"too short", map[string]any{"consultantId": "c1", "startTime": start, "endTime": start.Add(5 * time.Minute)}, http.StatusBadRequest},
		{"in the past", map[string]any{"consultantId": "c1", "startTime": start.Add(-72 * time.Hour), "endTime": start.Add(-71 * time.Hour)}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(http.MethodPost, "/api/user/appointments", tok, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	e := setup(t)
	user := e.token(t, "u1", model.RoleUser)
	start := time.Now().Add(48 * time.Hour)

	e.store.On("ConsultantByID", mock.Anything, "123").Return(nil, store.ErrNotFound)
	e.store.On("AppointmentByID", mock.Anything, "abc").Return(nil, store.ErrNotFound)
	e.store.On("WishAuthor", mock.Anything, "abc").Return(nil, store.ErrNotFound)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"book numeric consultant id", http.MethodPost, "/api/user/appointments",
			map[string]any{"consultantId": "123", "startTime": start, "endTime": start.Add(time.Hour)}},
		{"cancel", http.MethodPost, "/api/user/appointments/abc/cancel", nil},
		{"author card", http.MethodGet, "/api/wishes/abc/author", nil},
		{"consultant detail", http.MethodGet, "/api/consultant/123", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(tt.method, tt.path, user, tt.body)
			assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
		})
	}
}

func TestCancelReasonTooLong(t *testing.T) {
	e := setup(t)
	reason := strings.Repeat("长", 201)
	w := e.do(http.MethodPost, "/api/user/appointments/a1/cancel", e.token(t, "u1", model.RoleUser),
		map[string]any{"reason": reason})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestConsultantCancelSetsStatus(t *testing.T) {
	e := setup(t)
	a := &model.Appointment{
		ID: "a1", UserID: "u1", ConsultantID: "c1",
		StartTime: time.Now().Add(24 * time.Hour), EndTime: time.Now().Add(25 * time.Hour),
		Status: model.StatusConfirmed,
	}
	e.store.On("AppointmentByID", mock.Anything, "a1").Return(a, nil)
	e.store.On("SetAppointmentStatus", mock.Anything, "a1", model.StatusConfirmed, model.StatusCancelledByConsultant, (*string)(nil)).Return(nil)

	w := e.do(http.MethodPost, "/api/consultant/appointments/a1/cancel", e.token(t, "c1", model.RoleConsultant), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CANCELLED_BY_CONSULTANT", decode(t, w)["status"])

	w = e.do(http.MethodPost, "/api/consultant/appointments/a1/cancel", e.token(t, "c2", model.RoleConsultant), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelWithChunkedEmptyBody(t *testing.T) {
	e := setup(t)
	a := &model.Appointment{
		ID: "a1", UserID: "u1", ConsultantID: "c1",
		StartTime: time.Now().Add(24 * time.Hour), EndTime: time.Now().Add(25 * time.Hour),
		Status: model.StatusPending,
	}
	e.store.On("AppointmentByID", mock.Anything, "a1").Return(a, nil)
	e.store.On("SetAppointmentStatus", mock.Anything, "a1", model.StatusPending, model.StatusCancelledByUser, (*string)(nil)).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/user/appointments/a1/cancel", strings.NewReader(""))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token(t, "u1", model.RoleUser))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CANCELLED_BY_USER", decode(t, w)["status"])
}

func TestAdminLoginAndAppointmentsPage(t *testing.T) {
	e := setup(t)

	w := e.do(http.MethodPost, "/api/admin/login", "", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPost, "/api/admin/login", "", map[string]string{"username": "admin", "password": "adminpass"})
	require.Equal(t, http.StatusOK, w.Code)
	tok, _ := decode(t, w)["accessToken"].(string)
	require.NotEmpty(t, tok)

	e.store.On("ListAppointments", mock.Anything, 50, 100).Return([]model.Appointment{{ID: "a1"}}, int64(101), nil)
	w = e.do(http.MethodGet, "/api/admin/appointments?page=2&size=500", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, 101, body["total"])
	assert.EqualValues(t, 50, body["size"])
}

func TestReviewApplicationQuery(t *testing.T) {
	e := setup(t)
	tok := e.token(t, "admin", model.RoleAdmin)

	w := e.do(http.MethodPut, "/api/admin/consultant/application/app1/review", tok, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	e.store.On("ApplicationByID", mock.Anything, "app1").Return(&model.ConsultantApplication{
		ID: "app1", UserID: "u1", Status: model.ApplicationRejected,
	}, nil)
	w = e.do(http.MethodPut, "/api/admin/consultant/application/app1/review?approve=true", tok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestWishListHidesAuthor(t *testing.T) {
	e := setup(t)
	now := time.Now()
	e.store.On("ListWishes", mock.Anything, "u1", 20, 0).Return([]model.WishView{
		{Wish: model.Wish{ID: "w1", UserID: "u1", Content: "mine", CreatedAt: now}, LikeCount: 2, LikedByMe: true},
		{Wish: model.Wish{ID: "w2", UserID: "u2", Content: "theirs", Anonymous: true, CreatedAt: now}},
	}, nil)

	w := e.do(http.MethodGet, "/api/wishes", e.token(t, "u1", model.RoleUser), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var items []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, true, items[0]["mine"])
	assert.Equal(t, false, items[1]["mine"])
	assert.EqualValues(t, 2, items[0]["likeCount"])
	assert.NotContains(t, w.Body.String(), "u2")
	assert.Equal(t, []any{}, items[0]["images"])
}

func TestWishAuthorCard(t *testing.T) {
	e := setup(t)
	joined := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	e.store.On("WishAuthor", mock.Anything, "w1").Return(&model.WishAuthor{Name: "小明", JoinedAt: joined}, nil)
	e.store.On("WishAuthor", mock.Anything, "w2").Return(&model.WishAuthor{Anonymous: true}, nil)

	tok := e.token(t, "u1", model.RoleUser)
	w := e.do(http.MethodGet, "/api/wishes/w1/author", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"anonymous":false,"name":"小明","jointDate":"2024-03-05"}`, w.Body.String())

	w = e.do(http.MethodGet, "/api/wishes/w2/author", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"anonymous":true,"name":null,"jointDate":null}`, w.Body.String())
}

func TestDeleteWishAsAdmin(t *testing.T) {
	e := setup(t)
	e.store.On("WishByID", mock.Anything, "w1").Return(&model.Wish{ID: "w1", UserID: "u9"}, nil)
	e.store.On("DeleteWish", mock.Anything, "w1").Return(nil)

	w := e.do(http.MethodDelete, "/api/wishes/w1", e.token(t, "u1", model.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodDelete, "/api/wishes/w1", e.token(t, "admin", model.RoleAdmin), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUploadWishImage(t *testing.T) {
	e := setup(t)
	e.store.On("UpsertStaticResource", mock.Anything, mock.Anything).Return(nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="a.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/static/upload/wish-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token(t, "u1", model.RoleUser))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	path, _ := decode(t, w)["path"].(string)
	assert.True(t, strings.HasPrefix(path, "wish/images/"), path)
	assert.True(t, strings.HasSuffix(path, ".png"), path)
	stored, ok := e.objects.Get(path)
	require.True(t, ok)
	assert.Equal(t, "png-bytes", string(stored))
}

func TestPublicConsultantDirectory(t *testing.T) {
	e := setup(t)
	e.store.On("ListConsultants", mock.Anything).Return([]model.Consultant{
		{ID: "c1", Name: "王", Phone: "13800138000", PasswordHash: "hash", Rating: 4.5},
	}, nil)
	e.store.On("ConsultantByID", mock.Anything, "missing").Return(nil, store.ErrNotFound)

	w := e.do(http.MethodGet, "/api/consultant/all", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "13800138000")
	assert.NotContains(t, w.Body.String(), "hash")

	w = e.do(http.MethodGet, "/api/consultant/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
