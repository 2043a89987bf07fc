package blogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/blogapi/internal/auth"
	"github.com/eringen/blogapi/internal/store"
)

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	dir := t.TempDir()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	a := New(Config{
		SecretKey:     "test-secret",
		DatabaseURL:   filepath.Join(dir, "blog.db"),
		AvatarDir:     filepath.Join(dir, "avatars"),
		LoginAttempts: 3,
	}, opts...)
	require.NoError(t, a.Init(context.Background()))
	t.Cleanup(func() { a.Close() })
	return a
}

func send(t *testing.T, a *App, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, a *App, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return send(t, a, req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func register(t *testing.T, a *App, username, password string) {
	t.Helper()
	rec := doJSON(t, a, http.MethodPost, "/register", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func login(t *testing.T, a *App, username, password string) string {
	t.Helper()
	rec := doJSON(t, a, http.MethodPost, "/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[tokenResponse](t, rec).AccessToken
}

// createAdmin inserts an administrator directly; the HTTP surface never
// grants the admin role to a self-registered account.
func createAdmin(t *testing.T, a *App, username, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	err = a.Store.WithTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		_, err := tx.Users().Create(ctx, store.NewAccount{
			Username:     username,
			PasswordHash: hash,
			Role:         auth.RoleAdmin,
		})
		return err
	})
	require.NoError(t, err)
	return login(t, a, username, password)
}

func TestRegisterLoginMe(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")
	token := login(t, a, "alice", "pw123")

	rec := doJSON(t, a, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, "user", me["role"])
	assert.Equal(t, false, me["is_admin"])
	assert.NotContains(t, me, "password_hash")
}

func TestRegisterDuplicate(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")

	rec := doJSON(t, a, http.MethodPost, "/register", "", map[string]string{
		"username": "alice",
		"password": "other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username or email already registered", decode[errorBody](t, rec).Detail)
}

func TestRegisterValidation(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodPost, "/register", "", map[string]string{"password": "pw"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[struct {
		Detail []fieldError `json:"detail"`
	}](t, rec)
	require.Len(t, body.Detail, 1)
	assert.Equal(t, "username", body.Detail[0].Field)
	assert.Equal(t, "failed required", body.Detail[0].Message)

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusUnprocessableEntity, send(t, a, req).Code)
}

func TestLoginFailures(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")

	for _, creds := range []map[string]string{
		{"username": "alice", "password": "wrong"},
		{"username": "nobody", "password": "pw123"},
	} {
		rec := doJSON(t, a, http.MethodPost, "/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid username or password", decode[errorBody](t, rec).Detail)
		assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
	}
}

func TestLoginRateLimited(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")

	bad := map[string]string{"username": "alice", "password": "wrong"}
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, doJSON(t, a, http.MethodPost, "/login", "", bad).Code)
	}
	good := map[string]string{"username": "alice", "password": "pw123"}
	assert.Equal(t, http.StatusTooManyRequests, doJSON(t, a, http.MethodPost, "/login", "", good).Code)
}

func TestTokenSources(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")
	token := login(t, a, "alice", "pw123")

	rec := doJSON(t, a, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))

	rec = doJSON(t, a, http.MethodGet, "/me?token="+token, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, a, http.MethodGet, "/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionCookie(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")

	rec := doJSON(t, a, http.MethodPost, "/login", "", map[string]string{
		"username": "alice",
		"password": "pw123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var sess *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == sessionName {
			sess = ck
		}
	}
	require.NotNil(t, sess, "login should set the session cookie")
	assert.True(t, sess.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(sess)
	rec = send(t, a, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "alice", decode[map[string]any](t, rec)["username"])

	// A state-changing request riding on the cookie needs a CSRF token.
	req = httptest.NewRequest(http.MethodPost, "/posts",
		bytes.NewBufferString(`{"title":"t","content":"c"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(sess)
	rec = send(t, a, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid CSRF token", decode[errorBody](t, rec).Detail)

	// With the token echoed back the same request goes through.
	rec = send(t, a, sessionRequest(t, http.MethodGet, "/me", sess, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	csrf := cookieNamed(rec, "_csrf")
	require.NotNil(t, csrf, "session requests should set the CSRF cookie")
	token := rec.Header().Get(echo.HeaderXCSRFToken)
	require.NotEmpty(t, token)
	assert.Equal(t, csrf.Value, token)

	req = sessionRequest(t, http.MethodPost, "/posts", sess, map[string]string{"title": "t", "content": "c"})
	req.AddCookie(csrf)
	req.Header.Set(echo.HeaderXCSRFToken, token)
	rec = send(t, a, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "t", decode[map[string]any](t, rec)["title"])

	req = sessionRequest(t, http.MethodPost, "/posts", sess, map[string]string{"title": "t2", "content": "c"})
	req.AddCookie(csrf)
	req.Header.Set(echo.HeaderXCSRFToken, "wrong")
	rec = send(t, a, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSessionCookieLifetime(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")

	rec := doJSON(t, a, http.MethodPost, "/login", "", map[string]string{
		"username": "alice",
		"password": "pw123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	sess := cookieNamed(rec, sessionName)
	require.NotNil(t, sess)
	assert.Equal(t, int(a.Config.TokenTTL.Seconds()), sess.MaxAge)
	assert.Equal(t, 1800, sess.MaxAge)
}

func TestReLoginWithSessionCookie(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")
	register(t, a, "bob", "pw456")

	rec := doJSON(t, a, http.MethodPost, "/login", "", map[string]string{
		"username": "alice",
		"password": "pw123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	sess := cookieNamed(rec, sessionName)
	require.NotNil(t, sess)

	rec = send(t, a, sessionRequest(t, http.MethodPost, "/login", sess, map[string]string{
		"username": "bob",
		"password": "pw456",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := cookieNamed(rec, sessionName)
	require.NotNil(t, next)

	rec = send(t, a, sessionRequest(t, http.MethodGet, "/me", next, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", decode[map[string]any](t, rec)["username"])
}

func TestCustomRoutes(t *testing.T) {
	a := newTestApp(t, WithCustomRoutes(func(a *App) {
		a.Echo.GET("/healthz", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"db": a.Store.Dialect()})
		})
	}))

	rec := doJSON(t, a, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sqlite", decode[map[string]string](t, rec)["db"])
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

// sessionRequest builds a request authenticated only by the session cookie.
func sessionRequest(t *testing.T, method, target string, sess *http.Cookie, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.AddCookie(sess)
	return req
}

func TestStaleRoleRejected(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "bob", "pw")
	token := login(t, a, "bob", "pw")

	role := auth.RoleAdmin
	err := a.Store.WithTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		_, err := tx.Users().Update(ctx, "bob", store.AccountPatch{Role: &role})
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, a, http.MethodGet, "/me", token, nil).Code)
}

func TestDeletedAccountRejected(t *testing.T) {
	a := newTestApp(t)
	admin := createAdmin(t, a, "root", "rootpw")
	register(t, a, "bob", "pw")
	token := login(t, a, "bob", "pw")

	rec := doJSON(t, a, http.MethodDelete, "/users/bob", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "bob", decode[map[string]any](t, rec)["username"])

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, a, http.MethodGet, "/me", token, nil).Code)
}

func TestProtectedRequiresAdmin(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")
	user := login(t, a, "alice", "pw123")
	admin := createAdmin(t, a, "root", "rootpw")

	assert.Equal(t, http.StatusForbidden, doJSON(t, a, http.MethodGet, "/protected", user, nil).Code)

	rec := doJSON(t, a, http.MethodGet, "/protected", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello, root. You are authorized!", decode[messageResponse](t, rec).Message)
}

func TestUpdateUser(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")
	register(t, a, "bob", "pw")
	alice := login(t, a, "alice", "pw123")

	rec := doJSON(t, a, http.MethodPatch, "/users/alice", alice, map[string]string{"bio": "hi"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "hi", decode[map[string]any](t, rec)["bio"])

	rec = doJSON(t, a, http.MethodPatch, "/users/bob", alice, map[string]string{"bio": "nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, a, http.MethodPatch, "/users/alice", alice, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, a, http.MethodPatch, "/users/alice", alice, map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi", decode[map[string]any](t, rec)["bio"])
}

func TestIndex(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Blog API", decode[map[string]string](t, rec)["message"])

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAccept, "text/html")
	rec = send(t, a, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, rec.Body.String(), "No published posts yet.")
}

func TestUnknownRoute(t *testing.T) {
	a := newTestApp(t)
	rec := doJSON(t, a, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decode[errorBody](t, rec).Detail)
}
