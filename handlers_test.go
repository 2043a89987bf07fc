package blogapi

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/blogapi/internal/objstore"
	"github.com/eringen/blogapi/internal/store"
)

func createPost(t *testing.T, a *App, token string, body map[string]any) store.Post {
	t.Helper()
	rec := doJSON(t, a, http.MethodPost, "/posts", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[store.Post](t, rec)
}

func TestPostSlugsAreDistinct(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")
	token := login(t, a, "alice", "pw123")

	first := createPost(t, a, token, map[string]any{"title": "Hello World", "content": "one"})
	second := createPost(t, a, token, map[string]any{"title": "Hello World", "content": "two"})

	assert.Equal(t, fmt.Sprintf("hello-world-%d", first.ID), first.Slug)
	assert.Equal(t, fmt.Sprintf("hello-world-%d", second.ID), second.Slug)
	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Equal(t, store.PostDraft, first.Status)
}

func TestPostOwnership(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")
	register(t, a, "bob", "pw")
	alice := login(t, a, "alice", "pw123")
	bob := login(t, a, "bob", "pw")
	admin := createAdmin(t, a, "root", "rootpw")

	post := createPost(t, a, alice, map[string]any{"title": "Mine", "content": "x"})
	target := fmt.Sprintf("/posts/%d", post.ID)

	assert.Equal(t, http.StatusForbidden,
		doJSON(t, a, http.MethodPatch, target, bob, map[string]any{"title": "Stolen"}).Code)

	rec := doJSON(t, a, http.MethodPatch, target, admin, map[string]any{"status": "published"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, store.PostPublished, decode[store.Post](t, rec).Status)

	rec = doJSON(t, a, http.MethodDelete, target, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Mine", decode[store.Post](t, rec).Title)

	assert.Equal(t, http.StatusNotFound, doJSON(t, a, http.MethodGet, target, "", nil).Code)
}

func TestPostEmptyPatchLeavesRecord(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")
	token := login(t, a, "alice", "pw123")
	post := createPost(t, a, token, map[string]any{"title": "Same", "content": "body"})

	rec := doJSON(t, a, http.MethodPatch, fmt.Sprintf("/posts/%d", post.ID), token, map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[store.Post](t, rec)
	assert.Equal(t, post.Title, got.Title)
	assert.Equal(t, post.Slug, got.Slug)
	assert.Equal(t, post.Content, got.Content)
}

func TestListPostsPagination(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")
	token := login(t, a, "alice", "pw123")
	for i := 0; i < 3; i++ {
		createPost(t, a, token, map[string]any{"title": fmt.Sprintf("P%d", i), "content": "c"})
	}

	rec := doJSON(t, a, http.MethodGet, "/posts?limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.Post](t, rec), 2)

	rec = doJSON(t, a, http.MethodGet, "/posts?skip=2&limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.Post](t, rec), 1)

	assert.Equal(t, http.StatusUnprocessableEntity, doJSON(t, a, http.MethodGet, "/posts?limit=0", "", nil).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, doJSON(t, a, http.MethodGet, "/posts?status=bogus", "", nil).Code)

	rec = doJSON(t, a, http.MethodGet, "/users/alice/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.Post](t, rec), 3)
}

func TestTagsAndCategories(t *testing.T) {
	a := newTestApp(t)
	admin := createAdmin(t, a, "root", "rootpw")
	register(t, a, "alice", "pw123")
	alice := login(t, a, "alice", "pw123")

	rec := doJSON(t, a, http.MethodPost, "/tags", admin, map[string]string{"name": "go"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tag := decode[store.Tag](t, rec)

	rec = doJSON(t, a, http.MethodPost, "/categories", admin, map[string]string{"name": "Tech News"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cat := decode[store.Category](t, rec)
	assert.Equal(t, fmt.Sprintf("tech-news-%d", cat.ID), cat.Slug)

	post := createPost(t, a, alice, map[string]any{"title": "Tagged", "content": "c", "category_id": cat.ID})

	rec = doJSON(t, a, http.MethodPut, fmt.Sprintf("/posts/%d/tags", post.ID), alice,
		map[string]any{"tag_ids": []int64{tag.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, decode[store.Post](t, rec).Tags, 1)

	rec = doJSON(t, a, http.MethodGet, fmt.Sprintf("/posts/search/tags?tag_ids=%d", tag.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.Post](t, rec), 1)

	rec = doJSON(t, a, http.MethodGet, fmt.Sprintf("/posts/search/category?category_ids=%d", cat.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.Post](t, rec), 1)

	rec = doJSON(t, a, http.MethodPut, fmt.Sprintf("/posts/%d/tags", post.ID), alice,
		map[string]any{"tag_ids": []int64{tag.ID, 999}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Tag with '999' not found", decode[errorBody](t, rec).Detail)

	// Non-admins may not touch the taxonomy, whether or not the row exists.
	assert.Equal(t, http.StatusForbidden, doJSON(t, a, http.MethodDelete, "/tags/3", alice, nil).Code)

	rec = doJSON(t, a, http.MethodDelete, fmt.Sprintf("/categories/%d", cat.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, a, http.MethodGet, fmt.Sprintf("/posts/%d", post.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[store.Post](t, rec).CategoryID)
}

func TestComments(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")
	register(t, a, "bob", "pw")
	alice := login(t, a, "alice", "pw123")
	bob := login(t, a, "bob", "pw")
	post := createPost(t, a, alice, map[string]any{"title": "Talk", "content": "c"})

	rec := doJSON(t, a, http.MethodPost, "/comments", bob, map[string]any{"content": "nice", "post_id": post.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	comment := decode[store.Comment](t, rec)

	rec = doJSON(t, a, http.MethodPost, "/comments", bob, map[string]any{"content": "lost", "post_id": 999})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, a, http.MethodGet, fmt.Sprintf("/posts/%d/comments", post.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.Comment](t, rec), 1)

	target := fmt.Sprintf("/comments/%d", comment.ID)
	assert.Equal(t, http.StatusForbidden,
		doJSON(t, a, http.MethodPatch, target, alice, map[string]string{"content": "edited"}).Code)

	rec = doJSON(t, a, http.MethodPatch, target, bob, map[string]string{"content": "edited"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "edited", decode[store.Comment](t, rec).Content)

	assert.Equal(t, http.StatusOK, doJSON(t, a, http.MethodDelete, target, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, a, http.MethodGet, target, "", nil).Code)
}

func TestTasks(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")
	register(t, a, "bob", "pw")
	alice := login(t, a, "alice", "pw123")
	bob := login(t, a, "bob", "pw")

	rec := doJSON(t, a, http.MethodPost, "/tasks", alice, map[string]any{"name": "write docs", "sprint": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	task := decode[store.Task](t, rec)
	assert.Equal(t, store.ProgressTodo, task.Progress)
	target := fmt.Sprintf("/tasks/%d", task.ID)

	rec = doJSON(t, a, http.MethodPatch, target, alice, map[string]any{"progress": "in-progress"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[store.Task](t, rec)
	assert.Equal(t, store.ProgressInProgress, got.Progress)
	assert.Equal(t, "write docs", got.Name)
	assert.Equal(t, 2, got.Sprint)

	rec = doJSON(t, a, http.MethodPatch, target, alice, map[string]any{"progress": "later"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, a, http.MethodPut, target, alice, map[string]any{"name": "rewrite docs"})
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[store.Task](t, rec)
	assert.Equal(t, "rewrite docs", got.Name)
	assert.Equal(t, 0, got.Sprint)
	assert.Equal(t, store.ProgressTodo, got.Progress)

	rec = doJSON(t, a, http.MethodGet, "/tasks?progress=todo", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.Task](t, rec), 1)

	assert.Equal(t, http.StatusForbidden, doJSON(t, a, http.MethodDelete, target, bob, nil).Code)

	rec = doJSON(t, a, http.MethodDelete, "/tasks/99999", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found ID:99999", decode[errorBody](t, rec).Detail)

	rec = doJSON(t, a, http.MethodDelete, target, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Task deleted", decode[detailResponse](t, rec).Detail)
}

func TestProductsAndOrders(t *testing.T) {
	a := newTestApp(t)
	admin := createAdmin(t, a, "root", "rootpw")

	rec := doJSON(t, a, http.MethodPost, "/products", admin,
		map[string]any{"name": "Mouse", "category": "peripherals", "price": 25})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mouse := decode[store.Product](t, rec)
	rec = doJSON(t, a, http.MethodPost, "/products", admin,
		map[string]any{"name": "Monitor", "category": "displays", "price": 300})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, a, http.MethodGet, "/products?max_price=100", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cheap := decode[[]store.Product](t, rec)
	require.Len(t, cheap, 1)
	assert.Equal(t, "Mouse", cheap[0].Name)
	assert.Equal(t, http.StatusUnprocessableEntity, doJSON(t, a, http.MethodGet, "/products?max_price=abc", "", nil).Code)

	rec = doJSON(t, a, http.MethodPost, "/customers/7/orders", admin,
		map[string]any{"items": []int64{mouse.ID, mouse.ID}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[store.Order](t, rec)
	assert.Equal(t, int64(7), order.CustomerID)
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, []int64{mouse.ID, mouse.ID}, order.Items)

	target := fmt.Sprintf("/customers/7/orders/%d", order.ID)
	assert.Equal(t, http.StatusNotFound,
		doJSON(t, a, http.MethodGet, fmt.Sprintf("/customers/8/orders/%d", order.ID), "", nil).Code)

	rec = doJSON(t, a, http.MethodPatch, target, admin, map[string]any{"id": order.ID + 1, "status": "shipped"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Order ID mismatch", decode[errorBody](t, rec).Detail)

	rec = doJSON(t, a, http.MethodPatch, target, admin, map[string]any{"status": "shipped"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[store.Order](t, rec)
	assert.Equal(t, "shipped", got.Status)
	assert.Equal(t, order.Items, got.Items)

	rec = doJSON(t, a, http.MethodGet, "/customers/orders?status=shipped", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.Order](t, rec), 1)

	rec = doJSON(t, a, http.MethodDelete, fmt.Sprintf("/products/%d", mouse.ID), admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, a, http.MethodDelete, target, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order deleted", decode[detailResponse](t, rec).Detail)

	rec = doJSON(t, a, http.MethodDelete, fmt.Sprintf("/products/%d", mouse.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted", decode[detailResponse](t, rec).Detail)
}

func TestFeedAndSitemap(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")
	token := login(t, a, "alice", "pw123")
	createPost(t, a, token, map[string]any{"title": "Hidden Draft", "content": "c"})

	rec := doJSON(t, a, http.MethodGet, "/feed.xml", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Hidden Draft")

	post := createPost(t, a, token, map[string]any{"title": "Out Now", "content": "c", "status": "published"})

	rec = doJSON(t, a, http.MethodGet, "/feed.xml", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "application/rss+xml")
	assert.Contains(t, rec.Body.String(), "<title>Out Now</title>")
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	rec = doJSON(t, a, http.MethodGet, "/sitemap.xml", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf("http://localhost:8000/posts/%d", post.ID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAccept, "text/html")
	rec = send(t, a, req)
	assert.Contains(t, rec.Body.String(), "Out Now")
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func avatarUpload(t *testing.T, target, token string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, target, &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return req
}

func TestAvatarUpload(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "alice", "pw123")
	token := login(t, a, "alice", "pw123")

	rec := doJSON(t, a, http.MethodGet, "/users/alice/avatar", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = send(t, a, avatarUpload(t, "/users/alice/avatar", token, pngImage(t, 400, 300)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/users/alice/avatar", decode[map[string]any](t, rec)["avatar_url"])

	rec = doJSON(t, a, http.MethodGet, "/users/alice/avatar", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	loc := rec.Header().Get(echo.HeaderLocation)
	assert.True(t, strings.HasPrefix(loc, avatarPrefix+"/alice/"), loc)

	rec = doJSON(t, a, http.MethodGet, loc, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	img, format, err := image.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Rect(0, 0, avatarSize, avatarSize), img.Bounds())

	rec = send(t, a, avatarUpload(t, "/users/alice/avatar", token, []byte("not an image")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// memAvatars is an in-memory objstore.Store serving URLs from a fake CDN.
type memAvatars struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	onPut   func(key string)
}

var _ objstore.Store = (*memAvatars)(nil)

func newMemAvatars() *memAvatars {
	return &memAvatars{objects: map[string][]byte{}}
}

func (m *memAvatars) Put(_ context.Context, key, _ string, data []byte) error {
	m.mu.Lock()
	m.objects[key] = data
	hook := m.onPut
	m.mu.Unlock()
	if hook != nil {
		hook(key)
	}
	return nil
}

func (m *memAvatars) URL(_ context.Context, key string) (string, error) {
	return "https://cdn.example.test/" + key, nil
}

func (m *memAvatars) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memAvatars) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

func TestAvatarStoreOption(t *testing.T) {
	avatars := newMemAvatars()
	a := newTestApp(t, WithAvatarStore(avatars))
	register(t, a, "alice", "pw123")
	token := login(t, a, "alice", "pw123")

	rec := send(t, a, avatarUpload(t, "/users/alice/avatar", token, pngImage(t, 64, 64)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := avatars.keys()
	require.Len(t, first, 1)
	assert.True(t, strings.HasPrefix(first[0], "alice/"), first[0])

	rec = doJSON(t, a, http.MethodGet, "/users/alice/avatar", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://cdn.example.test/"+first[0], rec.Header().Get(echo.HeaderLocation))

	// Replacing the avatar removes the old object.
	rec = send(t, a, avatarUpload(t, "/users/alice/avatar", token, pngImage(t, 64, 64)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, first, avatars.deleted)
	second := avatars.keys()
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0], second[0])
}

func TestAvatarUploadCleansUpOnFailure(t *testing.T) {
	avatars := newMemAvatars()
	a := newTestApp(t, WithAvatarStore(avatars))
	register(t, a, "alice", "pw123")
	token := login(t, a, "alice", "pw123")

	// The client goes away right after the object is written, so the
	// transaction recording it never commits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	avatars.onPut = func(string) { cancel() }

	req := avatarUpload(t, "/users/alice/avatar", token, pngImage(t, 64, 64)).WithContext(ctx)
	rec := send(t, a, req)
	assert.NotEqual(t, http.StatusOK, rec.Code)
	assert.Empty(t, avatars.keys())
	assert.Len(t, avatars.deleted, 1)

	avatars.onPut = nil
	rec = doJSON(t, a, http.MethodGet, "/users/alice/avatar", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcessAvatarKeepsSmallImages(t *testing.T) {
	out, err := processAvatar(bytes.NewReader(pngImage(t, 80, 120)))
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 80, 80), img.Bounds())
}
