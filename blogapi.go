// Package blogapi is a REST backend for a small blog platform with a task
// tracker and a product/order demo, built with Go and Echo.
//
// Every request runs in one storage transaction. Identity comes from signed
// bearer tokens and is re-checked against the account table on each request.
package blogapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogapi/internal/auth"
	"github.com/eringen/blogapi/internal/objstore"
	"github.com/eringen/blogapi/internal/store"
)

// App is the central blogapi application. It wires together the store, the
// token issuer, caches, handlers and middleware.
type App struct {
	Config  Config
	Echo    *echo.Echo
	Store   *store.Store
	Tokens  *auth.Issuer
	Feed    *FeedCache
	Avatars objstore.Store
	Logger  *slog.Logger

	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	ownsStore    bool
}

// New creates an App with the given configuration. Call Init before serving.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	return a
}

// Init validates the config, opens and migrates the database, and installs
// middleware and routes.
func (a *App) Init(ctx context.Context) error {
	if a.Config.SecretKey == "" {
		return errors.New("blogapi: SecretKey is required")
	}

	tokens, err := auth.NewIssuer(a.Config.SecretKey, a.Config.Algorithm, a.Config.TokenTTL)
	if err != nil {
		return fmt.Errorf("blogapi: %w", err)
	}
	a.Tokens = tokens

	if a.Store == nil {
		s, err := store.Open(ctx, a.Config.DatabaseURL, a.Logger)
		if err != nil {
			return fmt.Errorf("blogapi: open store: %w", err)
		}
		a.Store = s
		a.ownsStore = true
	}
	if err := a.Store.Migrate(ctx); err != nil {
		return fmt.Errorf("blogapi: %w", err)
	}

	if a.Avatars == nil {
		avatars, err := a.openAvatarStore(ctx)
		if err != nil {
			return fmt.Errorf("blogapi: init avatar store: %w", err)
		}
		a.Avatars = avatars
	}

	a.Feed = NewFeedCache(a.Store, a.Config.FeedCacheTTL)
	a.loginLimiter = NewLoginLimiter(a.Config.LoginAttempts, a.Config.LoginWindow)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.Logger.Info("initialized", "db", a.Store.Dialect(), "avatars", fmt.Sprintf("%T", a.Avatars))
	return nil
}

func (a *App) openAvatarStore(ctx context.Context) (objstore.Store, error) {
	if a.Config.S3.Bucket != "" {
		return objstore.NewS3(ctx, a.Config.S3)
	}
	return objstore.NewLocal(a.Config.AvatarDir, avatarPrefix)
}

// Start serves HTTP on Config.Addr until the server is shut down.
func (a *App) Start() error {
	a.Logger.Info("listening", "addr", a.Config.Addr)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Close releases resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.Store != nil && a.ownsStore {
		return a.Store.Close()
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/", a.handleIndex)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)
	if local, ok := a.Avatars.(*objstore.Local); ok {
		e.Static(avatarPrefix, local.Dir)
	}

	// Authentication
	e.POST("/register", a.handleRegister)
	e.POST("/login", a.handleLogin)
	e.POST("/logout", a.handleLogout)
	e.GET("/me", a.handleMe, a.requireToken)
	e.GET("/protected", a.handleProtected, a.requireRole(auth.RoleAdmin))

	// Users
	e.GET("/users", a.handleListUsers, a.requireRole(auth.RoleAdmin))
	e.POST("/users", a.handleCreateUser, a.requireRole(auth.RoleAdmin))
	e.GET("/users/:username", a.handleGetUser)
	e.PUT("/users/:username", a.handleUpdateUser, a.requireToken)
	e.PATCH("/users/:username", a.handleUpdateUser, a.requireToken)
	e.DELETE("/users/:username", a.handleDeleteUser, a.requireRole(auth.RoleAdmin))
	e.PUT("/users/:username/avatar", a.handleUploadAvatar, a.requireToken)
	e.GET("/users/:username/avatar", a.handleGetAvatar)
	e.GET("/users/:username/posts", a.handleUserPosts)

	// Posts
	e.GET("/posts", a.handleListPosts)
	e.POST("/posts", a.handleCreatePost, a.requireToken)
	e.GET("/posts/search/tags", a.handlePostsByTags)
	e.GET("/posts/search/category", a.handlePostsByCategories)
	e.GET("/posts/:id", a.handleGetPost)
	e.PUT("/posts/:id", a.handleUpdatePost, a.requireToken)
	e.PATCH("/posts/:id", a.handleUpdatePost, a.requireToken)
	e.DELETE("/posts/:id", a.handleDeletePost, a.requireToken)
	e.PUT("/posts/:id/tags", a.handleSetPostTags, a.requireToken)
	e.PATCH("/posts/:id/tags", a.handleSetPostTags, a.requireToken)
	e.GET("/posts/:id/comments", a.handlePostComments)

	// Comments
	e.GET("/comments", a.handleListComments)
	e.POST("/comments", a.handleCreateComment, a.requireToken)
	e.GET("/comments/:id", a.handleGetComment)
	e.PUT("/comments/:id", a.handleUpdateComment, a.requireToken)
	e.PATCH("/comments/:id", a.handleUpdateComment, a.requireToken)
	e.DELETE("/comments/:id", a.handleDeleteComment, a.requireToken)

	// Categories and tags
	e.GET("/categories", a.handleListCategories)
	e.POST("/categories", a.handleCreateCategory, a.requireRole(auth.RoleAdmin))
	e.GET("/categories/:id", a.handleGetCategory)
	e.PUT("/categories/:id", a.handleUpdateCategory, a.requireRole(auth.RoleAdmin))
	e.PATCH("/categories/:id", a.handleUpdateCategory, a.requireRole(auth.RoleAdmin))
	e.DELETE("/categories/:id", a.handleDeleteCategory, a.requireRole(auth.RoleAdmin))
	e.GET("/tags", a.handleListTags)
	e.POST("/tags", a.handleCreateTag, a.requireRole(auth.RoleAdmin))
	e.GET("/tags/:id", a.handleGetTag)
	e.PUT("/tags/:id", a.handleUpdateTag, a.requireRole(auth.RoleAdmin))
	e.PATCH("/tags/:id", a.handleUpdateTag, a.requireRole(auth.RoleAdmin))
	e.DELETE("/tags/:id", a.handleDeleteTag, a.requireRole(auth.RoleAdmin))

	// Tasks
	e.GET("/tasks", a.handleListTasks)
	e.POST("/tasks", a.handleCreateTask, a.requireToken)
	e.GET("/tasks/:id", a.handleGetTask)
	e.PUT("/tasks/:id", a.handleReplaceTask, a.requireToken)
	e.PATCH("/tasks/:id", a.handlePatchTask, a.requireToken)
	e.DELETE("/tasks/:id", a.handleDeleteTask, a.requireToken)

	// Products and orders
	e.GET("/products", a.handleListProducts)
	e.POST("/products", a.handleCreateProduct, a.requireRole(auth.RoleAdmin))
	e.GET("/products/:id", a.handleGetProduct)
	e.PUT("/products/:id", a.handleReplaceProduct, a.requireRole(auth.RoleAdmin))
	e.PATCH("/products/:id", a.handlePatchProduct, a.requireRole(auth.RoleAdmin))
	e.DELETE("/products/:id", a.handleDeleteProduct, a.requireRole(auth.RoleAdmin))
	e.GET("/customers/orders", a.handleListOrders)
	e.POST("/customers/:customer_id/orders", a.handleCreateOrder, a.requireRole(auth.RoleAdmin))
	e.GET("/customers/:customer_id/orders/:order_id", a.handleGetOrder)
	e.PUT("/customers/:customer_id/orders/:order_id", a.handleReplaceOrder, a.requireRole(auth.RoleAdmin))
	e.PATCH("/customers/:customer_id/orders/:order_id", a.handlePatchOrder, a.requireRole(auth.RoleAdmin))
	e.DELETE("/customers/:customer_id/orders/:order_id", a.handleDeleteOrder, a.requireRole(auth.RoleAdmin))
}
