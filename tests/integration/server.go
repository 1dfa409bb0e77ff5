package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	adminapp "github.com/storefront/backend/internal/application/admin"
	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	identityapp "github.com/storefront/backend/internal/application/identity"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "s3cretpass1"

// TestServer is the storefront API wired against a test database
type TestServer struct {
	DB           *Postgres
	Engine       *gin.Engine
	ProductRepo  *persistence.GormProductRepository
	UserRepo     *persistence.GormUserRepository
	OrderService *orderapp.OrderService
	t            *testing.T
}

// ServerOption adjusts the test server
type ServerOption func(*serverOptions)

type serverOptions struct {
	redis            redis.UniversalClient
	maxLoginAttempts int
}

// WithRedis swaps the in-process stores for Redis backed ones
func WithRedis(client redis.UniversalClient) ServerOption {
	return func(o *serverOptions) { o.redis = client }
}

// WithMaxLoginAttempts sets the lockout threshold
func WithMaxLoginAttempts(n int) ServerOption {
	return func(o *serverOptions) { o.maxLoginAttempts = n }
}

// NewTestServer builds the full handler stack on tdb
func NewTestServer(t *testing.T, tdb *Postgres, opts ...ServerOption) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.UseJSONFieldNames()

	o := serverOptions{maxLoginAttempts: 5}
	for _, opt := range opts {
		opt(&o)
	}

	log := zap.NewNop()
	db := tdb.DB

	var (
		revocations  auth.Revocations
		productCache catalogapp.ProductCache
		idempotency  shared.IdempotencyStore
	)
	if o.redis != nil {
		revocations = auth.NewRedisRevocations(o.redis)
		productCache = cache.NewRedisProductCache(o.redis, time.Minute, log)
		idempotency = cache.NewRedisIdempotencyStore(o.redis)
	} else {
		store := cache.NewLocalIdempotency(0)
		t.Cleanup(func() { _ = store.Close() })
		revocations = auth.NewMemoryRevocations()
		productCache = cache.NewInMemoryProductCache(time.Minute)
		idempotency = store
	}

	userRepo := persistence.NewGormUserRepository(db)
	tokenRepo := persistence.NewGormRefreshTokenRepository(db)
	productRepo := persistence.NewGormProductRepository(db)
	categoryRepo := persistence.NewGormCategoryRepository(db)
	cartRepo := persistence.NewGormCartRepository(db)
	orderRepo := persistence.NewGormOrderRepository(db)
	txScope := persistence.NewGormTransactionScope(db)

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(catalogapp.NewProductCacheInvalidator(productCache, log))
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	tokens := auth.NewTokenIssuer(config.JWTConfig{
		Secret:                 "integration-access-secret-0123456789abcdef",
		RefreshSecret:          "integration-refresh-secret-0123456789abcdef",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "storefront-test",
	})
	authService := identityapp.NewAuthService(userRepo, tokenRepo, txScope, tokens, revocations, bus,
		identityapp.AuthServiceConfig{
			MaxLoginAttempts: o.maxLoginAttempts,
			LockDuration:     15 * time.Minute,
		}, log)
	userService := identityapp.NewUserService(userRepo, authService, log)
	productService := catalogapp.NewProductService(productRepo, categoryRepo, orderRepo, cartRepo, log,
		catalogapp.WithProductCache(productCache),
		catalogapp.WithEventPublisher(bus),
	)
	categoryService := catalogapp.NewCategoryService(categoryRepo, productRepo, log)
	cartService := cartapp.NewCartService(txScope, cartRepo, productRepo, log)
	orderService := orderapp.NewOrderService(txScope, orderRepo, orderapp.OrderServiceConfig{
		FlatShippingFee:       decimal.RequireFromString("5.00"),
		FreeShippingThreshold: decimal.RequireFromString("100.00"),
		IdempotencyTTL:        time.Hour,
	}, log,
		orderapp.WithIdempotencyStore(idempotency),
		orderapp.WithEventPublisher(bus),
	)
	dashboardService := adminapp.NewDashboardService(userRepo, productRepo, orderRepo, log)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	jwtConfig := middleware.JWTMiddlewareConfig{
		Tokens:      tokens,
		Revocations: revocations,
		Logger:      log,
	}

	api := router.New(engine, "v1")
	api.Add(router.Storefront(router.Handlers{
		Auth:     handler.NewAuthHandler(authService, cartService),
		Product:  handler.NewProductHandler(productService),
		Category: handler.NewCategoryHandler(categoryService),
		Cart:     handler.NewCartHandler(cartService),
		Order:    handler.NewOrderHandler(orderService),
		Admin:    handler.NewAdminHandler(dashboardService, userService, 5),
	}, router.Guards{
		RequireUser:  middleware.JWTAuth(jwtConfig),
		OptionalUser: middleware.OptionalJWTAuth(jwtConfig),
		RequireAdmin: middleware.RequireAdmin(),
	})...).Mount()

	return &TestServer{
		DB:           tdb,
		Engine:       engine,
		ProductRepo:  productRepo,
		UserRepo:     userRepo,
		OrderService: orderService,
		t:            t,
	}
}

// Request describes one API call. Path is relative to /api/v1.
type Request struct {
	Method  string
	Path    string
	Body    any
	Token   string
	Session string
	Headers map[string]string
}

// Do performs req and returns the recorder
func (s *TestServer) Do(req Request) *httptest.ResponseRecorder {
	s.t.Helper()

	var body bytes.Buffer
	if req.Body != nil {
		require.NoError(s.t, json.NewEncoder(&body).Encode(req.Body))
	}
	httpReq := httptest.NewRequest(req.Method, "/api/v1"+req.Path, &body)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	if req.Session != "" {
		httpReq.Header.Set(middleware.SessionIDHeader, req.Session)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, httpReq)
	return w
}

// envelope is the response wrapper with a typed payload
type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorBody `json:"error"`
	Meta    *dto.PageMeta  `json:"meta"`
}

// decode asserts the status code and unwraps the envelope
func decode[T any](t *testing.T, w *httptest.ResponseRecorder, status int) envelope[T] {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// errorCode asserts the status and returns the error code
func errorCode(t *testing.T, w *httptest.ResponseRecorder, status int) string {
	t.Helper()
	env := decode[json.RawMessage](t, w, status)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	return env.Error.Code
}

// Register signs up a customer through the API and returns the tokens
func (s *TestServer) Register(email string) handler.AuthResponse {
	s.t.Helper()
	w := s.Do(Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body: handler.RegisterRequest{
			Email:    email,
			Password: testPassword,
			FullName: "Integration Shopper",
		},
	})
	return decode[handler.AuthResponse](s.t, w, http.StatusCreated).Data
}

// Login signs in through the API
func (s *TestServer) Login(email, password, session string) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.Do(Request{
		Method:  http.MethodPost,
		Path:    "/auth/login",
		Session: session,
		Body:    handler.LoginRequest{Email: email, Password: password},
	})
}

// CreateAdmin inserts an admin account and signs it in
func (s *TestServer) CreateAdmin(email string) string {
	s.t.Helper()
	admin, err := identity.NewAdmin(email, testPassword, "Integration Admin")
	require.NoError(s.t, err)
	require.NoError(s.t, s.UserRepo.Create(context.Background(), admin))

	w := s.Login(email, testPassword, "")
	return decode[handler.AuthResponse](s.t, w, http.StatusOK).Data.Token.AccessToken
}

// CreateProduct inserts an active product
func (s *TestServer) CreateProduct(name, sku, price string, stock int) *catalog.Product {
	s.t.Helper()
	p, err := catalog.NewProduct(name, sku, decimal.RequireFromString(price), stock)
	require.NoError(s.t, err)
	require.NoError(s.t, s.ProductRepo.Create(context.Background(), p))
	return p
}

// Stock reads the current stock of a product
func (s *TestServer) Stock(id uuid.UUID) int {
	s.t.Helper()
	p, err := s.ProductRepo.FindByID(context.Background(), id)
	require.NoError(s.t, err)
	return p.Stock
}

func shippingAddress() handler.ShippingAddressRequest {
	return handler.ShippingAddressRequest{
		Recipient:  "Ada Lovelace",
		Phone:      "+44 20 7946 0000",
		Line1:      "12 St James's Square",
		City:       "London",
		PostalCode: "SW1Y 4JH",
		Country:    "GB",
	}
}
