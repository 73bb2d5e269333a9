package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/grocery/backend/internal/application/catalog"
	identityapp "github.com/grocery/backend/internal/application/identity"
	partnerapp "github.com/grocery/backend/internal/application/partner"
	reportapp "github.com/grocery/backend/internal/application/report"
	tradeapp "github.com/grocery/backend/internal/application/trade"
	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/grocery/backend/internal/domain/identity"
	"github.com/grocery/backend/internal/infrastructure/auth"
	"github.com/grocery/backend/internal/infrastructure/config"
	"github.com/grocery/backend/internal/infrastructure/persistence"
	"github.com/grocery/backend/internal/infrastructure/storage"
	"github.com/grocery/backend/internal/interfaces/http/dto"
	"github.com/grocery/backend/internal/interfaces/http/middleware"
	"github.com/grocery/backend/tests/testutil"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type fakeNutrition struct {
	info catalog.NutritionalInfo
	err  error
}

func (f *fakeNutrition) LookupNutrition(_ context.Context, _ string) (catalog.NutritionalInfo, error) {
	return f.info, f.err
}

type fakePrinter struct{}

func (fakePrinter) RenderInvoicePDF(_ context.Context, inv *tradeapp.InvoiceResponse) ([]byte, error) {
	return []byte("%PDF-1.4 invoice " + inv.ID.String()), nil
}

// testEnv wires real services over an in-memory database behind the JWT middleware
type testEnv struct {
	engine    *gin.Engine
	jwt       *auth.JWTService
	blacklist *auth.InMemoryTokenBlacklist
	users     *persistence.GormUserRepository
	nutrition *fakeNutrition
	invoices  *tradeapp.InvoiceService
}

type envOption func(*envSettings)

type envSettings struct {
	printer bool
	storage bool
}

func withoutPrinter() envOption { return func(s *envSettings) { s.printer = false } }
func withoutStorage() envOption { return func(s *envSettings) { s.storage = false } }

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	settings := envSettings{printer: true, storage: true}
	for _, opt := range opts {
		opt(&settings)
	}

	db := testutil.NewSQLiteDB(t)
	productRepo := persistence.NewGormProductRepository(db)
	customerRepo := persistence.NewGormCustomerRepository(db)
	invoiceRepo := persistence.NewGormInvoiceRepository(db)
	userRepo := persistence.NewGormUserRepository(db)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "handler-test-secret-key-32-chars!",
		RefreshSecret:          "handler-test-refresh-secret-32-ch",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "grocery-test",
		MaxRefreshCount:        5,
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	nutrition := &fakeNutrition{}

	var pictures catalogapp.PictureStorage
	if settings.storage {
		pictures = storage.NewStubObjectStorage()
	}

	productService := catalogapp.NewProductService(productRepo, invoiceRepo, nutrition, pictures, nil)
	customerService := partnerapp.NewCustomerService(customerRepo, nil)
	invoiceService := tradeapp.NewInvoiceService(invoiceRepo, productRepo, customerRepo, nil)
	if settings.printer {
		invoiceService.SetPrinter(fakePrinter{})
	}
	dashboardService := reportapp.NewDashboardService(productRepo, customerRepo, invoiceRepo, nil)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, nil)
	userService := identityapp.NewUserService(userRepo, blacklist, time.Hour, nil)

	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.TokenBlacklist = blacklist

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.JWTAuthMiddlewareWithConfig(jwtCfg))
	mountRoutes(engine,
		NewAuthHandler(authService),
		NewUserHandler(userService),
		NewProductHandler(productService),
		NewCustomerHandler(customerService),
		NewInvoiceHandler(invoiceService),
		NewReportHandler(dashboardService),
		NewSystemHandler("Grocery Backend API", "test", nil),
	)

	return &testEnv{
		engine:    engine,
		jwt:       jwtService,
		blacklist: blacklist,
		users:     userRepo,
		nutrition: nutrition,
		invoices:  invoiceService,
	}
}

// mountRoutes mirrors the production route table
func mountRoutes(engine *gin.Engine, a *AuthHandler, u *UserHandler, p *ProductHandler, cu *CustomerHandler, i *InvoiceHandler, r *ReportHandler, s *SystemHandler) {
	engine.GET("/health", s.Health)
	engine.NoRoute(s.NoRoute)

	api := engine.Group("/api")
	api.POST("/token", a.ObtainToken)
	api.POST("/token/refresh", a.RefreshToken)
	api.POST("/register", a.Register)
	api.GET("/me", a.GetCurrentUser)
	api.POST("/logout", a.Logout)

	users := api.Group("/users", middleware.RequireAdmin())
	users.GET("/:id", u.GetByID)
	users.POST("/:id/activate", u.Activate)
	users.POST("/:id/deactivate", u.Deactivate)
	users.PUT("/:id/role", u.ChangeRole)

	api.POST("/products", p.Create)
	api.GET("/products", p.List)
	api.GET("/products/:id", p.GetByID)
	api.PUT("/products/:id", p.Update)
	api.PATCH("/products/:id", p.Update)
	api.DELETE("/products/:id", p.Delete)
	api.POST("/products/:id/enrich", p.Enrich)
	api.POST("/products/:id/picture", p.RequestPictureUpload)
	api.POST("/products/:id/picture/confirm", p.ConfirmPictureUpload)

	api.POST("/customers", cu.Create)
	api.GET("/customers", cu.List)
	api.GET("/customers/me", cu.GetMine)
	api.GET("/customers/:id", cu.GetByID)
	api.PATCH("/customers/:id", cu.Update)
	api.DELETE("/customers/:id", cu.Delete)

	api.POST("/invoices", i.Create)
	api.GET("/invoices", i.List)
	api.GET("/invoices/:id", i.GetByID)
	api.PATCH("/invoices/:id", i.Update)
	api.DELETE("/invoices/:id", i.Delete)
	api.GET("/invoices/:id/pdf", i.DownloadPDF)

	api.GET("/dashboard/stats", middleware.RequireAdmin(), r.GetDashboardStats)
	api.GET("/system/info", s.GetSystemInfo)
}

// createUser stores a user directly and returns it
func (e *testEnv) createUser(t *testing.T, username string, role identity.Role) *identity.User {
	t.Helper()
	user, err := identity.NewUser(username, username+"@example.com", "s3cret-pass", role)
	require.NoError(t, err)
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

// tokenFor issues an access token for user
func (e *testEnv) tokenFor(t *testing.T, user *identity.User) string {
	t.Helper()
	pair, err := e.jwt.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role.String(),
	})
	require.NoError(t, err)
	return pair.AccessToken
}

// adminToken creates an admin account and returns its access token
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	return e.tokenFor(t, e.createUser(t, "admin", identity.RoleAdmin))
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// envelope is the response wrapper with data left raw for typed decoding
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return env
}

// decodeData decodes a success envelope's data into T
func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.True(t, env.Success, "body: %s", w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// requireError asserts the status and error code of a failed response
func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) *dto.ErrorInfo {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
	env := decodeEnvelope(t, w)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	require.Equal(t, code, env.Error.Code)
	return env.Error
}

// createProduct posts a product and returns the created record
func (e *testEnv) createProduct(t *testing.T, token string, body map[string]any) catalogapp.ProductResponse {
	t.Helper()
	w := e.do(http.MethodPost, "/api/products", token, body)
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	return decodeData[catalogapp.ProductResponse](t, w)
}

// createCustomer posts a customer and returns the created record
func (e *testEnv) createCustomer(t *testing.T, token string, body map[string]any) partnerapp.CustomerResponse {
	t.Helper()
	w := e.do(http.MethodPost, "/api/customers", token, body)
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	return decodeData[partnerapp.CustomerResponse](t, w)
}
