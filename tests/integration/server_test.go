package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/grocery/backend/internal/application/catalog"
	identityapp "github.com/grocery/backend/internal/application/identity"
	partnerapp "github.com/grocery/backend/internal/application/partner"
	reportapp "github.com/grocery/backend/internal/application/report"
	tradeapp "github.com/grocery/backend/internal/application/trade"
	"github.com/grocery/backend/internal/domain/identity"
	"github.com/grocery/backend/internal/infrastructure/auth"
	"github.com/grocery/backend/internal/infrastructure/cache"
	"github.com/grocery/backend/internal/infrastructure/config"
	"github.com/grocery/backend/internal/infrastructure/openfoodfacts"
	"github.com/grocery/backend/internal/infrastructure/persistence"
	"github.com/grocery/backend/internal/infrastructure/storage"
	"github.com/grocery/backend/internal/interfaces/http/dto"
	"github.com/grocery/backend/internal/interfaces/http/handler"
	"github.com/grocery/backend/internal/interfaces/http/middleware"
	"github.com/grocery/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeOpenFoodFacts answers search.pl with a single canned product
type fakeOpenFoodFacts struct {
	*httptest.Server
	hits atomic.Int32
}

func newFakeOpenFoodFacts(t *testing.T) *fakeOpenFoodFacts {
	t.Helper()
	f := &fakeOpenFoodFacts{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("search_terms") == "nothing" {
			_, _ = w.Write([]byte(`{"count":0,"products":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"count":1,"products":[{
			"code":"3017620422003",
			"product_name":"Nutella",
			"serving_size":"15 g",
			"nutriscore_grade":"e",
			"nutriments":{"energy-kcal_100g":539,"sugars_100g":56.3}
		}]}`))
	}))
	t.Cleanup(f.Close)
	return f
}

// APITestServer is the full HTTP stack over a PostgreSQL container
type APITestServer struct {
	DB     *TestDB
	Engine *gin.Engine
	JWT    *auth.JWTService
	Users  *persistence.GormUserRepository
	OFF    *fakeOpenFoodFacts
}

func NewAPITestServer(t *testing.T) *APITestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	testDB := NewTestDB(t)
	log := zap.NewNop()

	productRepo := persistence.NewGormProductRepository(testDB.DB)
	customerRepo := persistence.NewGormCustomerRepository(testDB.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(testDB.DB)
	userRepo := persistence.NewGormUserRepository(testDB.DB)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "integration-secret-key-at-least-32",
		RefreshSecret:          "integration-refresh-secret-key-32!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "grocery-test",
		MaxRefreshCount:        10,
	})
	blacklist := auth.NewInMemoryTokenBlacklist()

	off := newFakeOpenFoodFacts(t)
	stores := cache.NewStoreFactory(nil, cache.WithLogger(log))
	offClient := openfoodfacts.NewClient(config.OpenFoodFactsConfig{
		BaseURL:   off.URL,
		UserAgent: "grocery-integration-test",
		Timeout:   5 * time.Second,
		CacheTTL:  time.Minute,
	}, openfoodfacts.WithCache(stores.CreateStore(context.Background(), "off:")), openfoodfacts.WithLogger(log))

	productService := catalogapp.NewProductService(productRepo, invoiceRepo, offClient, storage.NewStubObjectStorage(), log)
	invoiceService := tradeapp.NewInvoiceService(invoiceRepo, productRepo, customerRepo, log)
	dashboardService := reportapp.NewDashboardService(productRepo, customerRepo, invoiceRepo, log)
	dashboardService.SetCache(stores.CreateStore(context.Background(), "dashboard:"), time.Nanosecond)

	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.TokenBlacklist = blacklist
	jwtCfg.Logger = log

	authLimiter := middleware.NewMemoryLimiter(100, time.Minute)
	t.Cleanup(authLimiter.Stop)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.BodyLimit(1<<20))
	router.RegisterAPI(engine, router.Handlers{
		Auth:     handler.NewAuthHandler(identityapp.NewAuthService(userRepo, jwtService, blacklist, log)),
		User:     handler.NewUserHandler(identityapp.NewUserService(userRepo, blacklist, time.Hour, log)),
		Product:  handler.NewProductHandler(productService),
		Customer: handler.NewCustomerHandler(partnerapp.NewCustomerService(customerRepo, log)),
		Invoice:  handler.NewInvoiceHandler(invoiceService),
		Report:   handler.NewReportHandler(dashboardService),
		System:   handler.NewSystemHandler("Grocery Backend API", "integration", &persistence.Database{DB: testDB.DB}),
	}, router.APIConfig{
		Auth:          middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		AuthRateLimit: middleware.AuthRateLimit(authLimiter, log),
	})

	return &APITestServer{DB: testDB, Engine: engine, JWT: jwtService, Users: userRepo, OFF: off}
}

// CreateUser stores a user with password "password123"
func (s *APITestServer) CreateUser(t *testing.T, username string, role identity.Role) *identity.User {
	t.Helper()
	user, err := identity.NewUser(username, username+"@example.com", "password123", role)
	require.NoError(t, err)
	require.NoError(t, s.Users.Create(context.Background(), user))
	return user
}

// Login obtains an access token through the API
func (s *APITestServer) Login(t *testing.T, username string) string {
	t.Helper()
	w := s.Request(http.MethodPost, "/api/token", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data handler.TokenObtainResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.Access
}

func (s *APITestServer) Request(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, req)
	return w
}

// Data decodes a success envelope's data into T
func Data[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Meta    *dto.Meta       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.True(t, resp.Success, w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

// ErrorCode returns the error code of a failed response
func ErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}
