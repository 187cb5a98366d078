package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	assistantsvc "github.com/bazarmoz/bazar-backend/internal/assistant"
	cartsvc "github.com/bazarmoz/bazar-backend/internal/cart"
	catalogsvc "github.com/bazarmoz/bazar-backend/internal/catalog"
	checkoutsvc "github.com/bazarmoz/bazar-backend/internal/checkout"
	deliverysvc "github.com/bazarmoz/bazar-backend/internal/delivery"
	historysvc "github.com/bazarmoz/bazar-backend/internal/history"
	usersvc "github.com/bazarmoz/bazar-backend/internal/users"
	"github.com/bazarmoz/bazar-backend/pkg/config"
	"github.com/bazarmoz/bazar-backend/pkg/db/models"
	"github.com/bazarmoz/bazar-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubCatalogService struct{}

func (stubCatalogService) DisplayList(ctx context.Context, category string) ([]catalogsvc.DisplayProduct, error) {
	return []catalogsvc.DisplayProduct{}, nil
}

func (stubCatalogService) ProductDetail(ctx context.Context, id string) (*catalogsvc.ProductDetail, error) {
	return &catalogsvc.ProductDetail{}, nil
}

func (stubCatalogService) PickVariant(ctx context.Context, familyID, variantType, size string) (*models.Product, error) {
	return &models.Product{}, nil
}

type stubUserService struct{}

func (stubUserService) Signup(ctx context.Context, req usersvc.SignupRequest) (*usersvc.AuthResponse, error) {
	return &usersvc.AuthResponse{}, nil
}

func (stubUserService) Login(ctx context.Context, req usersvc.LoginRequest) (*usersvc.AuthResponse, error) {
	return &usersvc.AuthResponse{}, nil
}

func (stubUserService) Logout(ctx context.Context, accessID string) error { return nil }

func (stubUserService) Profile(ctx context.Context, userID uuid.UUID) (*usersvc.ProfileResponse, error) {
	return &usersvc.ProfileResponse{}, nil
}

func (stubUserService) UpdateLocation(ctx context.Context, userID uuid.UUID, req usersvc.UpdateLocationRequest) error {
	return nil
}

type stubCartService struct{}

func (stubCartService) Get(ctx context.Context, userID uuid.UUID) (*cartsvc.Cart, error) {
	return cartsvc.NewCart(), nil
}

func (stubCartService) AddItem(ctx context.Context, userID uuid.UUID, productID string, quantity int) (*cartsvc.Cart, error) {
	return cartsvc.NewCart(), nil
}

func (stubCartService) RemoveItem(ctx context.Context, userID uuid.UUID, productID string) (*cartsvc.Cart, error) {
	return cartsvc.NewCart(), nil
}

func (stubCartService) Clear(ctx context.Context, userID uuid.UUID) error { return nil }

type stubCheckoutService struct{}

func (stubCheckoutService) Quote(ctx context.Context, userID uuid.UUID, req checkoutsvc.QuoteRequest) (*checkoutsvc.Quote, error) {
	return &checkoutsvc.Quote{}, nil
}

func (stubCheckoutService) Commit(ctx context.Context, userID uuid.UUID, req checkoutsvc.CommitRequest) (*models.Order, error) {
	return &models.Order{}, nil
}

type stubOrderService struct{}

func (stubOrderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (stubOrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

type stubHistoryService struct{}

func (stubHistoryService) List(ctx context.Context, userID uuid.UUID) ([]historysvc.Entry, error) {
	return nil, nil
}

func (stubHistoryService) Record(ctx context.Context, userID uuid.UUID, productID string) ([]historysvc.Entry, error) {
	return nil, nil
}

type stubAssistantService struct{}

func (stubAssistantService) Chat(ctx context.Context, userID uuid.UUID, req assistantsvc.ChatRequest) (*assistantsvc.ChatReply, error) {
	return &assistantsvc.ChatReply{}, nil
}

func (stubAssistantService) Search(ctx context.Context, req assistantsvc.SearchRequest) ([]catalogsvc.DisplayProduct, error) {
	return nil, nil
}

func (stubAssistantService) Recommendations(ctx context.Context, userID uuid.UUID, req assistantsvc.RecommendationsRequest) ([]catalogsvc.DisplayProduct, error) {
	return nil, nil
}

func (stubAssistantService) Messages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT.Secret = "router-test-secret"
	cfg.JWT.Issuer = "bazar-test"
	cfg.JWT.ExpirationMinutes = 15

	calc, err := deliverysvc.NewCalculator(config.SellerConfig{
		ID:        "bazar-maputo",
		Latitude:  -25.9653,
		Longitude: 32.5892,
		RatePerKm: "15",
	})
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})

	return NewRouter(Deps{
		Config:    cfg,
		Logger:    logg,
		DB:        stubPinger{},
		Session:   stubSessionChecker{},
		Users:     stubUserService{},
		Catalog:   stubCatalogService{},
		Cart:      stubCartService{},
		Checkout:  stubCheckoutService{},
		Delivery:  calc,
		Orders:    stubOrderService{},
		History:   stubHistoryService{},
		Assistant: stubAssistantService{},
	})
}

func TestRouterPublicRoutes(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health/live", http.StatusOK},
		{http.MethodGet, "/health/ready", http.StatusOK},
		{http.MethodGet, "/api/v1/products", http.StatusOK},
		{http.MethodGet, "/api/v1/products/1-a3-familia", http.StatusOK},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestRouterRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodPost, "/api/v1/checkout"},
		{http.MethodGet, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/profile"},
		{http.MethodGet, "/api/v1/history"},
		{http.MethodPost, "/api/v1/assistant/chat"},
	}

	for _, tc := range paths {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 without token, got %d", tc.method, tc.path, rec.Code)
		}
	}
}
