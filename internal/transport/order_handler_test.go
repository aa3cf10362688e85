package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockOrderService struct {
	createFn func(ctx context.Context, userID uuid.UUID, items []service.CreateOrderItem) (*domain.Order, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	listFn   func(ctx context.Context, filter repository.OrderFilter, page, pageSize int) ([]*domain.Order, int, error)
	updateFn func(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, userID uuid.UUID, items []service.CreateOrderItem) (*domain.Order, error) {
	return m.createFn(ctx, userID, items)
}

func (m *mockOrderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return m.getFn(ctx, id)
}

func (m *mockOrderService) ListOrders(ctx context.Context, filter repository.OrderFilter, page, pageSize int) ([]*domain.Order, int, error) {
	return m.listFn(ctx, filter, page, pageSize)
}

func (m *mockOrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	return m.updateFn(ctx, id, status)
}

func orderRouter(svc service.OrderService) *chi.Mux {
	r := chi.NewRouter()
	NewOrderHandler(svc, zap.NewNop(), PageDefaults{DefaultLimit: 20, MaxLimit: 100}).RegisterRoutes(r)
	return r
}

func sampleOrder(userID uuid.UUID) *domain.Order {
	return &domain.Order{
		ID:          uuid.New(),
		UserID:      userID,
		TotalAmount: 2500,
		Status:      domain.StatusPending,
		Items: []domain.OrderItem{
			{ID: uuid.New(), ProductID: uuid.New(), Quantity: 2, UnitPrice: 1000},
			{ID: uuid.New(), ProductID: uuid.New(), Quantity: 1, UnitPrice: 500},
		},
	}
}

func TestOrderHandler_Create_Success(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	order := sampleOrder(userID)

	svc := &mockOrderService{
		createFn: func(ctx context.Context, gotUser uuid.UUID, items []service.CreateOrderItem) (*domain.Order, error) {
			assert.Equal(t, userID, gotUser)
			require.Len(t, items, 1)
			assert.Equal(t, productID, items[0].ProductID)
			assert.Equal(t, 2, items[0].Quantity)
			return order, nil
		},
	}

	body, _ := json.Marshal(CreateOrderRequest{
		UserID: userID,
		Items:  []OrderItemRequest{{ProductID: productID, Quantity: 2}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	orderRouter(svc).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp middleware.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestOrderHandler_Create_AuthenticatedUserOverridesBody(t *testing.T) {
	authedID := uuid.New()
	svc := &mockOrderService{
		createFn: func(ctx context.Context, gotUser uuid.UUID, items []service.CreateOrderItem) (*domain.Order, error) {
			assert.Equal(t, authedID, gotUser)
			return sampleOrder(gotUser), nil
		},
	}

	body, _ := json.Marshal(CreateOrderRequest{
		UserID: uuid.New(),
		Items:  []OrderItemRequest{{ProductID: uuid.New(), Quantity: 1}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, authedID))
	rr := httptest.NewRecorder()
	orderRouter(svc).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestOrderHandler_Create_ErrorMapping(t *testing.T) {
	userID := uuid.New()
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"user not found", repository.ErrUserNotFound, http.StatusNotFound},
		{"product not found", fmt.Errorf("%w: product x", repository.ErrProductNotFound), http.StatusNotFound},
		{"insufficient stock", fmt.Errorf("%w: product y", repository.ErrInsufficientStock), http.StatusConflict},
		{"invalid quantity", fmt.Errorf("%w: product z", service.ErrInvalidQuantity), http.StatusBadRequest},
		{"storage failure", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				createFn: func(ctx context.Context, gotUser uuid.UUID, items []service.CreateOrderItem) (*domain.Order, error) {
					return nil, tt.serviceErr
				},
			}

			body, _ := json.Marshal(CreateOrderRequest{
				UserID: userID,
				Items:  []OrderItemRequest{{ProductID: uuid.New(), Quantity: 1}},
			})
			req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
			rr := httptest.NewRecorder()
			orderRouter(svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)

			var resp middleware.APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestOrderHandler_Create_EmptyItemsRejected(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(ctx context.Context, gotUser uuid.UUID, items []service.CreateOrderItem) (*domain.Order, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	body := []byte(fmt.Sprintf(`{"userId":%q,"items":[]}`, uuid.New()))
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	orderRouter(svc).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrderHandler_Create_MissingUserRejected(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(ctx context.Context, gotUser uuid.UUID, items []service.CreateOrderItem) (*domain.Order, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	body := []byte(fmt.Sprintf(`{"items":[{"productId":%q,"quantity":1}]}`, uuid.New()))
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	orderRouter(svc).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrderHandler_Get(t *testing.T) {
	order := sampleOrder(uuid.New())
	svc := &mockOrderService{
		getFn: func(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
			if id == order.ID {
				return order, nil
			}
			return nil, repository.ErrOrderNotFound
		},
	}
	router := orderRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/orders/"+order.ID.String(), nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/orders/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/orders/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrderHandler_List_FiltersAndPagination(t *testing.T) {
	userID := uuid.New()
	var gotFilter repository.OrderFilter
	var gotPage, gotLimit int

	svc := &mockOrderService{
		listFn: func(ctx context.Context, filter repository.OrderFilter, page, pageSize int) ([]*domain.Order, int, error) {
			gotFilter = filter
			gotPage, gotLimit = page, pageSize
			return []*domain.Order{sampleOrder(userID)}, 25, nil
		},
	}

	url := fmt.Sprintf("/api/orders?page=2&limit=10&userId=%s&status=pending", userID)
	rr := httptest.NewRecorder()
	orderRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, gotFilter.UserID)
	assert.Equal(t, userID, *gotFilter.UserID)
	require.NotNil(t, gotFilter.Status)
	assert.Equal(t, domain.StatusPending, *gotFilter.Status)
	assert.Equal(t, 2, gotPage)
	assert.Equal(t, 10, gotLimit)

	var resp middleware.PaginatedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 25, resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
}

func TestOrderHandler_List_ClampsLimit(t *testing.T) {
	var gotLimit int
	svc := &mockOrderService{
		listFn: func(ctx context.Context, filter repository.OrderFilter, page, pageSize int) ([]*domain.Order, int, error) {
			gotLimit = pageSize
			return nil, 0, nil
		},
	}

	rr := httptest.NewRecorder()
	orderRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/orders?limit=5000", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 100, gotLimit)
}

func TestOrderHandler_List_InvalidFilters(t *testing.T) {
	svc := &mockOrderService{
		listFn: func(ctx context.Context, filter repository.OrderFilter, page, pageSize int) ([]*domain.Order, int, error) {
			t.Fatal("service should not be called")
			return nil, 0, nil
		},
	}
	router := orderRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/orders?userId=nope", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/orders?status=teleported", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrderHandler_UpdateStatus_Success(t *testing.T) {
	order := sampleOrder(uuid.New())
	order.Status = domain.StatusConfirmed

	svc := &mockOrderService{
		updateFn: func(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
			assert.Equal(t, domain.StatusConfirmed, status)
			return order, nil
		},
	}

	body := []byte(`{"status":"confirmed"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/orders/"+order.ID.String()+"/status", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	orderRouter(svc).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestOrderHandler_UpdateStatus_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"unknown status", fmt.Errorf("%w: %q", service.ErrInvalidStatus, "teleported"), http.StatusBadRequest},
		{"order not found", repository.ErrOrderNotFound, http.StatusNotFound},
		{"illegal transition", fmt.Errorf("%w: delivered -> pending", repository.ErrInvalidTransition), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				updateFn: func(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
					return nil, tt.serviceErr
				},
			}

			body := []byte(`{"status":"confirmed"}`)
			req := httptest.NewRequest(http.MethodPatch, "/api/orders/"+uuid.NewString()+"/status", bytes.NewReader(body))
			rr := httptest.NewRecorder()
			orderRouter(svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestOrderHandler_UpdateStatus_PartialReleaseStillSucceeds(t *testing.T) {
	order := sampleOrder(uuid.New())
	order.Status = domain.StatusCancelled

	svc := &mockOrderService{
		updateFn: func(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
			return order, &service.PartialReleaseError{
				OrderID:  order.ID,
				Failures: []service.ReleaseFailure{{ProductID: uuid.New(), Quantity: 1, Reason: "product not found"}},
			}
		},
	}

	body := []byte(`{"status":"cancelled"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/orders/"+order.ID.String()+"/status", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	orderRouter(svc).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp middleware.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, WarnPartialStockRelease, resp.Error)
	assert.Contains(t, resp.Message, "release(s) failed")
	assert.NotNil(t, resp.Data)
}
