package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyOrder      = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("item quantity must be positive")
	ErrInvalidStatus   = errors.New("unknown order status")
)

// CreateOrderItem is one requested line of a new order
type CreateOrderItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// ReleaseFailure records one item whose stock could not be returned during
// cancellation
type ReleaseFailure struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason"`
}

// PartialReleaseError reports items whose reserved stock could not be
// released when an order was cancelled. The cancellation itself stands;
// the listed items need operator reconciliation.
type PartialReleaseError struct {
	OrderID  uuid.UUID
	Failures []ReleaseFailure
}

func (e *PartialReleaseError) Error() string {
	return fmt.Sprintf("order %s cancelled but %d item release(s) failed", e.OrderID, len(e.Failures))
}

// EventPublisher emits order lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event events.OrderEvent) error
}

// OrderService orchestrates order placement and lifecycle transitions across
// the user, catalog and order stores
type OrderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, items []CreateOrderItem) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter, page, pageSize int) ([]*domain.Order, int, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	publisher   EventPublisher
	logger      *zap.Logger
}

// NewOrderService creates a new OrderService. publisher may be nil when no
// broker is configured.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	publisher EventPublisher,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

// reservedItem tracks a reservation made during order creation so it can be
// compensated if a later step fails
type reservedItem struct {
	productID uuid.UUID
	quantity  int
}

// CreateOrder places an order: it validates the user, reserves stock for
// every line in submitted order, snapshots unit prices, computes the exact
// total and persists the order as pending. If any reservation fails, every
// reservation already made for this request is released before the error is
// returned, so a failed create leaves stock exactly as it found it. The same
// compensation runs if persistence fails after all reservations succeeded.
func (s *orderService) CreateOrder(ctx context.Context, userID uuid.UUID, items []CreateOrderItem) (*domain.Order, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to validate user: %w", err)
	}

	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s requested %d", ErrInvalidQuantity, item.ProductID, item.Quantity)
		}
	}

	orderID := uuid.New()
	now := time.Now()

	var (
		reserved   []reservedItem
		orderItems []domain.OrderItem
		total      int64
	)

	for _, item := range items {
		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			s.rollbackReservations(ctx, orderID, reserved)
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, fmt.Errorf("product %s: %w", item.ProductID, repository.ErrProductNotFound)
			}
			return nil, fmt.Errorf("failed to fetch product %s: %w", item.ProductID, err)
		}

		if err := s.productRepo.ReserveStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.rollbackReservations(ctx, orderID, reserved)
			if errors.Is(err, repository.ErrInsufficientStock) || errors.Is(err, repository.ErrProductNotFound) {
				return nil, fmt.Errorf("product %s: %w", item.ProductID, err)
			}
			return nil, fmt.Errorf("failed to reserve stock for product %s: %w", item.ProductID, err)
		}
		reserved = append(reserved, reservedItem{productID: item.ProductID, quantity: item.Quantity})

		// Unit price is snapshotted at reservation time; later catalog price
		// changes do not touch this order.
		orderItems = append(orderItems, domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			CreatedAt: now,
		})
		total += int64(item.Quantity) * product.Price
	}

	order := &domain.Order{
		ID:          orderID,
		UserID:      userID,
		TotalAmount: total,
		Status:      domain.StatusPending,
		Items:       orderItems,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		// Reservations must not outlive a failed persist
		s.rollbackReservations(ctx, orderID, reserved)
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	s.publishEvent(ctx, events.RoutingOrderCreated, order)

	materialized, err := s.orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		// The order is persisted; fall back to the in-memory view
		s.logger.Warn("Failed to materialize created order",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return order, nil
	}

	return materialized, nil
}

// rollbackReservations compensates reservations made for a create attempt
// that will not produce an order
func (s *orderService) rollbackReservations(ctx context.Context, orderID uuid.UUID, reserved []reservedItem) {
	for _, r := range reserved {
		if err := s.productRepo.ReleaseStock(ctx, r.productID, r.quantity); err != nil {
			s.logger.Error("Failed to roll back stock reservation",
				zap.String("order_id", orderID.String()),
				zap.String("product_id", r.productID.String()),
				zap.Int("quantity", r.quantity),
				zap.Error(err),
			)
		}
	}
}

// GetOrderByID retrieves a single materialized order
func (s *orderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orderRepo.FindByID(ctx, id)
}

// ListOrders retrieves a filtered page of orders
func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter, page, pageSize int) ([]*domain.Order, int, error) {
	return s.orderRepo.List(ctx, filter, page, pageSize)
}

// UpdateOrderStatus transitions an order. The ledger enforces the state
// machine; this service adds the cancellation side effect of releasing every
// item's reserved stock. Releases are best-effort: failures do not undo the
// cancellation, they are returned as a *PartialReleaseError alongside the
// updated order for operator reconciliation.
func (s *orderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if !domain.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	// Items are needed up front: once the status row changes to cancelled the
	// stock to release is determined by this order's lines.
	existing, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	updated.Items = existing.Items

	s.publishEvent(ctx, events.RoutingOrderStatusChanged, updated)

	if status != domain.StatusCancelled {
		return updated, nil
	}

	// Cancellation releases each line's stock exactly once: the transition
	// into cancelled can only succeed a single time because cancelled is
	// terminal.
	var failures []ReleaseFailure
	for _, item := range existing.Items {
		if err := s.productRepo.ReleaseStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("Failed to release stock on cancellation",
				zap.String("order_id", id.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
			failures = append(failures, ReleaseFailure{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Reason:    err.Error(),
			})
		}
	}

	if len(failures) > 0 {
		return updated, &PartialReleaseError{OrderID: id, Failures: failures}
	}

	return updated, nil
}

// publishEvent emits an order event, logging and swallowing failures: the
// ledger is the source of truth, events are advisory
func (s *orderService) publishEvent(ctx context.Context, routingKey string, order *domain.Order) {
	if s.publisher == nil {
		return
	}

	event := events.OrderEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}

	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("routing_key", routingKey),
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}
