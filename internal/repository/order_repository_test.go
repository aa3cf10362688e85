package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T, userID uuid.UUID, products []*domain.Product, quantities []int) *domain.Order {
	t.Helper()
	require.Equal(t, len(products), len(quantities))

	now := time.Now().UTC()
	order := &domain.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, p := range products {
		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: p.ID,
			Quantity:  quantities[i],
			UnitPrice: p.Price,
			CreatedAt: now,
		})
		order.TotalAmount += int64(quantities[i]) * p.Price
	}

	repo := NewOrderRepository(testDB)
	require.NoError(t, repo.Create(context.Background(), order))
	t.Cleanup(func() { testDB.Exec("DELETE FROM orders WHERE id = $1", order.ID) })
	return order
}

func orderFixtureUser(t *testing.T) *domain.User {
	t.Helper()
	user := newTestUser(fmt.Sprintf("orders-%s@example.com", uuid.NewString()[:8]))
	require.NoError(t, NewUserRepository(testDB).Create(context.Background(), user))
	t.Cleanup(func() { testDB.Exec("DELETE FROM users WHERE id = $1", user.ID) })
	return user
}

func TestOrderRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)
	productRepo := NewProductRepository(testDB)

	user := orderFixtureUser(t)
	p1 := newTestProduct(t, productRepo, 10)
	p2 := newTestProduct(t, productRepo, 10)

	order := newTestOrder(t, user.ID, []*domain.Product{p1, p2}, []int{2, 1})

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.TotalAmount, found.TotalAmount)
	assert.Equal(t, domain.StatusPending, found.Status)
	require.Len(t, found.Items, 2)

	for _, item := range found.Items {
		require.NotNil(t, item.Product, "live products should be resolved")
		assert.Equal(t, item.ProductID, item.Product.ID)
	}
}

func TestOrderRepository_FindMissing(t *testing.T) {
	_, err := NewOrderRepository(testDB).FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderRepository_ItemsSurviveProductDeletion(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)
	productRepo := NewProductRepository(testDB)

	user := orderFixtureUser(t)
	product := newTestProduct(t, productRepo, 10)
	order := newTestOrder(t, user.ID, []*domain.Product{product}, []int{3})

	require.NoError(t, productRepo.Delete(ctx, product.ID))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)

	item := found.Items[0]
	assert.Nil(t, item.Product, "removed product should not be resolved")
	assert.Equal(t, product.ID, item.ProductID)
	assert.Equal(t, product.Price, item.UnitPrice, "price snapshot must survive deletion")
	assert.Equal(t, order.TotalAmount, found.TotalAmount)
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)
	productRepo := NewProductRepository(testDB)

	user := orderFixtureUser(t)
	product := newTestProduct(t, productRepo, 10)
	order := newTestOrder(t, user.ID, []*domain.Product{product}, []int{1})

	updated, err := repo.UpdateStatus(ctx, order.ID, domain.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, updated.Status)

	_, err = repo.UpdateStatus(ctx, order.ID, domain.StatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, found.Status, "failed transition must not change state")

	_, err = repo.UpdateStatus(ctx, uuid.New(), domain.StatusConfirmed)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderRepository_TerminalStateRejectsFurtherTransitions(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)
	productRepo := NewProductRepository(testDB)

	user := orderFixtureUser(t)
	product := newTestProduct(t, productRepo, 10)
	order := newTestOrder(t, user.ID, []*domain.Product{product}, []int{1})

	_, err := repo.UpdateStatus(ctx, order.ID, domain.StatusCancelled)
	require.NoError(t, err)

	for _, next := range []domain.OrderStatus{
		domain.StatusPending,
		domain.StatusConfirmed,
		domain.StatusCancelled,
	} {
		_, err := repo.UpdateStatus(ctx, order.ID, next)
		assert.ErrorIs(t, err, ErrInvalidTransition, "cancelled -> %s", next)
	}
}

func TestOrderRepository_ListFiltersAndPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)
	productRepo := NewProductRepository(testDB)

	_, err := testDB.Exec("DELETE FROM order_items")
	require.NoError(t, err)
	_, err = testDB.Exec("DELETE FROM orders")
	require.NoError(t, err)

	alice := orderFixtureUser(t)
	bob := orderFixtureUser(t)
	product := newTestProduct(t, productRepo, 1000)

	for i := 0; i < 7; i++ {
		newTestOrder(t, alice.ID, []*domain.Product{product}, []int{1})
	}
	for i := 0; i < 4; i++ {
		order := newTestOrder(t, bob.ID, []*domain.Product{product}, []int{1})
		_, err := repo.UpdateStatus(ctx, order.ID, domain.StatusConfirmed)
		require.NoError(t, err)
	}

	all, total, err := repo.List(ctx, OrderFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	assert.Len(t, all, 11)
	for _, o := range all {
		assert.NotEmpty(t, o.Items, "listed orders carry their items")
	}

	byUser, total, err := repo.List(ctx, OrderFilter{UserID: &alice.ID}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Len(t, byUser, 7)

	confirmed := domain.StatusConfirmed
	byStatus, total, err := repo.List(ctx, OrderFilter{Status: &confirmed}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	for _, o := range byStatus {
		assert.Equal(t, domain.StatusConfirmed, o.Status)
	}

	both, total, err := repo.List(ctx, OrderFilter{UserID: &bob.ID, Status: &confirmed}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, both, 4)

	page2, total, err := repo.List(ctx, OrderFilter{}, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	assert.Len(t, page2, 5)

	beyond, total, err := repo.List(ctx, OrderFilter{}, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	assert.Empty(t, beyond)
}

// Every item of one order shares a created_at; submission order must come
// from the position column, not the timestamp.
func TestOrderRepository_ItemsKeepSubmissionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)
	productRepo := NewProductRepository(testDB)

	user := orderFixtureUser(t)

	var products []*domain.Product
	var quantities []int
	for i := 0; i < 5; i++ {
		products = append(products, newTestProduct(t, productRepo, 100))
		quantities = append(quantities, i+1)
	}

	order := newTestOrder(t, user.ID, products, quantities)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, len(products))
	for i, item := range found.Items {
		assert.Equal(t, products[i].ID, item.ProductID, "item %d out of submission order", i)
		assert.Equal(t, quantities[i], item.Quantity)
	}

	listed, _, err := repo.List(ctx, OrderFilter{UserID: &user.ID}, 1, 5)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	for i, item := range listed[0].Items {
		assert.Equal(t, products[i].ID, item.ProductID)
	}
}
