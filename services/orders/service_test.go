package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/models"
	"github.com/Affo25/Ecoomerce-apis/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var fixedNow = time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	orders   *memory.OrderStore
	products *memory.ProductStore
	sneaker  models.Product
	tote     models.Product
}

func newFixture(t *testing.T, reserve bool) *fixture {
	t.Helper()
	f := &fixture{
		orders:   memory.NewOrderStore(),
		products: memory.NewProductStore(),
	}

	f.sneaker = seedProduct(t, f.products, "Canvas Sneaker", "canvas-sneaker", 59.90, 5)
	f.tote = seedProduct(t, f.products, "Market Tote", "market-tote", 12.50, 1)

	var stock StockReserver
	if reserve {
		stock = f.products
	}
	f.svc = NewService(f.orders, memory.NewSequence(), stock, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func seedProduct(t *testing.T, store *memory.ProductStore, name, slug string, price float64, qty int) models.Product {
	t.Helper()
	p := models.NewProduct()
	p.Name, p.Slug, p.Price, p.QuantityInStock = name, slug, price, qty
	require.NoError(t, store.Insert(context.Background(), &p))
	return p
}

func (f *fixture) request() CreateOrderRequest {
	return CreateOrderRequest{
		Customer: models.Customer{Name: "Ada Lovelace", Email: "Ada@Example.com", Phone: "+44 20 7946 0000"},
		ShippingAddress: models.ShippingAddress{
			Street: "12 Analytical Row", City: "London", State: "Greater London", Zip: "N1 9GU", Country: "UK",
		},
		Items: []ItemRequest{
			{ProductID: f.sneaker.ID.Hex(), Name: f.sneaker.Name, Price: 59.90, Size: "42", Color: "white", Quantity: 2},
			{ProductID: f.tote.ID.Hex(), Name: f.tote.Name, Price: 12.50, Quantity: 1},
		},
		ShippingCost: 5,
		Tax:          10.23,
		TotalAmount:  147.53,
	}
}

func (f *fixture) stockOf(t *testing.T, p models.Product) int {
	t.Helper()
	got, err := f.products.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	return got.QuantityInStock
}

func TestCreate(t *testing.T) {
	f := newFixture(t, false)

	order, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)

	assert.Equal(t, "ORD-20240309-00001", order.OrderNumber)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, models.PaymentCOD, order.PaymentMethod)
	assert.Equal(t, "ada@example.com", order.Customer.Email)
	assert.Equal(t, 132.30, order.Subtotal)
	assert.Equal(t, 147.53, order.TotalAmount)
	assert.Equal(t, fixedNow, order.CreatedAt)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "42", order.Items[0].Size)
	assert.False(t, order.StockReserved)

	stored, err := f.orders.FindByNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, stored.ID)
	assert.Equal(t, 5, f.stockOf(t, f.sneaker))
}

func TestCreate_FailFastOrder(t *testing.T) {
	f := newFixture(t, false)

	tests := []struct {
		name    string
		mutate  func(*CreateOrderRequest)
		message string
	}{
		{"everything missing", func(r *CreateOrderRequest) { *r = CreateOrderRequest{} }, "Customer name is required"},
		{"email before phone", func(r *CreateOrderRequest) { r.Customer.Email, r.Customer.Phone = "", "" }, "Customer email is required"},
		{"phone", func(r *CreateOrderRequest) { r.Customer.Phone = " " }, "Customer phone is required"},
		{"address before items", func(r *CreateOrderRequest) { r.ShippingAddress.City, r.Items = "", nil }, "Shipping city is required"},
		{"zip", func(r *CreateOrderRequest) { r.ShippingAddress.Zip = "" }, "Shipping zip is required"},
		{"items before total", func(r *CreateOrderRequest) { r.Items, r.TotalAmount = nil, 0 }, "Order must contain at least one item"},
		{"zero total", func(r *CreateOrderRequest) { r.TotalAmount = 0 }, "Total amount must be greater than 0"},
		{"bad item", func(r *CreateOrderRequest) { r.Items[1].Quantity = 0 }, "Invalid order items"},
		{"email format", func(r *CreateOrderRequest) { r.Customer.Email = "not-an-email" }, "Customer email is invalid"},
		{"payment method", func(r *CreateOrderRequest) { r.PaymentMethod = "crypto" }, "Invalid payment method"},
		{"total mismatch", func(r *CreateOrderRequest) { r.TotalAmount = 147.52 }, "Total amount does not match subtotal, shipping and tax"},
		{"subtotal mismatch", func(r *CreateOrderRequest) { s := 100.0; r.Subtotal = &s }, "Subtotal does not match the order items"},
		{"negative tax", func(r *CreateOrderRequest) { r.Tax = -1 }, "Shipping cost and tax must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request()
			tt.mutate(&req)

			_, err := f.svc.Create(context.Background(), req)

			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.KindValidation, appErr.Kind)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}

	n, err := f.orders.Count(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreate_ItemDetails(t *testing.T) {
	f := newFixture(t, false)
	req := f.request()
	req.Items = []ItemRequest{{ProductID: "nope", Quantity: 0, Price: -1}}

	_, err := f.svc.Create(context.Background(), req)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{
		"items[0].productId is invalid",
		"items[0].name is required",
		"items[0].quantity must be at least 1",
		"items[0].price must not be negative",
	}, appErr.Details)
}

func TestCreate_ConcurrentNumbersAreDistinct(t *testing.T) {
	f := newFixture(t, false)
	const n = 50

	numbers := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := f.svc.Create(context.Background(), f.request())
			if assert.NoError(t, err) {
				numbers[i] = order.OrderNumber
			}
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, num := range numbers {
		assert.False(t, seen[num], "duplicate order number %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
}

// collidingSequence starts behind numbers that already exist.
type collidingSequence struct {
	mu   sync.Mutex
	next int64
}

func (s *collidingSequence) Next(context.Context, string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next, nil
}

func TestCreate_RetriesOnDuplicateNumber(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.orders.Insert(context.Background(), &models.Order{OrderNumber: "ORD-20240309-00001"}))

	f.svc.seq = &collidingSequence{}
	order, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)
	assert.Equal(t, "ORD-20240309-00002", order.OrderNumber)
}

func TestCreate_GivesUpAfterThreeCollisions(t *testing.T) {
	f := newFixture(t, true)
	for _, num := range []string{"ORD-20240309-00001", "ORD-20240309-00002", "ORD-20240309-00003"} {
		require.NoError(t, f.orders.Insert(context.Background(), &models.Order{OrderNumber: num}))
	}

	f.svc.seq = &collidingSequence{}
	_, err := f.svc.Create(context.Background(), f.request())
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateKey))

	assert.Equal(t, 5, f.stockOf(t, f.sneaker), "reservation released after failed insert")
	assert.Equal(t, 1, f.stockOf(t, f.tote))
}

type failingSequence struct{}

func (failingSequence) Next(context.Context, string) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestCreate_SequenceFailureIsUpstream(t *testing.T) {
	f := newFixture(t, false)
	f.svc.seq = failingSequence{}

	_, err := f.svc.Create(context.Background(), f.request())
	assert.True(t, apperrors.Is(err, apperrors.KindUpstream))
}

func TestCreate_ReservesStock(t *testing.T) {
	f := newFixture(t, true)

	order, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)
	assert.True(t, order.StockReserved)
	assert.Equal(t, 3, f.stockOf(t, f.sneaker))

	tote, err := f.products.FindByID(context.Background(), f.tote.ID)
	require.NoError(t, err)
	assert.Zero(t, tote.QuantityInStock)
	assert.Equal(t, models.OutOfStock, tote.StockStatus)
}

func TestCreate_InsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t, true)
	req := f.request()
	req.Items[1].Quantity = 2
	req.TotalAmount = 160.03

	_, err := f.svc.Create(context.Background(), req)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))

	assert.Equal(t, 5, f.stockOf(t, f.sneaker))
	assert.Equal(t, 1, f.stockOf(t, f.tote))
	n, err := f.orders.Count(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreate_UnknownProductWithReservation(t *testing.T) {
	f := newFixture(t, true)
	req := f.request()
	req.Items[1].ProductID = primitive.NewObjectID().Hex()

	_, err := f.svc.Create(context.Background(), req)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Equal(t, []string{"items[1].productId does not reference a product"}, appErr.Details)
	assert.Equal(t, 5, f.stockOf(t, f.sneaker))
}

func TestCreate_ItemsAreSnapshots(t *testing.T) {
	f := newFixture(t, false)
	order, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)

	changed := f.sneaker
	changed.Name, changed.Price = "Renamed", 1
	require.NoError(t, f.products.Update(context.Background(), &changed, models.StockFields{}))

	stored, err := f.svc.Get(context.Background(), order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Canvas Sneaker", stored.Items[0].Name)
	assert.Equal(t, 59.90, stored.Items[0].Price)
}

func TestSetStatus_Lifecycle(t *testing.T) {
	tests := []struct {
		path []models.OrderStatus
		ok   bool
	}{
		{[]models.OrderStatus{models.OrderDispatched, models.OrderDelivered}, true},
		{[]models.OrderStatus{models.OrderCancelled}, true},
		{[]models.OrderStatus{models.OrderDispatched, models.OrderCancelled}, true},
		{[]models.OrderStatus{models.OrderDelivered}, false},
		{[]models.OrderStatus{models.OrderPending}, false},
		{[]models.OrderStatus{models.OrderDispatched, models.OrderDelivered, models.OrderCancelled}, false},
		{[]models.OrderStatus{models.OrderCancelled, models.OrderDispatched}, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.path[len(tt.path)-1]), func(t *testing.T) {
			f := newFixture(t, false)
			order, err := f.svc.Create(context.Background(), f.request())
			require.NoError(t, err)

			for i, next := range tt.path {
				updated, err := f.svc.SetStatus(context.Background(), order.ID.Hex(), string(next))
				if i < len(tt.path)-1 || tt.ok {
					require.NoError(t, err)
					assert.Equal(t, next, updated.Status)
					assert.Equal(t, order.OrderNumber, updated.OrderNumber)
					continue
				}
				var appErr *apperrors.Error
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, "Invalid status transition", appErr.Message)
			}
		})
	}
}

func TestSetStatus_Errors(t *testing.T) {
	f := newFixture(t, false)
	order, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)

	_, err = f.svc.SetStatus(context.Background(), order.ID.Hex(), "Shipped")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = f.svc.SetStatus(context.Background(), "bad", string(models.OrderDispatched))
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = f.svc.SetStatus(context.Background(), primitive.NewObjectID().Hex(), string(models.OrderDispatched))
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

// racingRepo changes the status between the read and the swap.
type racingRepo struct {
	*memory.OrderStore
}

func (r racingRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, at time.Time) (*models.Order, error) {
	if _, err := r.OrderStore.UpdateStatus(ctx, id, from, models.OrderCancelled, at); err != nil {
		return nil, err
	}
	return r.OrderStore.UpdateStatus(ctx, id, from, to, at)
}

func TestSetStatus_ConcurrentChangeIsConflict(t *testing.T) {
	f := newFixture(t, false)
	order, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)

	f.svc.repo = racingRepo{f.orders}
	_, err = f.svc.SetStatus(context.Background(), order.ID.Hex(), string(models.OrderDispatched))
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
}

func TestSetStatus_CancelReleasesStock(t *testing.T) {
	f := newFixture(t, true)
	order, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)
	require.Equal(t, 3, f.stockOf(t, f.sneaker))

	_, err = f.svc.SetStatus(context.Background(), order.ID.Hex(), string(models.OrderCancelled))
	require.NoError(t, err)

	assert.Equal(t, 5, f.stockOf(t, f.sneaker))
	assert.Equal(t, 1, f.stockOf(t, f.tote))
}

func TestTrack(t *testing.T) {
	f := newFixture(t, false)
	order, err := f.svc.Create(context.Background(), f.request())
	require.NoError(t, err)

	found, err := f.svc.Track(context.Background(), "ord-20240309-00001", " ADA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = f.svc.Track(context.Background(), order.OrderNumber, "someone@example.com")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	_, err = f.svc.Track(context.Background(), order.OrderNumber, "")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestList(t *testing.T) {
	f := newFixture(t, false)
	var created []*models.Order
	for i := 0; i < 5; i++ {
		f.svc.now = func() time.Time { return fixedNow.Add(time.Duration(i) * time.Minute) }
		order, err := f.svc.Create(context.Background(), f.request())
		require.NoError(t, err)
		created = append(created, order)
	}
	_, err := f.svc.SetStatus(context.Background(), created[0].ID.Hex(), string(models.OrderDispatched))
	require.NoError(t, err)

	page, err := f.svc.List(context.Background(), "", "1", "2")
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Pagination.Total)
	assert.Equal(t, int64(3), page.Pagination.TotalPages)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, created[4].ID, page.Orders[0].ID)

	pending, err := f.svc.List(context.Background(), string(models.OrderPending), "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), pending.Pagination.Total)

	_, err = f.svc.List(context.Background(), "Lost", "0", "")
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.ElementsMatch(t, []string{"page must be a positive integer", "status must be a valid order status"}, appErr.Details)
}
