// Package orders validates, prices and numbers customer orders and moves
// them through the status lifecycle.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/models"
	"github.com/Affo25/Ecoomerce-apis/services/catalog"
	"github.com/Affo25/Ecoomerce-apis/validation"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxInsertAttempts = 3
	releaseTimeout    = 5 * time.Second
)

type Repository interface {
	Insert(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	Count(ctx context.Context, status models.OrderStatus) (int64, error)
	List(ctx context.Context, status models.OrderStatus, skip, limit int64) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, at time.Time) (*models.Order, error)
}

// Sequence hands out strictly increasing values per name.
type Sequence interface {
	Next(ctx context.Context, name string) (int64, error)
}

type StockReserver interface {
	ReserveStock(ctx context.Context, id primitive.ObjectID, qty int) error
	ReleaseStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

type ItemRequest struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
}

type CreateOrderRequest struct {
	Customer        models.Customer        `json:"customer"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	Items           []ItemRequest          `json:"items"`
	Subtotal        *float64               `json:"subtotal"`
	ShippingCost    float64                `json:"shippingCost"`
	Tax             float64                `json:"tax"`
	TotalAmount     float64                `json:"totalAmount"`
	PaymentMethod   models.PaymentMethod   `json:"paymentMethod"`
	Notes           string                 `json:"notes"`
}

type Page struct {
	Orders     []models.Order    `json:"orders"`
	Pagination models.Pagination `json:"pagination"`
}

type Service struct {
	repo    Repository
	seq     Sequence
	stock   StockReserver
	logger  *slog.Logger
	now     func() time.Time
	reserve bool
}

// NewService returns an order service. A nil stock reserver disables
// reservation.
func NewService(repo Repository, seq Sequence, stock StockReserver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		seq:     seq,
		stock:   stock,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		reserve: stock != nil,
	}
}

// Create validates req, reserves stock and persists the order under a
// freshly assigned order number.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	order, err := s.build(req)
	if err != nil {
		return nil, err
	}

	if s.reserve {
		if err := s.reserveItems(ctx, order.Items); err != nil {
			return nil, err
		}
		order.StockReserved = true
	}

	if err := s.insert(ctx, order); err != nil {
		if order.StockReserved {
			s.releaseItems(ctx, order.Items)
		}
		return nil, err
	}

	s.logger.Info("Order created",
		"orderNumber", order.OrderNumber,
		"items", len(order.Items),
		"total", order.TotalAmount,
	)
	return order, nil
}

// build runs the validation chain and returns the unsaved order.
func (s *Service) build(req CreateOrderRequest) (*models.Order, error) {
	c := req.Customer
	a := req.ShippingAddress
	required := []struct {
		value, message string
	}{
		{c.Name, "Customer name is required"},
		{c.Email, "Customer email is required"},
		{c.Phone, "Customer phone is required"},
		{a.Street, "Shipping street is required"},
		{a.City, "Shipping city is required"},
		{a.State, "Shipping state is required"},
		{a.Zip, "Shipping zip is required"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, apperrors.Validation(r.message)
		}
	}
	if len(req.Items) == 0 {
		return nil, apperrors.Validation("Order must contain at least one item")
	}
	if req.TotalAmount <= 0 {
		return nil, apperrors.Validation("Total amount must be greater than 0")
	}

	items, err := snapshotItems(req.Items)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(c.Email))
	if !validation.Email(email) {
		return nil, apperrors.Validation("Customer email is invalid")
	}

	method := req.PaymentMethod
	if method == "" {
		method = models.PaymentCOD
	}
	if !method.Valid() {
		return nil, apperrors.Validation("Invalid payment method",
			fmt.Sprintf("paymentMethod must be one of [%s, %s, %s]", models.PaymentCOD, models.PaymentCard, models.PaymentPaypal))
	}

	money, err := price(req, items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &models.Order{
		Customer: models.Customer{
			Name:  strings.TrimSpace(c.Name),
			Email: email,
			Phone: strings.TrimSpace(c.Phone),
		},
		ShippingAddress: models.ShippingAddress{
			Street:  strings.TrimSpace(a.Street),
			City:    strings.TrimSpace(a.City),
			State:   strings.TrimSpace(a.State),
			Zip:     strings.TrimSpace(a.Zip),
			Country: strings.TrimSpace(a.Country),
		},
		Items:         items,
		Subtotal:      money.subtotal,
		ShippingCost:  money.shipping,
		Tax:           money.tax,
		TotalAmount:   money.total,
		PaymentMethod: method,
		Status:        models.OrderPending,
		Notes:         strings.TrimSpace(req.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func snapshotItems(reqs []ItemRequest) ([]models.OrderItem, error) {
	var details []string
	items := make([]models.OrderItem, 0, len(reqs))
	for i, r := range reqs {
		oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(r.ProductID))
		if err != nil {
			details = append(details, fmt.Sprintf("items[%d].productId is invalid", i))
		}
		if strings.TrimSpace(r.Name) == "" {
			details = append(details, fmt.Sprintf("items[%d].name is required", i))
		}
		if r.Quantity < 1 {
			details = append(details, fmt.Sprintf("items[%d].quantity must be at least 1", i))
		}
		if r.Price < 0 {
			details = append(details, fmt.Sprintf("items[%d].price must not be negative", i))
		}
		items = append(items, models.OrderItem{
			ProductID: oid,
			Name:      strings.TrimSpace(r.Name),
			Price:     r.Price,
			Size:      strings.TrimSpace(r.Size),
			Color:     strings.TrimSpace(r.Color),
			Image:     strings.TrimSpace(r.Image),
			Quantity:  r.Quantity,
		})
	}
	if len(details) > 0 {
		return nil, apperrors.Validation("Invalid order items", details...)
	}
	return items, nil
}

type totals struct {
	subtotal, shipping, tax, total float64
}

// price checks the client's money fields against the items, to the cent.
func price(req CreateOrderRequest, items []models.OrderItem) (totals, error) {
	if req.ShippingCost < 0 || req.Tax < 0 {
		return totals{}, apperrors.Validation("Shipping cost and tax must not be negative")
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	subtotal = subtotal.Round(2)

	if req.Subtotal != nil && !decimal.NewFromFloat(*req.Subtotal).Round(2).Equal(subtotal) {
		return totals{}, apperrors.Validation("Subtotal does not match the order items",
			fmt.Sprintf("expected subtotal %s", subtotal.StringFixed(2)))
	}

	shipping := decimal.NewFromFloat(req.ShippingCost).Round(2)
	tax := decimal.NewFromFloat(req.Tax).Round(2)
	total := subtotal.Add(shipping).Add(tax)
	if !decimal.NewFromFloat(req.TotalAmount).Round(2).Equal(total) {
		return totals{}, apperrors.Validation("Total amount does not match subtotal, shipping and tax",
			fmt.Sprintf("expected totalAmount %s", total.StringFixed(2)))
	}

	return totals{
		subtotal: subtotal.InexactFloat64(),
		shipping: shipping.InexactFloat64(),
		tax:      tax.InexactFloat64(),
		total:    total.InexactFloat64(),
	}, nil
}

// reserveItems reserves every item or none.
func (s *Service) reserveItems(ctx context.Context, items []models.OrderItem) error {
	for i, item := range items {
		err := s.stock.ReserveStock(ctx, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}
		s.releaseItems(ctx, items[:i])
		switch apperrors.KindOf(err) {
		case apperrors.KindNotFound:
			return apperrors.Validation("Invalid order items",
				fmt.Sprintf("items[%d].productId does not reference a product", i))
		case apperrors.KindConflict:
			return err
		default:
			return storeError(err)
		}
	}
	return nil
}

// releaseItems returns reserved units. It runs even if ctx was cancelled.
func (s *Service) releaseItems(ctx context.Context, items []models.OrderItem) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	for _, item := range items {
		if err := s.stock.ReleaseStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("Failed to release reserved stock",
				"productId", item.ProductID.Hex(),
				"quantity", item.Quantity,
				"error", err,
			)
		}
	}
}

// insert assigns ORD-<yyyymmdd>-<seq> and retries on a number collision.
func (s *Service) insert(ctx context.Context, order *models.Order) error {
	day := order.CreatedAt.Format("20060102")
	for attempt := 1; ; attempt++ {
		seq, err := s.seq.Next(ctx, "order-"+day)
		if err != nil {
			return storeError(err)
		}
		order.OrderNumber = fmt.Sprintf("ORD-%s-%05d", day, seq)

		err = s.repo.Insert(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperrors.ErrDuplicateKey) || attempt == maxInsertAttempts {
			return storeError(err)
		}
		s.logger.Warn("Order number taken, retrying", "orderNumber", order.OrderNumber, "attempt", attempt)
	}
}

// SetStatus moves an order to status if the lifecycle allows it.
func (s *Service) SetStatus(ctx context.Context, id, status string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Validation("Invalid order ID format")
	}
	next := models.OrderStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return nil, apperrors.Validation("Invalid status",
			fmt.Sprintf("status must be one of [%s, %s, %s, %s]",
				models.OrderPending, models.OrderDispatched, models.OrderDelivered, models.OrderCancelled))
	}

	current, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, storeError(err)
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, apperrors.Validation("Invalid status transition",
			fmt.Sprintf("cannot move order from %s to %s", current.Status, next))
	}

	updated, err := s.repo.UpdateStatus(ctx, oid, current.Status, next, s.now())
	if apperrors.Is(err, apperrors.KindNotFound) {
		if _, findErr := s.repo.FindByID(ctx, oid); findErr != nil {
			return nil, storeError(findErr)
		}
		return nil, apperrors.Conflict("Order status was changed by another request", err)
	}
	if err != nil {
		return nil, storeError(err)
	}

	if next == models.OrderCancelled && updated.StockReserved && s.reserve {
		s.releaseItems(ctx, updated.Items)
	}

	s.logger.Info("Order status updated",
		"orderNumber", updated.OrderNumber,
		"from", current.Status,
		"to", next,
	)
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Validation("Invalid order ID format")
	}
	order, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, storeError(err)
	}
	return order, nil
}

// Track returns the order only when email matches its customer.
func (s *Service) Track(ctx context.Context, orderNumber, email string) (*models.Order, error) {
	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	email = strings.ToLower(strings.TrimSpace(email))
	if orderNumber == "" || email == "" {
		return nil, apperrors.Validation("Order number and email are required")
	}

	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, storeError(err)
	}
	if !strings.EqualFold(order.Customer.Email, email) {
		return nil, apperrors.NotFound("Order not found")
	}
	return order, nil
}

// List returns orders newest first, optionally narrowed to one status.
func (s *Service) List(ctx context.Context, status, rawPage, rawLimit string) (*Page, error) {
	filter := models.OrderStatus(strings.TrimSpace(status))
	page, limit, details := catalog.ParsePaging(rawPage, rawLimit)
	if filter != "" && !filter.Valid() {
		details = append(details, "status must be a valid order status")
	}
	if len(details) > 0 {
		return nil, apperrors.Validation("Invalid order query", details...)
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, storeError(err)
	}
	orders, err := s.repo.List(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, storeError(err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return &Page{Orders: orders, Pagination: models.NewPagination(page, limit, total)}, nil
}

func storeError(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Upstream("Order store unavailable", err)
}
