package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStore struct {
	mu     sync.RWMutex
	orders []models.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{}
}

func (s *OrderStore) Insert(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.orders {
		if existing.OrderNumber == o.OrderNumber {
			return apperrors.Conflict("Order number already assigned", apperrors.ErrDuplicateKey)
		}
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	s.orders = append(s.orders, cloneOrder(*o))
	return nil
}

func (s *OrderStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.ID == id {
			c := cloneOrder(o)
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("Order not found")
}

func (s *OrderStore) FindByNumber(_ context.Context, number string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.OrderNumber == number {
			c := cloneOrder(o)
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("Order not found")
}

func (s *OrderStore) Count(_ context.Context, status models.OrderStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, o := range s.orders {
		if status == "" || o.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *OrderStore) List(_ context.Context, status models.OrderStatus, skip, limit int64) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []models.Order
	for i := len(s.orders) - 1; i >= 0; i-- {
		if status == "" || s.orders[i].Status == status {
			hits = append(hits, s.orders[i])
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].CreatedAt.After(hits[j].CreatedAt)
	})

	out := []models.Order{}
	for i := skip; i < int64(len(hits)) && int64(len(out)) < limit; i++ {
		out = append(out, cloneOrder(hits[i]))
	}
	return out, nil
}

// UpdateStatus moves the order from one status to another only if it is
// still in the expected status.
func (s *OrderStore) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to models.OrderStatus, at time.Time) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.orders {
		o := &s.orders[i]
		if o.ID == id && o.Status == from {
			o.Status = to
			o.UpdatedAt = at
			c := cloneOrder(*o)
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("Order not found")
}

func cloneOrder(o models.Order) models.Order {
	c := o
	c.Items = append([]models.OrderItem{}, o.Items...)
	return c
}

// Sequence is an in-memory counter source.
type Sequence struct {
	mu   sync.Mutex
	seqs map[string]int64
}

func NewSequence() *Sequence {
	return &Sequence{seqs: map[string]int64{}}
}

func (s *Sequence) Next(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seqs[name]++
	return s.seqs[name], nil
}
