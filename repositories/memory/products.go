// Package memory implements the repository contracts in process memory.
// It backs DB_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductStore struct {
	mu       sync.RWMutex
	products []models.Product
}

func NewProductStore() *ProductStore {
	return &ProductStore{}
}

func (s *ProductStore) Insert(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slugTaken(p.Slug, primitive.NilObjectID) {
		return apperrors.Conflict(fmt.Sprintf("Product with slug %q already exists", p.Slug), apperrors.ErrDuplicateKey)
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	s.products = append(s.products, cloneProduct(*p))
	return nil
}

func (s *ProductStore) Update(_ context.Context, p *models.Product, stock models.StockFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(p.ID)
	if i < 0 {
		return apperrors.NotFound("Product not found")
	}
	if s.slugTaken(p.Slug, p.ID) {
		return apperrors.Conflict(fmt.Sprintf("Product with slug %q already exists", p.Slug), apperrors.ErrDuplicateKey)
	}
	next := cloneProduct(*p)
	next.CreatedAt = s.products[i].CreatedAt
	if !stock.Quantity {
		next.QuantityInStock = s.products[i].QuantityInStock
	}
	if !stock.Status {
		next.StockStatus = s.products[i].StockStatus
	}
	s.products[i] = next
	*p = cloneProduct(next)
	return nil
}

func (s *ProductStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return apperrors.NotFound("Product not found")
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	return nil
}

func (s *ProductStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(id)
	if i < 0 {
		return nil, apperrors.NotFound("Product not found")
	}
	p := cloneProduct(s.products[i])
	return &p, nil
}

func (s *ProductStore) FindBySlug(_ context.Context, slug string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.Slug == slug {
			c := cloneProduct(p)
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("Product not found")
}

func (s *ProductStore) Count(_ context.Context, filter models.ProductFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, p := range s.products {
		if matches(filter, p) {
			n++
		}
	}
	return n, nil
}

func (s *ProductStore) Find(_ context.Context, filter models.ProductFilter, order models.ProductSort, skip, limit int64) ([]models.Product, error) {
	s.mu.RLock()
	type ranked struct {
		seq int
		p   models.Product
	}
	var hits []ranked
	for i, p := range s.products {
		if matches(filter, p) {
			hits = append(hits, ranked{seq: i, p: p})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		switch order {
		case models.SortPriceLow:
			if a.p.Price != b.p.Price {
				return a.p.Price < b.p.Price
			}
		case models.SortPriceHigh:
			if a.p.Price != b.p.Price {
				return a.p.Price > b.p.Price
			}
		case models.SortName:
			if a.p.Name != b.p.Name {
				return a.p.Name < b.p.Name
			}
		default:
			if !a.p.CreatedAt.Equal(b.p.CreatedAt) {
				return a.p.CreatedAt.After(b.p.CreatedAt)
			}
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})

	out := []models.Product{}
	for i := skip; i < int64(len(hits)) && int64(len(out)) < limit; i++ {
		out = append(out, cloneProduct(hits[i].p))
	}
	return out, nil
}

func (s *ProductStore) DistinctCategories(_ context.Context, filter models.ProductFilter) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}
	out := []string{}
	for _, p := range s.products {
		if !matches(filter, p) {
			continue
		}
		for _, c := range p.Categories {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *ProductStore) ReserveStock(_ context.Context, id primitive.ObjectID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return apperrors.NotFound(fmt.Sprintf("Product %s not found", id.Hex()))
	}
	p := &s.products[i]
	if p.QuantityInStock < qty {
		return apperrors.Conflict(fmt.Sprintf("Insufficient stock for %s", p.Name), nil)
	}
	p.QuantityInStock -= qty
	if p.QuantityInStock == 0 && p.StockStatus == models.InStock {
		p.StockStatus = models.OutOfStock
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *ProductStore) ReleaseStock(_ context.Context, id primitive.ObjectID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return apperrors.NotFound(fmt.Sprintf("Product %s not found", id.Hex()))
	}
	p := &s.products[i]
	p.QuantityInStock += qty
	if p.QuantityInStock > 0 && p.StockStatus == models.OutOfStock {
		p.StockStatus = models.InStock
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *ProductStore) index(id primitive.ObjectID) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *ProductStore) slugTaken(slug string, except primitive.ObjectID) bool {
	for _, p := range s.products {
		if p.Slug == slug && p.ID != except {
			return true
		}
	}
	return false
}

func matches(f models.ProductFilter, p models.Product) bool {
	if f.ActiveOnly && !p.IsActive {
		return false
	}
	if !f.ActiveOnly && f.Active != nil && p.IsActive != *f.Active {
		return false
	}
	if f.Category != "" && !contains(p.Categories, f.Category) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		hit := strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle)
		for _, c := range p.Categories {
			hit = hit || strings.Contains(strings.ToLower(c), needle)
		}
		if !hit {
			return false
		}
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func cloneProduct(p models.Product) models.Product {
	c := p
	c.Categories = append([]string{}, p.Categories...)
	c.Tags = append([]string{}, p.Tags...)
	c.Images = append([]string{}, p.Images...)
	c.Videos = append([]string{}, p.Videos...)
	c.MetaKeywords = append([]string{}, p.MetaKeywords...)
	c.Attributes = append([]models.Attribute{}, p.Attributes...)
	c.Variants = make([]models.Variant, len(p.Variants))
	for i, v := range p.Variants {
		v.Attributes = append([]models.Attribute{}, v.Attributes...)
		if v.SalePrice != nil {
			sp := *v.SalePrice
			v.SalePrice = &sp
		}
		c.Variants[i] = v
	}
	if p.Dimensions != nil {
		d := *p.Dimensions
		c.Dimensions = &d
	}
	if p.SalePrice != nil {
		sp := *p.SalePrice
		c.SalePrice = &sp
	}
	return c
}
