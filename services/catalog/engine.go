// Package catalog compiles client catalog parameters into a bounded store
// query and returns one page of products with pagination metadata.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultLimit int64 = 12
	MaxLimit     int64 = 100
)

type Repository interface {
	Find(ctx context.Context, filter models.ProductFilter, sort models.ProductSort, skip, limit int64) ([]models.Product, error)
	Count(ctx context.Context, filter models.ProductFilter) (int64, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	DistinctCategories(ctx context.Context, filter models.ProductFilter) ([]string, error)
}

// ListRequest carries raw query-string values.
type ListRequest struct {
	Category string
	Search   string
	MinPrice string
	MaxPrice string
	Sort     string
	Page     string
	Limit    string

	// Status is "active" or "inactive"; only honoured with IncludeInactive.
	Status          string
	IncludeInactive bool
}

type Query struct {
	Filter models.ProductFilter
	Sort   models.ProductSort
	Page   int64
	Limit  int64
}

func (q Query) Skip() int64 {
	return (q.Page - 1) * q.Limit
}

type Page struct {
	Products   []models.Product  `json:"products"`
	Pagination models.Pagination `json:"pagination"`
}

type Engine struct {
	repo Repository
}

func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo}
}

// Compile coerces and validates req. Every malformed parameter is reported.
func Compile(req ListRequest) (Query, error) {
	var details []string

	q := Query{
		Filter: models.ProductFilter{
			ActiveOnly: !req.IncludeInactive,
			Category:   strings.TrimSpace(req.Category),
			Search:     strings.TrimSpace(req.Search),
		},
		Sort: parseSort(req.Sort),
	}

	if req.IncludeInactive {
		switch strings.ToLower(strings.TrimSpace(req.Status)) {
		case "":
		case "active":
			active := true
			q.Filter.Active = &active
		case "inactive":
			active := false
			q.Filter.Active = &active
		default:
			details = append(details, "status must be one of [active, inactive]")
		}
	}

	if v, msg := parsePrice("minPrice", req.MinPrice); msg != "" {
		details = append(details, msg)
	} else {
		q.Filter.MinPrice = v
	}
	if v, msg := parsePrice("maxPrice", req.MaxPrice); msg != "" {
		details = append(details, msg)
	} else {
		q.Filter.MaxPrice = v
	}
	if q.Filter.MinPrice != nil && q.Filter.MaxPrice != nil && *q.Filter.MinPrice > *q.Filter.MaxPrice {
		details = append(details, "minPrice must not be greater than maxPrice")
	}

	page, limit, pagingDetails := ParsePaging(req.Page, req.Limit)
	details = append(details, pagingDetails...)
	q.Page, q.Limit = page, limit

	if len(details) > 0 {
		return Query{}, apperrors.Validation("Invalid catalog query", details...)
	}
	return q, nil
}

// List returns one page of products. The total is counted with the same
// filter value used for the page.
func (e *Engine) List(ctx context.Context, req ListRequest) (*Page, error) {
	q, err := Compile(req)
	if err != nil {
		return nil, err
	}

	total, err := e.repo.Count(ctx, q.Filter)
	if err != nil {
		return nil, storeError(err)
	}

	products, err := e.repo.Find(ctx, q.Filter, q.Sort, q.Skip(), q.Limit)
	if err != nil {
		return nil, storeError(err)
	}
	if products == nil {
		products = []models.Product{}
	}

	return &Page{
		Products:   products,
		Pagination: models.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// Get returns an active product by id.
func (e *Engine) Get(ctx context.Context, id string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Validation("Invalid product ID format")
	}
	p, err := e.repo.FindByID(ctx, oid)
	return visible(p, err)
}

// GetAny returns a product by id regardless of is_active. Admin only.
func (e *Engine) GetAny(ctx context.Context, id string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Validation("Invalid product ID format")
	}
	p, err := e.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, storeError(err)
	}
	return p, nil
}

func (e *Engine) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, apperrors.Validation("slug is required")
	}
	p, err := e.repo.FindBySlug(ctx, slug)
	return visible(p, err)
}

// Categories lists the distinct categories of active products.
func (e *Engine) Categories(ctx context.Context) ([]string, error) {
	categories, err := e.repo.DistinctCategories(ctx, models.ProductFilter{ActiveOnly: true})
	if err != nil {
		return nil, storeError(err)
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func visible(p *models.Product, err error) (*models.Product, error) {
	if err != nil {
		return nil, storeError(err)
	}
	if !p.IsActive {
		return nil, apperrors.NotFound("Product not found")
	}
	return p, nil
}

func storeError(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Upstream("Product store unavailable", err)
}

func parseSort(raw string) models.ProductSort {
	switch s := models.ProductSort(strings.ToLower(strings.TrimSpace(raw))); s {
	case models.SortPriceLow, models.SortPriceHigh, models.SortName, models.SortNewest:
		return s
	default:
		return models.SortNewest
	}
}

func parsePrice(name, raw string) (*float64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ""
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Sprintf("%s must be a number", name)
	}
	if v < 0 {
		return nil, fmt.Sprintf("%s must not be negative", name)
	}
	return &v, ""
}

// ParsePaging coerces raw page and limit values. Missing values take the
// defaults and limit is clamped to MaxLimit.
func ParsePaging(rawPage, rawLimit string) (page, limit int64, details []string) {
	page, limit = 1, DefaultLimit
	if v, msg := parsePositive("page", rawPage); msg != "" {
		details = append(details, msg)
	} else if v > math.MaxInt64/MaxLimit {
		details = append(details, "page is too large")
	} else if v > 0 {
		page = v
	}
	if v, msg := parsePositive("limit", rawLimit); msg != "" {
		details = append(details, msg)
	} else if v > 0 {
		limit = min(v, MaxLimit)
	}
	return page, limit, details
}

func parsePositive(name, raw string) (int64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ""
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		return 0, fmt.Sprintf("%s must be a positive integer", name)
	}
	return v, ""
}
