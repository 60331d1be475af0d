package models

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceLow  ProductSort = "price-low"
	SortPriceHigh ProductSort = "price-high"
	SortName      ProductSort = "name"
)

// ProductFilter is the store-independent predicate of a catalog query.
// Count and Find must always receive the same value.
type ProductFilter struct {
	ActiveOnly bool
	// Active narrows admin listings; ignored when ActiveOnly is set.
	Active   *bool
	Category string
	Search   string
	MinPrice *float64
	MaxPrice *float64
}

type Pagination struct {
	Page       int64 `json:"page"`
	Limit      int64 `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

func NewPagination(page, limit, total int64) Pagination {
	totalPages := (total + limit - 1) / limit
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
