package memory

import (
	"context"
	"testing"
	"time"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *ProductStore, name string, price float64, created time.Time, categories ...string) models.Product {
	t.Helper()
	p := models.NewProduct()
	p.Name = name
	p.Slug = name
	p.Price = price
	p.Categories = categories
	p.CreatedAt = created
	require.NoError(t, s.Insert(context.Background(), &p))
	return p
}

func names(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}

func TestProductStore_FindSortsWithStableTies(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore()
	now := time.Now()
	seed(t, s, "b", 10, now)
	seed(t, s, "a", 10, now)
	seed(t, s, "c", 5, now.Add(time.Minute))

	all := models.ProductFilter{}

	got, err := s.Find(ctx, all, models.SortPriceLow, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, names(got))

	got, err = s.Find(ctx, all, models.SortPriceHigh, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, names(got))

	got, err = s.Find(ctx, all, models.SortName, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names(got))

	got, err = s.Find(ctx, all, models.SortNewest, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, names(got))
}

func TestProductStore_SearchAndCategory(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore()
	seed(t, s, "Runner", 10, time.Now(), "shoes")
	seed(t, s, "Tote", 10, time.Now(), "bags")

	n, err := s.Count(ctx, models.ProductFilter{Search: "SHO"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.Count(ctx, models.ProductFilter{Category: "bags"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestProductStore_DuplicateSlug(t *testing.T) {
	s := NewProductStore()
	seed(t, s, "dup", 1, time.Now())

	p := models.NewProduct()
	p.Name = "other"
	p.Slug = "dup"
	err := s.Insert(context.Background(), &p)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
}

func TestProductStore_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore()
	p := seed(t, s, "mug", 8, time.Now())
	p.QuantityInStock = 2
	require.NoError(t, s.Update(ctx, &p, models.StockFields{Quantity: true}))

	require.NoError(t, s.ReserveStock(ctx, p.ID, 2))
	got, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.QuantityInStock)
	assert.Equal(t, models.OutOfStock, got.StockStatus)

	err = s.ReserveStock(ctx, p.ID, 1)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))

	require.NoError(t, s.ReleaseStock(ctx, p.ID, 2))
	got, err = s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.QuantityInStock)
	assert.Equal(t, models.InStock, got.StockStatus)
}

func TestProductStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore()
	p := seed(t, s, "lamp", 30, time.Now(), "home")

	got, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	got.Categories[0] = "garden"

	again, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, again.Categories)
}
