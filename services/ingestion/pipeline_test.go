package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/models"
	"github.com/Affo25/Ecoomerce-apis/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type filePart struct {
	name        string
	contentType string
	content     []byte
}

func imageFile(name string) filePart {
	return filePart{name: name, contentType: "image/png", content: []byte("png-bytes-" + name)}
}

func buildForm(t *testing.T, fields map[string]string, files ...filePart) *multipart.Form {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, ImageField, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form
}

type fakeSink struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (s *fakeSink) Save(_ context.Context, f *multipart.FileHeader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, f.Filename)
	if s.fail[f.Filename] {
		return "", errors.New("upload service returned 502")
	}
	return "https://cdn.test/products/" + f.Filename, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline(sink ImageSink) (*Pipeline, *memory.ProductStore) {
	store := memory.NewProductStore()
	return NewPipeline(store, sink, quietLogger()), store
}

func baseFields() map[string]string {
	return map[string]string{
		"name":              "Canvas Sneaker",
		"description":       "Everyday shoe",
		"price":             "59.90",
		"quantity_in_stock": "12",
	}
}

func TestCreate_RoundTripsJSONFields(t *testing.T) {
	pipeline, store := newPipeline(&fakeSink{})
	fields := baseFields()
	fields["dimensions"] = `{"length": 30, "width": 12.5, "height": 10}`
	fields["attributes"] = `[{"name": "material", "value": "canvas"}, {"name": "sole", "value": "rubber"}]`
	fields["categories"] = `["shoes", "sale"]`
	fields["tags"] = `["summer"]`
	fields["variants"] = `[{"sku": "CS-42", "price": 59.9, "quantity_in_stock": 3}]`

	created, err := pipeline.Create(context.Background(), buildForm(t, fields))
	require.NoError(t, err)

	fetched, err := store.FindByID(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, "canvas-sneaker", fetched.Slug)
	assert.Equal(t, &models.Dimensions{Length: 30, Width: 12.5, Height: 10}, fetched.Dimensions)
	assert.Equal(t, []models.Attribute{{Name: "material", Value: "canvas"}, {Name: "sole", Value: "rubber"}}, fetched.Attributes)
	assert.Equal(t, []string{"shoes", "sale"}, fetched.Categories)
	assert.Equal(t, []string{"summer"}, fetched.Tags)
	require.Len(t, fetched.Variants, 1)
	assert.Equal(t, "CS-42", fetched.Variants[0].SKU)
	assert.Equal(t, 59.9, fetched.Price)
	assert.Equal(t, 12, fetched.QuantityInStock)
	assert.Equal(t, "USD", fetched.Currency)
	assert.True(t, fetched.IsActive)
	assert.False(t, fetched.CreatedAt.IsZero())
	assert.Equal(t, fetched.CreatedAt, fetched.UpdatedAt)
}

func TestCreate_MalformedJSONFieldIsOmitted(t *testing.T) {
	pipeline, _ := newPipeline(&fakeSink{})
	fields := baseFields()
	fields["categories"] = `shoes, sale`
	fields["dimensions"] = `{"length": "long"`
	fields["tags"] = `["summer"]`

	created, err := pipeline.Create(context.Background(), buildForm(t, fields))
	require.NoError(t, err)

	assert.Empty(t, created.Categories)
	assert.Nil(t, created.Dimensions)
	assert.Equal(t, []string{"summer"}, created.Tags)
}

func TestCreate_BooleanCoercion(t *testing.T) {
	tests := []struct {
		featured, active         string
		wantFeatured, wantActive bool
	}{
		{"true", "false", true, false},
		{"yes", "1", false, true},
		{"TRUE", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.featured+"/"+tt.active, func(t *testing.T) {
			pipeline, _ := newPipeline(&fakeSink{})
			fields := baseFields()
			fields["featured"] = tt.featured
			fields["is_active"] = tt.active

			created, err := pipeline.Create(context.Background(), buildForm(t, fields))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFeatured, created.Featured)
			assert.Equal(t, tt.wantActive, created.IsActive)
		})
	}
}

func TestCreate_SecondUploadFails(t *testing.T) {
	sink := &fakeSink{fail: map[string]bool{"b.png": true}}
	pipeline, store := newPipeline(sink)

	created, err := pipeline.Create(context.Background(),
		buildForm(t, baseFields(), imageFile("a.png"), imageFile("b.png"), imageFile("c.png")))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://cdn.test/products/a.png",
		"https://cdn.test/products/c.png",
	}, created.Images)
	assert.Len(t, sink.calls, 3)

	fetched, err := store.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Images, fetched.Images)
}

func TestCreate_ImagesKeepInputOrder(t *testing.T) {
	pipeline, _ := newPipeline(&fakeSink{})
	var files []filePart
	var want []string
	for i := 0; i < MaxImages; i++ {
		name := fmt.Sprintf("img-%02d.png", i)
		files = append(files, imageFile(name))
		want = append(want, "https://cdn.test/products/"+name)
	}

	created, err := pipeline.Create(context.Background(), buildForm(t, baseFields(), files...))
	require.NoError(t, err)
	assert.Equal(t, want, created.Images)
}

func TestCreate_RejectsBeforeAnyUpload(t *testing.T) {
	tooMany := make([]filePart, 0, MaxImages+1)
	for i := 0; i <= MaxImages; i++ {
		tooMany = append(tooMany, imageFile(fmt.Sprintf("%d.png", i)))
	}
	missingName := baseFields()
	delete(missingName, "name")
	badPrice := baseFields()
	badPrice["price"] = "free"
	negative := baseFields()
	negative["price"] = "-3"
	missingPrice := baseFields()
	delete(missingPrice, "price")

	tests := []struct {
		name   string
		fields map[string]string
		files  []filePart
		detail string
	}{
		{"non image", baseFields(), []filePart{imageFile("a.png"), {name: "notes.pdf", contentType: "application/pdf", content: []byte("%PDF")}}, "notes.pdf is not an image"},
		{"svg", baseFields(), []filePart{{name: "logo.svg", contentType: "image/svg+xml", content: []byte("<svg/>")}}, "logo.svg has an unsupported image type image/svg+xml"},
		{"oversize", baseFields(), []filePart{{name: "huge.png", contentType: "image/png", content: bytes.Repeat([]byte{1}, MaxImageSize+1)}}, "huge.png exceeds the 5MB limit"},
		{"too many", baseFields(), tooMany, "at most 10 images may be attached, got 11"},
		{"missing name", missingName, []filePart{imageFile("a.png")}, "name is required"},
		{"malformed price", badPrice, []filePart{imageFile("a.png")}, "price must be a number"},
		{"missing price", missingPrice, []filePart{imageFile("a.png")}, "price is required"},
		{"negative price", negative, []filePart{imageFile("a.png")}, "price must be greater than or equal to 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{}
			pipeline, store := newPipeline(sink)

			_, err := pipeline.Create(context.Background(), buildForm(t, tt.fields, tt.files...))

			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.KindValidation, appErr.Kind)
			assert.Contains(t, appErr.Details, tt.detail)
			assert.Empty(t, sink.calls)

			n, err := store.Count(context.Background(), models.ProductFilter{})
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestCreate_DuplicateSlugIsConflict(t *testing.T) {
	pipeline, _ := newPipeline(&fakeSink{})

	_, err := pipeline.Create(context.Background(), buildForm(t, baseFields()))
	require.NoError(t, err)

	fields := baseFields()
	fields["slug"] = "Canvas Sneaker"
	_, err = pipeline.Create(context.Background(), buildForm(t, fields))
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
}

func TestCreate_CancelledRequestWritesNothing(t *testing.T) {
	pipeline, store := newPipeline(&fakeSink{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Create(ctx, buildForm(t, baseFields(), imageFile("a.png")))
	assert.True(t, apperrors.Is(err, apperrors.KindUpstream))

	n, err := store.Count(context.Background(), models.ProductFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdate_AppendsImages(t *testing.T) {
	pipeline, _ := newPipeline(&fakeSink{})
	created, err := pipeline.Create(context.Background(), buildForm(t, baseFields(), imageFile("a.png")))
	require.NoError(t, err)

	updated, err := pipeline.Update(context.Background(), created.ID.Hex(),
		buildForm(t, map[string]string{"price": "49.90", "featured": "true"}, imageFile("b.png")))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://cdn.test/products/a.png",
		"https://cdn.test/products/b.png",
	}, updated.Images)
	assert.Equal(t, 49.9, updated.Price)
	assert.True(t, updated.Featured)
	assert.Equal(t, "Canvas Sneaker", updated.Name)
	assert.Equal(t, "canvas-sneaker", updated.Slug)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
}

func TestUpdate_ExplicitImageListReplacesBase(t *testing.T) {
	pipeline, _ := newPipeline(&fakeSink{})
	created, err := pipeline.Create(context.Background(), buildForm(t, baseFields(), imageFile("a.png"), imageFile("b.png")))
	require.NoError(t, err)

	cleared, err := pipeline.Update(context.Background(), created.ID.Hex(),
		buildForm(t, map[string]string{"images": "[]"}))
	require.NoError(t, err)
	assert.Empty(t, cleared.Images)

	replaced, err := pipeline.Update(context.Background(), created.ID.Hex(),
		buildForm(t, map[string]string{"images": `["https://cdn.test/products/kept.png"]`}, imageFile("c.png")))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://cdn.test/products/kept.png",
		"https://cdn.test/products/c.png",
	}, replaced.Images)
}

func TestUpdate_Errors(t *testing.T) {
	pipeline, _ := newPipeline(&fakeSink{})

	_, err := pipeline.Update(context.Background(), "xyz", buildForm(t, baseFields()))
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = pipeline.Update(context.Background(), "65a1b2c3d4e5f60718293a4b", buildForm(t, baseFields()))
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	created, err := pipeline.Create(context.Background(), buildForm(t, baseFields()))
	require.NoError(t, err)
	_, err = pipeline.Update(context.Background(), created.ID.Hex(), buildForm(t, map[string]string{"stock_status": "sold"}))
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestDelete(t *testing.T) {
	pipeline, store := newPipeline(&fakeSink{})
	created, err := pipeline.Create(context.Background(), buildForm(t, baseFields()))
	require.NoError(t, err)

	require.NoError(t, pipeline.Delete(context.Background(), created.ID.Hex()))
	_, err = store.FindByID(context.Background(), created.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	err = pipeline.Delete(context.Background(), created.ID.Hex())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

// reservingSink takes stock from the product while its images are uploading.
type reservingSink struct {
	store *memory.ProductStore
	id    primitive.ObjectID
	qty   int
}

func (s *reservingSink) Save(ctx context.Context, f *multipart.FileHeader) (string, error) {
	if err := s.store.ReserveStock(ctx, s.id, s.qty); err != nil {
		return "", err
	}
	return "https://cdn.test/products/" + f.Filename, nil
}

func TestUpdate_KeepsConcurrentStockReservations(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProductStore()
	created, err := NewPipeline(store, &fakeSink{}, quietLogger()).Create(ctx, buildForm(t, baseFields()))
	require.NoError(t, err)

	pipeline := NewPipeline(store, &reservingSink{store: store, id: created.ID, qty: 5}, quietLogger())
	updated, err := pipeline.Update(ctx, created.ID.Hex(),
		buildForm(t, map[string]string{"price": "49.90"}, imageFile("b.png")))
	require.NoError(t, err)
	assert.Equal(t, 7, updated.QuantityInStock)

	stored, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.QuantityInStock)
	assert.Equal(t, 49.9, stored.Price)

	updated, err = pipeline.Update(ctx, created.ID.Hex(), buildForm(t, map[string]string{"quantity_in_stock": "20"}))
	require.NoError(t, err)
	assert.Equal(t, 20, updated.QuantityInStock)
}
