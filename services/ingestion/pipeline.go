// Package ingestion turns multipart product submissions into validated,
// persisted products, storing attached images through an ImageSink.
package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/models"
	"github.com/Affo25/Ecoomerce-apis/validation"
	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Repository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	Insert(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product, stock models.StockFields) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type Pipeline struct {
	repo   Repository
	sink   ImageSink
	logger *slog.Logger
	now    func() time.Time
}

func NewPipeline(repo Repository, sink ImageSink, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		repo:   repo,
		sink:   sink,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the submission, stores its images and inserts the product.
func (p *Pipeline) Create(ctx context.Context, form *multipart.Form) (*models.Product, error) {
	input, files, err := p.parse(form)
	if err != nil {
		return nil, err
	}

	product := models.NewProduct()
	input.Apply(&product)
	if product.Slug == "" {
		product.Slug = slug.Make(product.Name)
	} else {
		product.Slug = slug.Make(product.Slug)
	}
	if err := validateNew(product, input); err != nil {
		return nil, err
	}

	urls, err := p.store(ctx, files)
	if err != nil {
		return nil, err
	}
	product.Images = append(product.Images, urls...)

	now := p.now()
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := p.repo.Insert(ctx, &product); err != nil {
		return nil, storeError(err)
	}

	p.logger.Info("Product created", "id", product.ID.Hex(), "slug", product.Slug, "images", len(product.Images))
	return &product, nil
}

// Update merges the submission into the stored product. Uploaded images are
// appended; an `images` JSON field replaces the retained list first.
func (p *Pipeline) Update(ctx context.Context, id string, form *multipart.Form) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Validation("Invalid product ID format")
	}

	input, files, err := p.parse(form)
	if err != nil {
		return nil, err
	}

	product, err := p.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, storeError(err)
	}

	input.Apply(product)
	if input.Slug != nil {
		if *input.Slug == "" {
			product.Slug = slug.Make(product.Name)
		} else {
			product.Slug = slug.Make(*input.Slug)
		}
	}
	if err := validation.Struct(product); err != nil {
		return nil, err
	}

	urls, err := p.store(ctx, files)
	if err != nil {
		return nil, err
	}
	product.Images = append(product.Images, urls...)
	product.UpdatedAt = p.now()

	stock := models.StockFields{Quantity: input.QuantityInStock != nil, Status: input.StockStatus != nil}
	if err := p.repo.Update(ctx, product, stock); err != nil {
		return nil, storeError(err)
	}

	p.logger.Info("Product updated", "id", product.ID.Hex(), "new_images", len(urls))
	return product, nil
}

func (p *Pipeline) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.Validation("Invalid product ID format")
	}
	if err := p.repo.Delete(ctx, oid); err != nil {
		return storeError(err)
	}
	p.logger.Info("Product deleted", "id", id)
	return nil
}

// validateNew runs the struct rules plus the fields a new product must supply.
func validateNew(product models.Product, input ProductInput) error {
	var details []string
	if input.Price == nil {
		details = append(details, "price is required")
	}
	if err := validation.Struct(product); err != nil {
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			return err
		}
		details = append(details, appErr.Details...)
	}
	if len(details) > 0 {
		return apperrors.Validation("Validation failed", details...)
	}
	return nil
}

func (p *Pipeline) parse(form *multipart.Form) (ProductInput, []*multipart.FileHeader, error) {
	input, err := ParseForm(form)
	if err != nil {
		return ProductInput{}, nil, err
	}
	for _, field := range input.Omitted {
		p.logger.Warn("Ignoring malformed JSON field", "field", field)
	}

	files := imageFiles(form)
	if err := ValidateImages(files); err != nil {
		return ProductInput{}, nil, err
	}
	return input, files, nil
}

// store resolves every upload before returning. A cancelled request writes nothing.
func (p *Pipeline) store(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	urls := storeImages(ctx, p.sink, files, p.logger)
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Upstream("Request cancelled before the product was saved", err)
	}
	if len(urls) < len(files) {
		p.logger.Warn("Some images were not stored", "attached", len(files), "stored", len(urls))
	}
	return urls, nil
}

func storeError(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Upstream("Product store unavailable", err)
}
