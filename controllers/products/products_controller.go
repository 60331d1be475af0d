package controllers

import (
	"context"
	"time"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/responses"
	"github.com/Affo25/Ecoomerce-apis/services/catalog"
	"github.com/Affo25/Ecoomerce-apis/services/ingestion"
	"github.com/gofiber/fiber/v2"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 60 * time.Second
)

type ProductController struct {
	catalog  *catalog.Engine
	pipeline *ingestion.Pipeline
}

func NewProductController(engine *catalog.Engine, pipeline *ingestion.Pipeline) *ProductController {
	return &ProductController{catalog: engine, pipeline: pipeline}
}

func listRequest(c *fiber.Ctx) catalog.ListRequest {
	return catalog.ListRequest{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		MinPrice: c.Query("minPrice"),
		MaxPrice: c.Query("maxPrice"),
		Sort:     c.Query("sort"),
		Page:     c.Query("page"),
		Limit:    c.Query("limit"),
	}
}

// GetProducts lists active products for the storefront.
func (pc *ProductController) GetProducts(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), readTimeout)
	defer cancel()

	page, err := pc.catalog.List(ctx, listRequest(c))
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusOK, "Products fetched successfully", page)
}

// GetAdminProducts lists every product, optionally narrowed by ?status=active|inactive.
func (pc *ProductController) GetAdminProducts(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), readTimeout)
	defer cancel()

	req := listRequest(c)
	req.IncludeInactive = true
	req.Status = c.Query("status")

	page, err := pc.catalog.List(ctx, req)
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusOK, "Products fetched successfully", page)
}

func (pc *ProductController) GetCategories(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), readTimeout)
	defer cancel()

	categories, err := pc.catalog.Categories(ctx)
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusOK, "Categories fetched successfully", fiber.Map{"categories": categories})
}

func (pc *ProductController) AddProduct(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), writeTimeout)
	defer cancel()

	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.Validation("Expected a multipart/form-data body")
	}

	product, err := pc.pipeline.Create(ctx, form)
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusCreated, "Product created successfully", product)
}

func (pc *ProductController) UpdateProduct(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), writeTimeout)
	defer cancel()

	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.Validation("Expected a multipart/form-data body")
	}

	product, err := pc.pipeline.Update(ctx, c.Params("id"), form)
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusOK, "Product updated successfully", product)
}

func (pc *ProductController) DeleteProduct(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), readTimeout)
	defer cancel()

	if err := pc.pipeline.Delete(ctx, c.Params("id")); err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusOK, "Product deleted successfully", nil)
}
