package controllers

import (
	"context"

	"github.com/Affo25/Ecoomerce-apis/responses"
	"github.com/gofiber/fiber/v2"
)

// FetchProductDetails returns one active product by id.
func (pc *ProductController) FetchProductDetails(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), readTimeout)
	defer cancel()

	product, err := pc.catalog.Get(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusOK, "Product fetched successfully", product)
}

func (pc *ProductController) FetchProductBySlug(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), readTimeout)
	defer cancel()

	product, err := pc.catalog.GetBySlug(ctx, c.Params("slug"))
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusOK, "Product fetched successfully", product)
}

// FetchAdminProduct returns a product by id, active or not.
func (pc *ProductController) FetchAdminProduct(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), readTimeout)
	defer cancel()

	product, err := pc.catalog.GetAny(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusOK, "Product fetched successfully", product)
}
