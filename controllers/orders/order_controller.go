package controllers

import (
	"context"
	"time"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/responses"
	"github.com/Affo25/Ecoomerce-apis/services/orders"
	"github.com/gofiber/fiber/v2"
)

const requestTimeout = 10 * time.Second

type OrderController struct {
	orders *orders.Service
}

func NewOrderController(svc *orders.Service) *OrderController {
	return &OrderController{orders: svc}
}

// UpdateStatusRequest is the body of PATCH /api/admin/orders/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (oc *OrderController) CreateOrder(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	var orderReq orders.CreateOrderRequest
	if err := c.BodyParser(&orderReq); err != nil {
		return apperrors.Validation("Invalid request body")
	}

	order, err := oc.orders.Create(ctx, orderReq)
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusCreated, "Order placed successfully", order)
}

// TrackOrder lets a customer look up an order by number and email.
func (oc *OrderController) TrackOrder(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	order, err := oc.orders.Track(ctx, c.Params("orderNumber"), c.Query("email"))
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusOK, "Order fetched successfully", order)
}

func (oc *OrderController) GetOrders(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	page, err := oc.orders.List(ctx, c.Query("status"), c.Query("page"), c.Query("limit"))
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusOK, "Orders fetched successfully", page)
}

func (oc *OrderController) GetOrder(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	order, err := oc.orders.Get(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusOK, "Order fetched successfully", order)
}

func (oc *OrderController) UpdateOrderStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.Validation("Invalid request body")
	}

	order, err := oc.orders.SetStatus(ctx, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusOK, "Order status updated successfully", order)
}
