package controllers

import (
	"context"
	"time"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/middlewares"
	"github.com/Affo25/Ecoomerce-apis/responses"
	"github.com/Affo25/Ecoomerce-apis/services/auth"
	"github.com/gofiber/fiber/v2"
)

const (
	requestTimeout     = 10 * time.Second
	registrationHeader = "X-Registration-Key"
)

type AdminController struct {
	admins *auth.AdminService
}

func NewAdminController(svc *auth.AdminService) *AdminController {
	return &AdminController{admins: svc}
}

// AdminSignUp creates an admin account and signs it in.
func (ac *AdminController) AdminSignUp(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	var reqBody auth.RegisterRequest
	if err := c.BodyParser(&reqBody); err != nil {
		return apperrors.Validation("Invalid request format")
	}

	session, err := ac.admins.Register(ctx, reqBody, c.Get(registrationHeader))
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusCreated, "Admin created successfully", session)
}

func (ac *AdminController) AdminSignIn(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	var reqBody auth.LoginRequest
	if err := c.BodyParser(&reqBody); err != nil {
		return apperrors.Validation("Invalid request format")
	}

	session, err := ac.admins.Login(ctx, reqBody)
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusOK, "Admin signed in successfully", session)
}

// GetProfile returns the signed-in admin.
func (ac *AdminController) GetProfile(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	identity, err := middlewares.Identity(c)
	if err != nil {
		return err
	}
	admin, err := ac.admins.Profile(ctx, identity)
	if err != nil {
		return err
	}
	return responses.Success(c, fiber.StatusOK, "Admin fetched successfully", admin)
}
