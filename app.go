package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/Affo25/Ecoomerce-apis/configs"
	adminController "github.com/Affo25/Ecoomerce-apis/controllers/admins"
	orderController "github.com/Affo25/Ecoomerce-apis/controllers/orders"
	productController "github.com/Affo25/Ecoomerce-apis/controllers/products"
	"github.com/Affo25/Ecoomerce-apis/middlewares"
	"github.com/Affo25/Ecoomerce-apis/responses"
	"github.com/Affo25/Ecoomerce-apis/routes"
	"github.com/Affo25/Ecoomerce-apis/services/auth"
	"github.com/Affo25/Ecoomerce-apis/services/catalog"
	"github.com/Affo25/Ecoomerce-apis/services/ingestion"
	"github.com/Affo25/Ecoomerce-apis/services/orders"
	"github.com/gofiber/fiber/v2"
)

// bodyLimit fits a full product submission: ten 5MB images plus fields.
const bodyLimit = ingestion.MaxImages*ingestion.MaxImageSize + 4<<20

type productStore interface {
	catalog.Repository
	ingestion.Repository
	orders.StockReserver
}

type stores struct {
	products productStore
	orders   orders.Repository
	counters orders.Sequence
	admins   auth.AdminRepository
	health   func(context.Context) error
}

func newApp(cfg *configs.Config, st stores, sink ingestion.ImageSink, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Storefront API",
		BodyLimit:    bodyLimit,
		ErrorHandler: responses.ErrorHandler(cfg.IsDevelopment(), logger),
	})
	middlewares.Setup(app, cfg)

	var stock orders.StockReserver
	if cfg.ReserveStock {
		stock = st.products
	}

	gateway := auth.NewGateway(cfg.JWTSecret, cfg.JWTExpiresIn)
	authed := middlewares.AuthMiddleware(gateway)

	pc := productController.NewProductController(
		catalog.NewEngine(st.products),
		ingestion.NewPipeline(st.products, sink, logger),
	)
	oc := orderController.NewOrderController(orders.NewService(st.orders, st.counters, stock, logger))
	ac := adminController.NewAdminController(auth.NewAdminService(st.admins, st.counters, gateway, cfg.AdminRegistrationKey, logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		if st.health != nil {
			ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
			defer cancel()
			if err := st.health(ctx); err != nil {
				return err
			}
		}
		return responses.Success(c, fiber.StatusOK, "API is healthy", fiber.Map{"status": "ok"})
	})

	routes.ProductsRoute(app, pc, authed)
	routes.OrderRoutes(app, oc, middlewares.OrderLimiter(cfg.OrderRateLimit))
	routes.AdminRoute(app, ac, pc, oc, authed)
	if cfg.StorageMode != configs.StorageHosted {
		routes.UploadsRoute(app, cfg.UploadURLPrefix, cfg.UploadDir)
	}

	app.Use(middlewares.NotFound)
	return app
}
