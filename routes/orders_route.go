package routes

import (
	orderController "github.com/Affo25/Ecoomerce-apis/controllers/orders"

	"github.com/gofiber/fiber/v2"
)

func OrderRoutes(app *fiber.App, oc *orderController.OrderController, limiter fiber.Handler) {
	app.Post("/api/orders", limiter, oc.CreateOrder)
	app.Get("/api/orders/track/:orderNumber", oc.TrackOrder)
}
