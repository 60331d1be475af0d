package routes

import (
	adminController "github.com/Affo25/Ecoomerce-apis/controllers/admins"
	orderController "github.com/Affo25/Ecoomerce-apis/controllers/orders"
	productController "github.com/Affo25/Ecoomerce-apis/controllers/products"

	"github.com/gofiber/fiber/v2"
)

func AdminRoute(app *fiber.App, ac *adminController.AdminController, pc *productController.ProductController, oc *orderController.OrderController, authed fiber.Handler) {
	admin := app.Group("/api/admin")

	admin.Post("/register", ac.AdminSignUp)
	admin.Post("/login", ac.AdminSignIn)
	admin.Get("/me", authed, ac.GetProfile)

	admin.Get("/products", authed, pc.GetAdminProducts)
	admin.Get("/products/:id", authed, pc.FetchAdminProduct)

	admin.Get("/orders", authed, oc.GetOrders)
	admin.Get("/orders/:id", authed, oc.GetOrder)
	admin.Patch("/orders/:id/status", authed, oc.UpdateOrderStatus)
}
