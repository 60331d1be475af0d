package routes

import (
	controllers "github.com/Affo25/Ecoomerce-apis/controllers/products"

	"github.com/gofiber/fiber/v2"
)

func ProductsRoute(app *fiber.App, pc *controllers.ProductController, authed fiber.Handler) {
	app.Get("/api/products", pc.GetProducts)
	app.Get("/api/products/categories", pc.GetCategories)
	app.Get("/api/products/slug/:slug", pc.FetchProductBySlug)
	app.Get("/api/products/:id", pc.FetchProductDetails)

	//For admin product management
	app.Post("/api/products", authed, pc.AddProduct)
	app.Put("/api/products/:id", authed, pc.UpdateProduct)
	app.Delete("/api/products/:id", authed, pc.DeleteProduct)
}

// UploadsRoute serves locally stored product images.
func UploadsRoute(app *fiber.App, prefix, dir string) {
	app.Static(prefix, dir, fiber.Static{
		MaxAge: 86400,
	})
}
