package routes

import (
	"github.com/gin-gonic/gin"

	commonmw "github.com/gonzalo-olmedo/comicstore/common/middleware"
	"github.com/gonzalo-olmedo/comicstore/controllers"
	"github.com/gonzalo-olmedo/comicstore/middleware"
	"github.com/gonzalo-olmedo/comicstore/models"
)

// Controllers groups the handlers mounted by RegisterRoutes.
type Controllers struct {
	Auth     *controllers.AuthController
	User     *controllers.UserController
	Role     *controllers.RoleController
	Category *controllers.CategoryController
	Product  *controllers.ProductController
	Order    *controllers.OrderController
}

// Options tunes the credential endpoints' rate limit.
type Options struct {
	AuthRatePerMinute int
	AuthBurst         int
}

func RegisterRoutes(r *gin.Engine, c Controllers, tokens middleware.TokenValidator, opts Options) {
	if opts.AuthRatePerMinute <= 0 {
		opts.AuthRatePerMinute = 20
	}
	if opts.AuthBurst <= 0 {
		opts.AuthBurst = 5
	}
	authLimit := commonmw.RateLimitMiddleware(opts.AuthRatePerMinute, opts.AuthBurst)
	authRequired := middleware.AuthMiddleware(tokens)
	can := middleware.RequirePermission

	// Authentication
	r.POST("/register/", authLimit, c.Auth.Register)
	r.POST("/login/", authLimit, c.Auth.Login)
	r.POST("/token/refresh/", authLimit, c.Auth.Refresh)
	r.POST("/api/token/verify/", c.Auth.Verify)
	r.POST("/logout/", authRequired, c.Auth.Logout)

	// Profile
	user := r.Group("/user", authRequired, can(models.ActionProfileManage))
	{
		user.GET("/", c.User.GetProfile)
		user.PUT("/", c.User.UpdateProfile)
		user.PUT("/update/", c.User.UpdateProfile)
	}

	// Catalog
	products := r.Group("/products")
	{
		products.GET("/", c.Product.GetProducts)
		products.GET("/:id", c.Product.GetProductByID)

		write := products.Group("", authRequired, can(models.ActionCatalogWrite))
		write.POST("/", c.Product.CreateProduct)
		write.POST("/create/", c.Product.CreateProduct)
		write.PUT("/:id", c.Product.UpdateProduct)
		write.DELETE("/:id", c.Product.DeleteProduct)
	}

	categories := r.Group("/categories")
	{
		categories.GET("/", c.Category.GetCategories)
		categories.GET("/:id", c.Category.GetCategory)

		write := categories.Group("", authRequired, can(models.ActionCatalogWrite))
		write.POST("/", c.Category.CreateCategory)
		write.PUT("/:id", c.Category.UpdateCategory)
		write.DELETE("/:id", c.Category.DeleteCategory)
	}

	// Orders
	orders := r.Group("/orders", authRequired)
	{
		orders.POST("/create/", can(models.ActionOrdersPlace), c.Order.PlaceOrder)
		orders.GET("/user/", can(models.ActionOrdersReadOwn), c.Order.GetOrders)
		orders.GET("/user/:id", can(models.ActionOrdersReadOwn), c.Order.GetOrderByID)
	}

	// Roles
	roles := r.Group("/roles", authRequired, can(models.ActionRolesManage))
	{
		roles.GET("/", c.Role.ListRoles)
		roles.POST("/", c.Role.CreateRole)
		roles.GET("/:id", c.Role.GetRole)
		roles.PUT("/:id", c.Role.UpdateRole)
		roles.DELETE("/:id", c.Role.DeleteRole)
	}
}
