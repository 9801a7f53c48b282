package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gonzalo-olmedo/comicstore/services"
)

// ProductController serves the comic catalog. Reads go through the cache
// manager; writes are restricted by the route table.
type ProductController struct {
	service   services.ProductService
	cache     *CacheManager
	validator *RequestValidator
	logger    *zap.Logger
}

func NewProductController(s services.ProductService, cache *CacheManager, validator *RequestValidator, logger *zap.Logger) *ProductController {
	return &ProductController{service: s, cache: cache, validator: validator, logger: logger}
}

// GetProducts handles GET /products/
func (pc *ProductController) GetProducts(c *gin.Context) {
	page, perPage, err := pc.validator.ParsePagination(c, "perPage")
	if err != nil {
		fail(c, err)
		return
	}
	filters, err := pc.validator.ParseProductFilters(c)
	if err != nil {
		fail(c, err)
		return
	}

	cached, version, ok := pc.cache.GetProductList(c.Request.Context(), page, perPage, filters)
	if ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	products, total, err := pc.service.List(c.Request.Context(), services.ListProductsParams{
		Page:       page,
		PerPage:    perPage,
		CategoryID: filters.CategoryID,
		Search:     filters.Search,
		InStock:    filters.InStock,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response := buildProductListResponse(products, total, page, perPage)
	pc.cache.SetProductListAsync(version, page, perPage, filters, response)

	pc.logger.Debug("Products fetched",
		zap.Int("page", page),
		zap.Int("perPage", perPage),
		zap.Int64("total", total),
	)
	c.JSON(http.StatusOK, response)
}

// GetProductByID handles GET /products/:id
func (pc *ProductController) GetProductByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	cached, version, hit := pc.cache.GetProduct(c.Request.Context(), id.String())
	if hit {
		c.JSON(http.StatusOK, cached)
		return
	}

	product, err := pc.service.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	pc.cache.SetProductAsync(version, id.String(), product)
	c.JSON(http.StatusOK, product)
}

// CreateProduct handles POST /products/ and POST /products/create/
func (pc *ProductController) CreateProduct(c *gin.Context) {
	in, err := pc.validator.ParseProductInput(c)
	if err != nil {
		fail(c, err)
		return
	}
	image, err := optionalImage(c)
	if err != nil {
		fail(c, err)
		return
	}

	product, err := pc.service.Create(c.Request.Context(), in, image)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles PUT /products/:id. Fields absent from the request
// keep their stored values.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	in, err := pc.validator.ParseProductInput(c)
	if err != nil {
		fail(c, err)
		return
	}
	image, err := optionalImage(c)
	if err != nil {
		fail(c, err)
		return
	}

	product, err := pc.service.Update(c.Request.Context(), id, in, image)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /products/:id
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := pc.service.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
