package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gonzalo-olmedo/comicstore/services"
)

type CategoryController struct {
	service services.CategoryService
	cache   *CacheManager
}

func NewCategoryController(s services.CategoryService, cache *CacheManager) *CategoryController {
	return &CategoryController{service: s, cache: cache}
}

func (ctrl *CategoryController) GetCategories(c *gin.Context) {
	cached, version, ok := ctrl.cache.GetCategories(c.Request.Context())
	if ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	categories, err := ctrl.service.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ctrl.cache.SetCategoriesAsync(version, categories)
	c.JSON(http.StatusOK, categories)
}

func (ctrl *CategoryController) GetCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	category, err := ctrl.service.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (ctrl *CategoryController) CreateCategory(c *gin.Context) {
	var req services.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindingError(err))
		return
	}

	category, err := ctrl.service.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (ctrl *CategoryController) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindingError(err))
		return
	}

	category, err := ctrl.service.Update(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (ctrl *CategoryController) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.service.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
