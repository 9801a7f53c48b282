package controllers

import (
	stderrors "errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/gonzalo-olmedo/comicstore/common/errors"
	"github.com/gonzalo-olmedo/comicstore/middleware"
	"github.com/gonzalo-olmedo/comicstore/models"
)

// fail hands err to the error middleware and stops the handler chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// parseIDParam reads a UUID path parameter, reporting a 400 when malformed.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		fail(c, apperrors.Validation("Validation error", map[string]string{name: "invalid UUID format"}))
		return uuid.Nil, false
	}
	return id, true
}

// currentUserID reads the caller set by the auth middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := middleware.GetUserID(c)
	if err != nil {
		fail(c, apperrors.ErrUnauthorized)
		return uuid.Nil, false
	}
	return id, true
}

// optionalImage returns the "image" file of a multipart request, nil when the
// request is not multipart or carries no file.
func optionalImage(c *gin.Context) (*multipart.FileHeader, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}
	fh, err := c.FormFile("image")
	if err != nil {
		if stderrors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperrors.New(http.StatusBadRequest, "Invalid multipart form", err)
	}
	return fh, nil
}

// buildProductListResponse builds a simple paginated response map
func buildProductListResponse(products []models.Product, total int64, page, perPage int) map[string]interface{} {
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	if products == nil {
		products = []models.Product{}
	}

	return map[string]interface{}{
		"products": products,
		"meta": map[string]interface{}{
			"page":       page,
			"perPage":    perPage,
			"total":      total,
			"totalPages": totalPages,
		},
	}
}
