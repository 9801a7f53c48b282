package controllers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/gonzalo-olmedo/comicstore/common/errors"
	"github.com/gonzalo-olmedo/comicstore/services"
)

// Validation constants
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	MaxPageNumber   = 1000000
)

// ProductFilters holds the parsed list filters for products.
type ProductFilters struct {
	CategoryID *uuid.UUID
	Search     string
	InStock    *bool
}

// productForm is the multipart (or urlencoded) shape of a product write.
// Numbers arrive as text and are parsed after the tag rules pass.
type productForm struct {
	Name        *string `form:"name" validate:"omitempty,max=100"`
	Description *string `form:"description" validate:"omitempty,max=5000"`
	Price       *string `form:"price" validate:"omitempty,numeric"`
	Discount    *string `form:"discount" validate:"omitempty,numeric"`
	Stock       *string `form:"stock" validate:"omitempty,numeric"`
	Pages       *string `form:"pages" validate:"omitempty,numeric"`
	Format      *string `form:"format" validate:"omitempty,max=45"`
	Weight      *string `form:"weight" validate:"omitempty,numeric"`
	ISBN        *string `form:"isbn" validate:"omitempty,max=45"`
	Category    *string `form:"category" validate:"omitempty,uuid"`
	Rating      *string `form:"rating" validate:"omitempty,numeric"`
}

// productJSON is the JSON shape of a product write.
type productJSON struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Discount    *int             `json:"discount"`
	Stock       *int             `json:"stock"`
	Pages       *int             `json:"pages"`
	Format      *string          `json:"format"`
	Weight      *decimal.Decimal `json:"weight"`
	ISBN        *string          `json:"isbn"`
	Category    *uuid.UUID       `json:"category"`
	Rating      *decimal.Decimal `json:"rating"`
}

var registerTagNames sync.Once

// RequestValidator handles all input validation
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(fieldName)

	// gin's own binding validator reports the same wire names
	registerTagNames.Do(func() {
		if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
			engine.RegisterTagNameFunc(fieldName)
		}
	})

	return &RequestValidator{validate: v}
}

// fieldName reports a struct field by its json or form name.
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// ParsePagination validates and parses the page and page size parameters.
// sizeParam is "perPage" for the catalog and "limit" for order history.
func (rv *RequestValidator) ParsePagination(c *gin.Context, sizeParam string) (int, int, error) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 0, 0, apperrors.Validation("Validation error", map[string]string{"page": "must be a positive integer"})
	}
	if page > MaxPageNumber {
		page = MaxPageNumber
	}

	size, err := strconv.Atoi(c.DefaultQuery(sizeParam, strconv.Itoa(DefaultPageSize)))
	if err != nil || size < 1 {
		return 0, 0, apperrors.Validation("Validation error", map[string]string{sizeParam: "must be a positive integer"})
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	return page, size, nil
}

// ParseProductFilters reads the category, search and in_stock query filters.
func (rv *RequestValidator) ParseProductFilters(c *gin.Context) (*ProductFilters, error) {
	filters := &ProductFilters{Search: strings.TrimSpace(c.Query("search"))}

	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperrors.Validation("Validation error", map[string]string{"category": "invalid category ID format"})
		}
		filters.CategoryID = &id
	}

	if raw := strings.TrimSpace(c.Query("in_stock")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, apperrors.Validation("Validation error", map[string]string{"in_stock": "invalid boolean value"})
		}
		filters.InStock = &v
	}

	return filters, nil
}

// ParseProductInput reads a product write from a JSON body or a form. Only
// fields present in the request are set.
func (rv *RequestValidator) ParseProductInput(c *gin.Context) (services.ProductInput, error) {
	if c.ContentType() == binding.MIMEJSON {
		var body productJSON
		if err := c.ShouldBindJSON(&body); err != nil {
			return services.ProductInput{}, bindingError(err)
		}
		return services.ProductInput{
			Name:        body.Name,
			Description: body.Description,
			Price:       body.Price,
			Discount:    body.Discount,
			Stock:       body.Stock,
			Pages:       body.Pages,
			Format:      body.Format,
			Weight:      body.Weight,
			ISBN:        body.ISBN,
			CategoryID:  body.Category,
			Rating:      body.Rating,
		}, nil
	}

	var form productForm
	if err := c.ShouldBind(&form); err != nil {
		return services.ProductInput{}, bindingError(err)
	}
	if err := rv.validate.Struct(&form); err != nil {
		return services.ProductInput{}, bindingError(err)
	}

	fields := map[string]string{}
	in := services.ProductInput{
		Name:        form.Name,
		Description: form.Description,
		Format:      form.Format,
		ISBN:        form.ISBN,
		Price:       parseDecimal(form.Price, "price", fields),
		Weight:      parseDecimal(form.Weight, "weight", fields),
		Rating:      parseDecimal(form.Rating, "rating", fields),
		Discount:    parseInt(form.Discount, "discount", fields),
		Stock:       parseInt(form.Stock, "stock", fields),
		Pages:       parseInt(form.Pages, "pages", fields),
	}
	if form.Category != nil {
		if id, err := uuid.Parse(strings.TrimSpace(*form.Category)); err == nil {
			in.CategoryID = &id
		} else {
			fields["category"] = "invalid category ID format"
		}
	}
	if len(fields) > 0 {
		return services.ProductInput{}, apperrors.Validation("Validation error", fields)
	}
	return in, nil
}

func parseDecimal(raw *string, field string, fields map[string]string) *decimal.Decimal {
	if raw == nil {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		fields[field] = "must be a decimal number"
		return nil
	}
	return &d
}

func parseInt(raw *string, field string, fields map[string]string) *int {
	if raw == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*raw))
	if err != nil {
		fields[field] = "must be a whole number"
		return nil
	}
	return &n
}

// bindingError turns a gin binding or validator failure into a 400 with
// per field messages. Anything else is reported as a malformed body.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		return apperrors.Validation("Validation error", formatValidationErrors(verrs))
	}
	return apperrors.New(http.StatusBadRequest, "Invalid request body", err)
}

func formatValidationErrors(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Namespace()
		if i := strings.Index(name, "."); i >= 0 {
			name = name[i+1:]
		}
		fields[name] = ruleMessage(fe)
	}
	return fields
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("ensure this value is at least %s", fe.Param())
	case "numeric":
		return "must be a number"
	case "uuid":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
