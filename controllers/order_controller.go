package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gonzalo-olmedo/comicstore/services"
)

// OrderController handles checkout and the caller's order history.
type OrderController struct {
	orderService services.OrderService
	validator    *RequestValidator
}

func NewOrderController(svc services.OrderService, validator *RequestValidator) *OrderController {
	return &OrderController{orderService: svc, validator: validator}
}

// PlaceOrder handles POST /orders/create/
func (oc *OrderController) PlaceOrder(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req services.PlaceOrderInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, bindingError(err))
		return
	}

	order, err := oc.orderService.PlaceOrder(ctx.Request.Context(), userID, req)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, order)
}

// GetOrders handles GET /orders/user/
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	page, limit, err := oc.validator.ParsePagination(ctx, "limit")
	if err != nil {
		fail(ctx, err)
		return
	}

	resp, err := oc.orderService.ListUserOrders(ctx.Request.Context(), userID, page, limit)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// GetOrderByID handles GET /orders/user/:id
func (oc *OrderController) GetOrderByID(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	order, err := oc.orderService.GetUserOrder(ctx.Request.Context(), userID, orderID)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, order)
}
