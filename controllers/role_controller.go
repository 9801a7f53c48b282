package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gonzalo-olmedo/comicstore/services"
)

// RoleController exposes role management to administrators.
type RoleController struct {
	roleService services.RoleService
}

func NewRoleController(svc services.RoleService) *RoleController {
	return &RoleController{roleService: svc}
}

// ListRoles handles GET /roles/
func (rc *RoleController) ListRoles(ctx *gin.Context) {
	roles, err := rc.roleService.List(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, roles)
}

// GetRole handles GET /roles/:id
func (rc *RoleController) GetRole(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	role, err := rc.roleService.Get(ctx.Request.Context(), id)
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, role)
}

// CreateRole handles POST /roles/
func (rc *RoleController) CreateRole(ctx *gin.Context) {
	var req services.RoleInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, bindingError(err))
		return
	}
	role, err := rc.roleService.Create(ctx.Request.Context(), req)
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, role)
}

// UpdateRole handles PUT /roles/:id
func (rc *RoleController) UpdateRole(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req services.RoleInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, bindingError(err))
		return
	}
	role, err := rc.roleService.Update(ctx.Request.Context(), id, req)
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, role)
}

// DeleteRole handles DELETE /roles/:id
func (rc *RoleController) DeleteRole(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := rc.roleService.Delete(ctx.Request.Context(), id); err != nil {
		fail(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
