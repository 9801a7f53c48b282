package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gonzalo-olmedo/comicstore/services"
)

// UserController serves the caller's own profile.
type UserController struct {
	userService services.UserService
}

func NewUserController(svc services.UserService) *UserController {
	return &UserController{userService: svc}
}

// GetProfile handles GET /user/
func (uc *UserController) GetProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	user, err := uc.userService.GetProfile(ctx.Request.Context(), userID)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /user/ and PUT /user/update/. The body may be
// JSON or a multipart form carrying an optional "image" file.
func (uc *UserController) UpdateProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req services.UpdateProfileInput
	if err := ctx.ShouldBind(&req); err != nil {
		fail(ctx, bindingError(err))
		return
	}

	image, err := optionalImage(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	user, err := uc.userService.UpdateProfile(ctx.Request.Context(), userID, req, image)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    user,
	})
}
