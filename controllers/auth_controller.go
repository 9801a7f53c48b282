package controllers

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gonzalo-olmedo/comicstore/services"
)

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// LogoutRequest optionally names the refresh token to revoke. Without one
// every session of the caller is ended.
type LogoutRequest struct {
	Refresh string `json:"refresh"`
}

type VerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

// AuthController handles registration, login and token lifecycle.
type AuthController struct {
	authService services.AuthService
}

func NewAuthController(svc services.AuthService) *AuthController {
	return &AuthController{authService: svc}
}

// Register handles POST /register/
func (ac *AuthController) Register(ctx *gin.Context) {
	var req services.RegisterInput
	if err := ctx.ShouldBind(&req); err != nil {
		fail(ctx, bindingError(err))
		return
	}

	user, err := ac.authService.Register(ctx.Request.Context(), req)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"user":    user,
	})
}

// Login handles POST /login/
func (ac *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBind(&req); err != nil {
		fail(ctx, bindingError(err))
		return
	}

	result, err := ac.authService.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token":         result.Tokens.AccessToken,
		"refresh_token": result.Tokens.RefreshToken,
		"user":          result.User,
		"message":       "Login successful",
	})
}

// Refresh handles POST /token/refresh/
func (ac *AuthController) Refresh(ctx *gin.Context) {
	var req RefreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, bindingError(err))
		return
	}

	tokens, err := ac.authService.Refresh(ctx.Request.Context(), req.Refresh)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, tokens)
}

// Logout handles POST /logout/
func (ac *AuthController) Logout(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req LogoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !stderrors.Is(err, io.EOF) {
		fail(ctx, bindingError(err))
		return
	}

	if err := ac.authService.Logout(ctx.Request.Context(), userID, req.Refresh); err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Verify handles POST /api/token/verify/
func (ac *AuthController) Verify(ctx *gin.Context) {
	var req VerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, bindingError(err))
		return
	}

	if err := ac.authService.VerifyToken(req.Token); err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"valid": true})
}
