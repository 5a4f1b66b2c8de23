package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/apperr"
	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"
)

type AuthHandler struct {
	authService service.AuthService
	jwtSecret   []byte
}

func NewAuthHandler(authService service.AuthService, jwtSecret []byte) *AuthHandler {
	return &AuthHandler{authService: authService, jwtSecret: jwtSecret}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.POST("/verify-code", h.VerifyCode)
		api.GET("/session", middleware.RequireAuth(h.jwtSecret), h.Session)
		api.POST("/logout", middleware.RequireAuth(h.jwtSecret), h.Logout)
	}
}

// Register creates a user and logs it in immediately
// @Summary      Register a user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "Registration payload"
// @Success      201      {object}  response.Response{data=service.AuthResult}
// @Router       /api/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "All fields are required"))
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.SuccessMessage(http.StatusCreated, "User registered and logged in", result))
}

type loginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	NationalID string `json:"national_id" binding:"required"`
}

type loginResponse struct {
	Code string `json:"code"`
}

// Login starts a login and returns the one-time code for popup display.
// Out-of-band code delivery is deliberately out of scope.
// @Summary      Start a login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      loginRequest  true  "Login credentials"
// @Success      200      {object}  response.Response{data=loginResponse}
// @Router       /api/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Email and national id are required"))
		return
	}

	code, _, err := h.authService.Login(c.Request.Context(), req.Email, req.NationalID)
	if errors.Is(err, apperr.ErrNotFound) {
		// Don't leak which half of the credential pair was wrong.
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid email or national id"))
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage(http.StatusOK, "Verification code generated", loginResponse{Code: code}))
}

type verifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// VerifyCode completes a login
// @Summary      Verify the one-time code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      verifyRequest  true  "Verification payload"
// @Success      200      {object}  response.Response{data=service.AuthResult}
// @Router       /api/verify-code [post]
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Email and code are required"))
		return
	}

	result, err := h.authService.VerifyCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired code"))
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage(http.StatusOK, "Code verified", result))
}

// Session returns the authenticated user
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.User}
// @Router       /api/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	user, err := h.authService.Session(c.Request.Context(), middleware.Principal(c).Identity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// Logout clears the session flag
// @Summary      Log out
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /api/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.Principal(c).Identity); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage(http.StatusOK, "Session closed", nil))
}
