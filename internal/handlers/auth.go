package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/services"
	"github.com/yungbote/recall-backend/internal/types"
)

type AuthHandler struct {
	log          *logger.Logger
	auth         services.AuthService
	cookieSecure bool
}

func NewAuthHandler(log *logger.Logger, auth services.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		log:          log.With("handler", "AuthHandler"),
		auth:         auth,
		cookieSecure: cookieSecure,
	}
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, token, err := h.auth.RegisterUser(c.Request.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
		h.log.Warn("Registration failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.setAuthCookie(c, token)
	c.JSON(http.StatusCreated, gin.H{"user": publicUser(user)})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, token, err := h.auth.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		h.log.Error("Login failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	h.setAuthCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"user": publicUser(user)})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", h.cookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *AuthHandler) setAuthCookie(c *gin.Context, token string) {
	maxAge := int(h.auth.TokenTTL().Seconds())
	c.SetCookie("token", token, maxAge, "/", "", h.cookieSecure, true)
}

func publicUser(u *types.User) gin.H {
	return gin.H{
		"id":        u.ID.String(),
		"email":     u.Email,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
	}
}
