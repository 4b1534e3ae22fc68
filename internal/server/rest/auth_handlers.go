package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/demomiru/minicrm/internal/common"
	"github.com/demomiru/minicrm/internal/server/auth"
	"github.com/demomiru/minicrm/internal/server/models"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

const minPasswordLength = 6

func validateCredentials(req credentialsRequest) error {
	if strings.TrimSpace(req.Login) == "" {
		return common.ErrInvalidLoginForm
	}
	if len(req.Password) < minPasswordLength {
		return common.ErrInvalidPasswordForm
	}
	return nil
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := validateCredentials(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	user := &models.User{Login: req.Login, PasswordHash: string(hash)}
	if _, err := s.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, common.ErrLoginAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "login already exists"})
			return
		}
		s.logger.Error(c.Request.Context(), "error creating user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusCreated)
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := s.users.GetUserByLogin(c.Request.Context(), req.Login)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		s.logger.Error(c.Request.Context(), "error loading user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(user.ID, s.secret, s.validity)
	if err != nil {
		s.logger.Error(c.Request.Context(), "error generating token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{UserID: user.ID, Token: token})
}
