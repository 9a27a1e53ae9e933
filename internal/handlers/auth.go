package handlers

import (
	"errors"
	"net/http"
	"strings"

	"grc-isms/internal/apperr"
	"grc-isms/internal/auth"
	"grc-isms/internal/middleware"
	"grc-isms/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerInput struct {
	FirstName  string `json:"firstName" validate:"required,min=2,max=100"`
	LastName   string `json:"lastName" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	Department string `json:"department" validate:"max=100"`
}

type authResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

// startSession issues a token and stores it in the cookie session for browser clients.
func (h *Handlers) startSession(c *gin.Context, u *models.User) (string, error) {
	token, err := h.tokens.Issue(u)
	if err != nil {
		return "", err
	}
	sess := sessions.Default(c)
	sess.Set(middleware.SessionToken, token)
	if err := sess.Save(); err != nil {
		return "", err
	}
	return token, nil
}

// Register creates a regular user account. Roles are granted by an admin
// afterwards.
func (h *Handlers) Register(c *gin.Context) {
	var in registerInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "User", err)
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(in.Email))
	_, err := h.st.Users().GetByEmail(ctx, email)
	switch {
	case err == nil:
		c.JSON(http.StatusConflict, gin.H{"message": "User already exists with this email"})
		return
	case !errors.Is(err, apperr.ErrNotFound):
		h.fail(c, "User", err)
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	u := &models.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Department:   in.Department,
		IsActive:     true,
	}
	if err := h.st.Users().Create(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"message": "User already exists with this email"})
			return
		}
		h.fail(c, "User", err)
		return
	}
	middleware.SetNewUser(c, u)
	c.Set(middleware.ResourceIDKey, formatID(u.ID))

	token, err := h.startSession(c, u)
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	h.log.Info("user registered", zap.Uint("user_id", u.ID), zap.String("email", u.Email))
	c.JSON(http.StatusCreated, authResponse{Message: "User registered successfully", Token: token, User: u})
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handlers) Login(c *gin.Context) {
	var in loginInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "User", err)
		return
	}

	ctx := c.Request.Context()
	u, err := h.st.Users().GetByEmail(ctx, strings.TrimSpace(in.Email))
	if errors.Is(err, apperr.ErrNotFound) {
		h.journal.Security(c, models.EventAuthFailed, "Login attempt with unknown email: "+in.Email, nil)
		message(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		h.fail(c, "User", err)
		return
	}

	if u.Locked() {
		h.journal.Security(c, models.EventAccountLocked, "Login attempt on locked account", &u.ID)
		message(c, http.StatusLocked, "Account is locked due to too many failed login attempts")
		return
	}
	if !u.IsActive {
		h.journal.Security(c, models.EventAuthFailed, "Login attempt on deactivated account", &u.ID)
		message(c, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		attempts, err := h.st.Users().IncrementFailedLogins(ctx, u.ID)
		if err != nil {
			h.fail(c, "User", err)
			return
		}
		if attempts >= models.MaxFailedLogins {
			h.journal.Security(c, models.EventAccountLocked, "Account locked after too many failed attempts", &u.ID)
			h.log.Warn("account locked", zap.Uint("user_id", u.ID), zap.String("ip", c.ClientIP()))
		} else {
			h.journal.Security(c, models.EventAuthFailed, "Invalid password", &u.ID)
		}
		message(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	u, err = h.st.Users().RecordLogin(ctx, u.ID, h.now().UTC(), c.ClientIP())
	if err != nil {
		h.fail(c, "User", err)
		return
	}

	token, err := h.startSession(c, u)
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	h.journal.Security(c, models.EventLoginSuccess, "User logged in", &u.ID)
	c.JSON(http.StatusOK, authResponse{Message: "Login successful", Token: token, User: u})
}

func (h *Handlers) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	if err := sess.Save(); err != nil {
		h.log.Warn("clear session", zap.Error(err))
	}
	message(c, http.StatusOK, "Logged out successfully")
}

func (h *Handlers) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

type profileInput struct {
	FirstName       string `json:"firstName" validate:"required,min=2,max=100"`
	LastName        string `json:"lastName" validate:"required,min=2,max=100"`
	Department      string `json:"department" validate:"max=100"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"omitempty,min=6,max=72"`
}

func (h *Handlers) UpdateProfile(c *gin.Context) {
	var in profileInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "User", err)
		return
	}

	current := middleware.CurrentUser(c)
	p := models.Profile{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Department: in.Department,
	}

	if in.NewPassword != "" {
		if !auth.CheckPassword(current.PasswordHash, in.CurrentPassword) {
			h.fail(c, "User", apperr.Invalid("currentPassword", "is incorrect"))
			return
		}
		hash, err := auth.HashPassword(in.NewPassword)
		if err != nil {
			h.fail(c, "User", err)
			return
		}
		p.PasswordHash = hash
	}

	u, err := h.st.Users().UpdateProfile(c.Request.Context(), current.ID, p)
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	c.JSON(http.StatusOK, u)
}
