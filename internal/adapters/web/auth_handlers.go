package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/floroz/commerce/internal/domain/users"
)

func (h *Handler) loginForm(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{"Next": c.Query("next")})
}

// login handles POST /login
func (h *Handler) login(c *gin.Context) {
	next := c.PostForm("next")

	session, err := h.users.Login(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			h.render(c, http.StatusOK, "login.html", gin.H{
				"Next":    next,
				"Message": "Invalid username and/or password.",
			})
			return
		}
		h.serverError(c, "login failed", err)
		return
	}

	h.setSessionCookie(c, session)
	c.Redirect(http.StatusSeeOther, safeRedirect(next))
}

// logout handles GET /logout
func (h *Handler) logout(c *gin.Context) {
	if token, err := c.Cookie(sessionCookie); err == nil && token != "" {
		if err := h.users.Logout(c.Request.Context(), token); err != nil {
			h.logger.Error("failed to revoke session", "error", err)
		}
	}
	h.clearSessionCookie(c)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) registerForm(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", nil)
}

// register handles POST /register and signs the new user in.
func (h *Handler) register(c *gin.Context) {
	user, err := h.users.Register(c.Request.Context(), users.RegisterCommand{
		Username:     c.PostForm("username"),
		Email:        c.PostForm("email"),
		Password:     c.PostForm("password"),
		Confirmation: c.PostForm("confirmation"),
	})
	if err != nil {
		var message string
		switch {
		case errors.Is(err, users.ErrPasswordMismatch):
			message = "Passwords must match."
		case errors.Is(err, users.ErrUsernameTaken):
			message = "Username already taken."
		case errors.Is(err, users.ErrInvalidInput):
			message = upperFirst(err.Error())
		default:
			h.serverError(c, "registration failed", err)
			return
		}
		h.render(c, http.StatusOK, "register.html", gin.H{"Message": message})
		return
	}

	session, err := h.users.StartSession(user)
	if err != nil {
		h.serverError(c, "failed to start session", err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	h.setSessionCookie(c, session)
	c.Redirect(http.StatusSeeOther, "/")
}
