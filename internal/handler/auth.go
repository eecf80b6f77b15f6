package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"authgate/internal/auth"
	"authgate/internal/config"
	"authgate/internal/middleware"
	"authgate/internal/models"
	"authgate/internal/store"
	"authgate/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthHandler serves login, logout and registration.
type AuthHandler struct {
	Store  *store.Store
	Gate   *auth.Gate
	Hasher util.PasswordHasher
	Cfg    config.AuthConfig
	Log    *logrus.Logger
}

func NewAuthHandler(s *store.Store, gate *auth.Gate, hasher util.PasswordHasher, cfg config.AuthConfig, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{Store: s, Gate: gate, Hasher: hasher, Cfg: cfg, Log: log}
}

// usernameRe: 3-64 chars, letters, digits, underscore.
var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,64}$`)

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates username+password and returns a bearer token. The
// client address is taken from the transport, never from the request body,
// and becomes the session binding for this user.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	tokenStr, user, err := h.Gate.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP(), h.Hasher.Verify)
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "incorrect username or password")
			return
		}
		if errors.Is(err, auth.ErrStoreUnavailable) {
			util.Error(c, http.StatusServiceUnavailable, util.CodeStoreErr, "credential store unavailable")
			return
		}
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "login failed")
		return
	}

	h.Log.WithFields(logrus.Fields{"user": user.Username, "client": c.ClientIP()}).Info("login")
	util.Success(c, util.Response{
		"token":      tokenStr,
		"token_type": "Bearer",
	})
}

// Logout revokes the presented bearer token. Always reports success:
// whether the token was valid, already revoked, expired or garbage, the
// net effect "this token will not authenticate again" holds either way.
// Only a store outage is surfaced.
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenStr := middleware.BearerToken(c)
	if tokenStr == "" {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "missing bearer token")
		return
	}

	if err := h.Gate.Logout(c.Request.Context(), tokenStr); err != nil {
		if errors.Is(err, auth.ErrStoreUnavailable) {
			util.Error(c, http.StatusServiceUnavailable, util.CodeStoreErr, "credential store unavailable")
			return
		}
		// malformed or forged token: nothing to revoke
		h.Log.WithError(err).Debug("logout with unusable token")
	}
	util.Success(c, util.Response{"message": "logged out"})
}

type registerReq struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	FirstName   string `json:"first_name" binding:"max=64"`
	LastName    string `json:"last_name" binding:"max=64"`
	Email       string `json:"email" binding:"omitempty,email"`
	IsSuperuser bool   `json:"is_superuser"`
}

// Register creates a new user. With self-registration enabled the endpoint
// is open and is_superuser is forced off; otherwise the router guards it
// behind a superuser, which may set the flag.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if !usernameRe.MatchString(req.Username) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "username must be 3-64 letters, digits or underscores")
		return
	}

	if h.Cfg.AllowSelfRegistration {
		req.IsSuperuser = false
	}

	hash, err := h.Hasher.Hash(req.Password)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "hash password failed")
		return
	}

	user := models.User{
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		IsSuperuser:  req.IsSuperuser,
	}
	if err := h.Store.CreateUser(c.Request.Context(), &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			util.Error(c, http.StatusConflict, util.CodeConflict, "user already exists")
			return
		}
		util.Error(c, http.StatusServiceUnavailable, util.CodeStoreErr, "credential store unavailable")
		return
	}

	h.Log.WithField("user", user.Username).Info("user registered")
	util.Success(c, util.Response{
		"message": "user registered",
		"user":    userInfo(&user),
	})
}
