package handler

import (
	"errors"
	"net/http"

	"authgate/internal/middleware"
	"authgate/internal/models"
	"authgate/internal/store"
	"authgate/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserHandler serves user and privilege administration.
type UserHandler struct {
	Store  *store.Store
	Hasher util.PasswordHasher
	Log    *logrus.Logger
}

func NewUserHandler(s *store.Store, hasher util.PasswordHasher, log *logrus.Logger) *UserHandler {
	return &UserHandler{Store: s, Hasher: hasher, Log: log}
}

func userInfo(u *models.User) gin.H {
	scopes := make([]string, 0, len(u.Privileges))
	for _, p := range u.Privileges {
		scopes = append(scopes, p.Scope)
	}
	return gin.H{
		"id":           u.ID,
		"username":     u.Username,
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"email":        u.Email,
		"is_superuser": u.IsSuperuser,
		"privileges":   scopes,
	}
}

// GetMe returns the user resolved by the gate for this request.
func (h *UserHandler) GetMe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not authenticated")
		return
	}
	util.Success(c, util.Response{"user": userInfo(user)})
}

// ListUsers returns all users. Superuser only (router-guarded).
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.Store.ListUsers(c.Request.Context())
	if err != nil {
		util.Error(c, http.StatusServiceUnavailable, util.CodeStoreErr, "credential store unavailable")
		return
	}
	infos := make([]gin.H, 0, len(users))
	for i := range users {
		infos = append(infos, userInfo(&users[i]))
	}
	util.Success(c, util.Response{"users": infos})
}

type updateUserReq struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Password  *string `json:"password" binding:"omitempty,min=8,max=72"`
}

// UpdateUser updates profile fields of the named user. The router decides
// who may reach this (any authenticated user when self-registration is on,
// superuser only otherwise, mirroring the registration policy).
func (h *UserHandler) UpdateUser(c *gin.Context) {
	username := c.Param("username")

	var req updateUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	user, err := h.Store.UserByName(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "user not found")
			return
		}
		util.Error(c, http.StatusServiceUnavailable, util.CodeStoreErr, "credential store unavailable")
		return
	}

	// non-superusers may only touch their own profile
	actor := middleware.CurrentUser(c)
	if actor != nil && !actor.IsSuperuser && actor.ID != user.ID {
		util.Error(c, http.StatusForbidden, util.CodeForbidden, "cannot update another user")
		return
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := h.Hasher.Hash(*req.Password)
		if err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "hash password failed")
			return
		}
		user.PasswordHash = hash
	}

	if err := h.Store.UpdateUser(c.Request.Context(), user); err != nil {
		util.Error(c, http.StatusServiceUnavailable, util.CodeStoreErr, "credential store unavailable")
		return
	}
	util.Success(c, util.Response{"user": userInfo(user)})
}

// DeleteUser removes the named user and, via cascade, their privileges and
// session. Superuser only (router-guarded).
func (h *UserHandler) DeleteUser(c *gin.Context) {
	username := c.Param("username")

	user, err := h.Store.UserByName(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "user not found")
			return
		}
		util.Error(c, http.StatusServiceUnavailable, util.CodeStoreErr, "credential store unavailable")
		return
	}

	if err := h.Store.DeleteUser(c.Request.Context(), user.ID); err != nil {
		util.Error(c, http.StatusServiceUnavailable, util.CodeStoreErr, "credential store unavailable")
		return
	}
	h.Log.WithField("user", user.Username).Info("user deleted")
	util.Success(c, util.Response{"message": "user deleted"})
}

type grantReq struct {
	Scope string `json:"scope" binding:"required,max=64"`
}

// GrantPrivilege adds a scope to the named user. Superuser only.
func (h *UserHandler) GrantPrivilege(c *gin.Context) {
	username := c.Param("username")

	var req grantReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	user, err := h.Store.UserByName(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "user not found")
			return
		}
		util.Error(c, http.StatusServiceUnavailable, util.CodeStoreErr, "credential store unavailable")
		return
	}

	if err := h.Store.GrantPrivilege(c.Request.Context(), user.ID, req.Scope); err != nil {
		util.Error(c, http.StatusServiceUnavailable, util.CodeStoreErr, "credential store unavailable")
		return
	}
	util.Success(c, util.Response{"message": "privilege granted"})
}

// RevokePrivilege removes a scope from the named user. Superuser only.
func (h *UserHandler) RevokePrivilege(c *gin.Context) {
	username := c.Param("username")
	scope := c.Param("scope")

	user, err := h.Store.UserByName(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "user not found")
			return
		}
		util.Error(c, http.StatusServiceUnavailable, util.CodeStoreErr, "credential store unavailable")
		return
	}

	if err := h.Store.RevokePrivilege(c.Request.Context(), user.ID, scope); err != nil {
		util.Error(c, http.StatusServiceUnavailable, util.CodeStoreErr, "credential store unavailable")
		return
	}
	util.Success(c, util.Response{"message": "privilege revoked"})
}
