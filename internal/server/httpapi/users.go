package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/lango/internal/server/users"
)

// UserService is the principal lifecycle used by the user endpoints.
type UserService interface {
	Signup(ctx context.Context, req users.SignupRequest) (*users.Session, error)
	Login(ctx context.Context, req users.LoginRequest) (*users.Session, error)
	Get(ctx context.Context, id string) (*users.User, error)
	Edit(ctx context.Context, id string, req users.EditRequest) (*users.User, error)
	Delete(ctx context.Context, id string) error
}

type signupRequest struct {
	Username          string `json:"username"`
	Password          string `json:"password"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	PreferredLanguage string `json:"preferred_language"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type editUserRequest struct {
	Username          *string `json:"username"`
	Password          *string `json:"password"`
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	PreferredLanguage *string `json:"preferred_language"`
}

type sessionResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
	Token   string `json:"token"`
}

type profileResponse struct {
	UserID            string `json:"user_id"`
	Username          string `json:"username"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	PreferredLanguage string `json:"preferred_language"`
	CreatedAt         int64  `json:"created_at"`
	LastLoginAt       int64  `json:"last_login_at,omitempty"`
}

type editUserResponse struct {
	Message string          `json:"message"`
	User    profileResponse `json:"user"`
}

func profileOf(u *users.User) profileResponse {
	p := profileResponse{
		UserID:            u.ID,
		Username:          u.Username,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		PreferredLanguage: u.PreferredLanguage,
		CreatedAt:         u.CreatedAt.Unix(),
	}
	if !u.LastLoginAt.IsZero() {
		p.LastLoginAt = u.LastLoginAt.Unix()
	}
	return p
}

func (h *handlers) signup(ctx context.Context, req Request) Response {
	var in signupRequest
	if err := decode(req, &in); err != nil {
		return h.fail(ctx, err)
	}
	sess, err := h.users.Signup(ctx, users.SignupRequest(in))
	if err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusCreated, sessionResponse{
		Message: "User created successfully",
		UserID:  sess.UserID,
		Token:   sess.Token,
	})
}

func (h *handlers) login(ctx context.Context, req Request) Response {
	var in loginRequest
	if err := decode(req, &in); err != nil {
		return h.fail(ctx, err)
	}
	sess, err := h.users.Login(ctx, users.LoginRequest(in))
	if err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusOK, sessionResponse{
		Message: "Login Successful",
		UserID:  sess.UserID,
		Token:   sess.Token,
	})
}

func (h *handlers) getUser(ctx context.Context, req Request) Response {
	u, err := h.users.Get(ctx, req.Param("user_id"))
	if err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusOK, profileOf(u))
}

func (h *handlers) editUser(ctx context.Context, req Request) Response {
	var in editUserRequest
	if err := decode(req, &in); err != nil {
		return h.fail(ctx, err)
	}
	u, err := h.users.Edit(ctx, req.Param("user_id"), users.EditRequest(in))
	if err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusOK, editUserResponse{Message: "User updated successfully", User: profileOf(u)})
}

func (h *handlers) deleteUser(ctx context.Context, req Request) Response {
	if err := h.users.Delete(ctx, req.Param("user_id")); err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusOK, message{Message: "User deleted successfully"})
}
