package api

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	"github.com/naughtyden-us/naughty-den/pkg/api/router"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/validation"
)

type registeredUser struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IsCreator   bool   `json:"isCreator"`
}

// Login validates the form only. Accounts are handled by the session
// sign-in route.
func (h *Handlers) Login(ctx *fasthttp.RequestCtx) {
	var form validation.LoginForm
	// an unreadable body lands in the 500 envelope, same as any other failure
	if err := json.Unmarshal(ctx.PostBody(), &form); err != nil {
		router.WriteError(ctx, err)
		return
	}
	if err := validation.Login(form).Err(); err != nil {
		router.WriteError(ctx, err)
		return
	}
	logger.Info("login_form_accepted", "email", form.Email)
	router.WriteData(ctx, fasthttp.StatusOK, map[string]any{"message": "Login successful"})
}

func (h *Handlers) Register(ctx *fasthttp.RequestCtx) {
	var form validation.SignupForm
	if err := json.Unmarshal(ctx.PostBody(), &form); err != nil {
		router.WriteError(ctx, err)
		return
	}
	if err := validation.Signup(form).Err(); err != nil {
		router.WriteError(ctx, err)
		return
	}
	logger.Info("register_form_accepted", "email", form.Email, "is_creator", form.IsCreator)
	router.WriteData(ctx, fasthttp.StatusOK, map[string]any{
		"message": "Registration successful",
		"user":    registeredUser{Email: form.Email, DisplayName: form.DisplayName, IsCreator: form.IsCreator},
	})
}
