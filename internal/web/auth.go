package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/xpro-storefront/internal/authflow"
	"github.com/noah-isme/xpro-storefront/internal/common"
	"github.com/noah-isme/xpro-storefront/internal/forms"
	"github.com/noah-isme/xpro-storefront/internal/obs"
	"github.com/noah-isme/xpro-storefront/internal/remote"
)

// AuthAPI is the remote login and registration pipeline.
type AuthAPI interface {
	Authenticate(ctx context.Context, sess *remote.Session, step remote.AuthStep, body any) (authflow.Response, error)
	PasswordReset(ctx context.Context, sess *remote.Session, email string) error
	PasswordResetConfirm(ctx context.Context, sess *remote.Session, body any) error
}

// AuthResult tells the browser what to do after a step. Redirect is empty
// when the step has to be corrected and resubmitted.
type AuthResult struct {
	State        authflow.State    `json:"state"`
	Flow         authflow.Flow     `json:"flow"`
	Redirect     string            `json:"redirect,omitempty"`
	PartialToken string            `json:"partial_token,omitempty"`
	Errors       []string          `json:"errors"`
	FieldErrors  map[string]string `json:"field_errors,omitempty"`
}

// AuthHandler submits auth forms and routes the response.
type AuthHandler struct {
	API    AuthAPI
	Logger zerolog.Logger

	guard forms.Guard
}

// stepForm returns an empty form for step and the field its server errors
// belong to. An empty field means errors are shown above the form.
func stepForm(step remote.AuthStep) (any, string) {
	switch step {
	case remote.StepLoginEmail:
		return &forms.LoginEmail{}, "email"
	case remote.StepLoginPassword:
		return &forms.LoginPassword{}, "password"
	case remote.StepRegisterEmail:
		return &forms.RegisterEmail{}, "email"
	case remote.StepRegisterConfirm:
		return &forms.RegisterConfirm{}, "verification_code"
	case remote.StepRegisterDetails:
		return &forms.RegisterDetails{}, ""
	case remote.StepRegisterExtra:
		return &forms.RegisterExtra{}, ""
	default:
		return nil, ""
	}
}

// Step handles one pipeline step.
func (h *AuthHandler) Step(step remote.AuthStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, field := stepForm(step)
		if form == nil {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "unknown auth step", nil)
			return
		}
		if !decode(w, r, form) {
			return
		}
		ctx := r.Context()
		sess := remote.SessionFrom(ctx)

		var resp authflow.Response
		err := h.guard.Submit(ctx, ownerKey(r, "auth."+string(step.Flow())), form, func(ctx context.Context) error {
			out, err := h.API.Authenticate(ctx, sess, step, form)
			resp = out
			return err
		})
		if err != nil {
			h.writeError(w, step, err)
			return
		}
		result, err := h.route(ctx, step, field, resp)
		if err != nil {
			h.writeError(w, step, err)
			return
		}
		common.JSON(w, http.StatusOK, map[string]any{"data": result})
	}
}

// route runs the state dispatcher. A response that repeats the submitted
// step or reports an error with messages keeps the user on the form; every
// other state navigates to its page.
func (h *AuthHandler) route(ctx context.Context, step remote.AuthStep, field string, resp authflow.Response) (AuthResult, error) {
	result := AuthResult{
		State:        resp.State,
		Flow:         resp.Flow,
		PartialToken: resp.PartialToken,
		Errors:       resp.Errors,
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}

	stay := func(_ context.Context, resp authflow.Response) error {
		if field != "" && len(resp.Errors) > 0 {
			result.FieldErrors = map[string]string{field: resp.Errors[0]}
		}
		return nil
	}
	handlers := authflow.Handlers{}
	if len(resp.Errors) > 0 {
		handlers[authflow.StateError] = stay
		handlers[authflow.State(step)] = stay
	}
	nav := authflow.NavigatorFunc(func(_ context.Context, route authflow.Route) error {
		result.Redirect = route.URL()
		return nil
	})

	label := "navigate"
	if _, inline := handlers[resp.State]; inline {
		label = "inline"
	}
	if err := authflow.Dispatch(ctx, nav, resp, handlers); err != nil {
		obs.Count(obs.AuthDispatchTotal, "unknown", "none")
		return AuthResult{}, err
	}
	obs.Count(obs.AuthDispatchTotal, string(resp.State), label)
	return result, nil
}

// PasswordReset emails a reset link.
func (h *AuthHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var form forms.PasswordReset
	if !decode(w, r, &form) {
		return
	}
	ctx := r.Context()
	sess := remote.SessionFrom(ctx)
	err := h.guard.Submit(ctx, ownerKey(r, "password_reset"), form, func(ctx context.Context) error {
		return h.API.PasswordReset(ctx, sess, form.Email)
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]any{"data": map[string]string{"email": form.Email}})
}

// PasswordResetConfirm sets the new password and sends the user to sign in.
func (h *AuthHandler) PasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var form forms.PasswordResetConfirm
	if !decode(w, r, &form) {
		return
	}
	ctx := r.Context()
	sess := remote.SessionFrom(ctx)
	err := h.guard.Submit(ctx, ownerKey(r, "password_reset_confirm"), form, func(ctx context.Context) error {
		return h.API.PasswordResetConfirm(ctx, sess, form)
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"redirect": authflow.PathLogin}})
}

func (h *AuthHandler) writeError(w http.ResponseWriter, step remote.AuthStep, err error) {
	var unknown *authflow.UnknownStateError
	if errors.As(err, &unknown) {
		h.Logger.Error().Str("step", string(step)).Str("state", unknown.State).Msg("auth_unknown_state")
		common.JSONError(w, http.StatusBadGateway, "UNKNOWN_AUTH_STATE", "unexpected response from the authentication service", nil)
		return
	}
	common.WriteError(w, err)
}

// ownerKey scopes form to the owner resolved by Sessions. Requests that
// bypassed Sessions are keyed by address.
func ownerKey(r *http.Request, form string) string {
	if key, ok := common.FormKey(r.Context(), form); ok {
		return key
	}
	return "ip:" + common.ClientIP(r) + ":" + form
}
