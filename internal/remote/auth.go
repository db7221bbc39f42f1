package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/noah-isme/xpro-storefront/internal/authflow"
)

// AuthStep names one step of the login or registration pipeline.
type AuthStep string

const (
	StepLoginEmail      AuthStep = "login/email"
	StepLoginPassword   AuthStep = "login/password"
	StepRegisterEmail   AuthStep = "register/email"
	StepRegisterConfirm AuthStep = "register/confirm"
	StepRegisterDetails AuthStep = "register/details"
	StepRegisterExtra   AuthStep = "register/extra"
)

// AuthSteps lists every pipeline step.
var AuthSteps = []AuthStep{
	StepLoginEmail,
	StepLoginPassword,
	StepRegisterEmail,
	StepRegisterConfirm,
	StepRegisterDetails,
	StepRegisterExtra,
}

// Flow reports which pipeline the step belongs to.
func (s AuthStep) Flow() authflow.Flow {
	switch s {
	case StepLoginEmail, StepLoginPassword:
		return authflow.FlowLogin
	default:
		return authflow.FlowRegister
	}
}

func (s AuthStep) path() string { return "/api/" + string(s) + "/" }

// Authenticate posts body to the step's endpoint. The API answers
// validation failures with 400 and a full auth body; those are returned as a
// Response so the state machine can route them. Only bodies without a
// state are reported as *RequestError.
func (c *Client) Authenticate(ctx context.Context, sess *Session, step AuthStep, body any) (authflow.Response, error) {
	endpoint := "auth." + string(step)
	payload, err := withFlow(body, step.Flow())
	if err != nil {
		return authflow.Response{}, fmt.Errorf("remote: encode %s: %w", endpoint, err)
	}
	status, raw, err := c.send(ctx, sess, endpoint, http.MethodPost, step.path(), nil, payload)
	if err != nil {
		return authflow.Response{}, err
	}
	if status >= 200 && status < 300 || status == http.StatusBadRequest && hasState(raw) {
		var resp authflow.Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return authflow.Response{}, fmt.Errorf("remote: decode %s: %w", endpoint, err)
		}
		if resp.Flow == "" {
			resp.Flow = step.Flow()
		}
		return resp, nil
	}
	return authflow.Response{}, parseRequestError(endpoint, status, raw)
}

// withFlow adds the "flow" field the pipeline expects unless body sets it.
func withFlow(body any, flow authflow.Flow) (map[string]any, error) {
	out := map[string]any{}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	}
	if _, ok := out["flow"]; !ok {
		out["flow"] = flow
	}
	return out, nil
}

func hasState(raw []byte) bool {
	var probe struct {
		State *string `json:"state"`
	}
	return json.Unmarshal(raw, &probe) == nil && probe.State != nil
}

// PasswordReset asks the API to email a reset link to email.
func (c *Client) PasswordReset(ctx context.Context, sess *Session, email string) error {
	body := map[string]string{"email": email}
	return c.call(ctx, sess, "auth.password_reset", http.MethodPost, "/api/password_reset/", nil, body, nil)
}

// PasswordResetConfirm sets a new password using the uid and token from the
// reset link.
func (c *Client) PasswordResetConfirm(ctx context.Context, sess *Session, body any) error {
	return c.call(ctx, sess, "auth.password_reset_confirm", http.MethodPost, "/api/password_reset/confirm/", nil, body, nil)
}
