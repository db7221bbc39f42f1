// Package authflow routes the steps of the server-driven login and
// registration flows.
package authflow

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// State is the next step the remote auth API asks the client to take.
type State string

const (
	StateSuccess             State = "success"
	StateInactive            State = "inactive"
	StateError               State = "error"
	StateLoginEmail          State = "login/email"
	StateLoginPassword       State = "login/password"
	StateLoginProvider       State = "login/provider"
	StateRegisterEmail       State = "register/email"
	StateRegisterConfirmSent State = "register/confirm-sent"
	StateRegisterConfirm     State = "register/confirm"
	StateRegisterDetails     State = "register/details"
	StateRegisterExtra       State = "register/extra"
)

// States lists every known state.
var States = []State{
	StateSuccess,
	StateInactive,
	StateError,
	StateLoginEmail,
	StateLoginPassword,
	StateLoginProvider,
	StateRegisterEmail,
	StateRegisterConfirmSent,
	StateRegisterConfirm,
	StateRegisterDetails,
	StateRegisterExtra,
}

// UnknownStateError is returned for a state value outside the known set.
type UnknownStateError struct {
	State string
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("authflow: unknown auth state %q", e.State)
}

// ParseState validates raw against the known states.
func ParseState(raw string) (State, error) {
	for _, s := range States {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", &UnknownStateError{State: raw}
}

// Terminal reports whether the flow ends at s.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateError || s == StateInactive
}

// UnmarshalJSON rejects unknown states.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseState(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Flow identifies which multi-step flow a response belongs to.
type Flow string

const (
	FlowRegister Flow = "register"
	FlowLogin    Flow = "login"
)

// Response is one step of a multi-step auth flow. PartialToken threads the
// in-progress flow between steps without a full login.
type Response struct {
	PartialToken string         `json:"partial_token,omitempty"`
	Flow         Flow           `json:"flow"`
	State        State          `json:"state"`
	Errors       []string       `json:"errors"`
	RedirectURL  string         `json:"redirect_url,omitempty"`
	ExtraData    map[string]any `json:"extra_data,omitempty"`
}

// Route is a client-side destination.
type Route struct {
	Path         string `json:"path"`
	PartialToken string `json:"partial_token,omitempty"`
}

// URL renders the route with the partial token as a query parameter.
func (r Route) URL() string {
	if r.PartialToken == "" {
		return r.Path
	}
	return r.Path + "?" + url.Values{"partial_token": {r.PartialToken}}.Encode()
}

// Frontend paths for each step.
const (
	PathLogin               = "/signin/"
	PathLoginPassword       = "/signin/password/"
	PathLoginProvider       = "/signin/provider/"
	PathRegister            = "/create-account/"
	PathRegisterConfirmSent = "/create-account/confirm-sent/"
	PathRegisterConfirm     = "/create-account/confirm/"
	PathRegisterDetails     = "/create-account/details/"
	PathRegisterExtra       = "/create-account/extra/"
	PathDashboard           = "/dashboard/"
	PathInactive            = "/account-inactive/"
	PathError               = "/error/"
)

// DefaultRoute maps a response to the page for its state.
func DefaultRoute(resp Response) (Route, error) {
	route := Route{PartialToken: resp.PartialToken}
	switch resp.State {
	case StateSuccess:
		route.PartialToken = ""
		route.Path = PathDashboard
		if resp.RedirectURL != "" {
			route.Path = resp.RedirectURL
		}
	case StateInactive:
		route.PartialToken = ""
		route.Path = PathInactive
	case StateError:
		route.PartialToken = ""
		route.Path = PathError
	case StateLoginEmail:
		route.Path = PathLogin
	case StateLoginPassword:
		route.Path = PathLoginPassword
	case StateLoginProvider:
		route.Path = PathLoginProvider
	case StateRegisterEmail:
		route.Path = PathRegister
	case StateRegisterConfirmSent:
		route.Path = PathRegisterConfirmSent
	case StateRegisterConfirm:
		route.Path = PathRegisterConfirm
	case StateRegisterDetails:
		route.Path = PathRegisterDetails
	case StateRegisterExtra:
		route.Path = PathRegisterExtra
	default:
		return Route{}, &UnknownStateError{State: string(resp.State)}
	}
	return route, nil
}
