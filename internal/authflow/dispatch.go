package authflow

import (
	"context"
	"errors"
)

// Navigator performs a client-side navigation.
type Navigator interface {
	Navigate(ctx context.Context, route Route) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, route Route) error

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(ctx context.Context, route Route) error { return f(ctx, route) }

// Handler reacts to a single auth state, e.g. by populating field errors or
// showing a notification.
type Handler func(ctx context.Context, resp Response) error

// Handlers overrides the default navigation per state.
type Handlers map[State]Handler

// Dispatch runs exactly one of the handler registered for resp.State or the
// default navigation for it. An unknown state runs nothing and returns an
// *UnknownStateError.
func Dispatch(ctx context.Context, nav Navigator, resp Response, handlers Handlers) error {
	if _, err := ParseState(string(resp.State)); err != nil {
		return err
	}
	if h, ok := handlers[resp.State]; ok && h != nil {
		return h(ctx, resp)
	}
	if nav == nil {
		return errors.New("authflow: navigator not configured")
	}
	route, err := DefaultRoute(resp)
	if err != nil {
		return err
	}
	return nav.Navigate(ctx, route)
}

// Visitor handles every state explicitly. Implementations fail to compile
// when a state method is missing, unlike a Handlers map.
type Visitor interface {
	Success(ctx context.Context, resp Response) error
	Inactive(ctx context.Context, resp Response) error
	Error(ctx context.Context, resp Response) error
	LoginEmail(ctx context.Context, resp Response) error
	LoginPassword(ctx context.Context, resp Response) error
	LoginProvider(ctx context.Context, resp Response) error
	RegisterEmail(ctx context.Context, resp Response) error
	RegisterConfirmSent(ctx context.Context, resp Response) error
	RegisterConfirm(ctx context.Context, resp Response) error
	RegisterDetails(ctx context.Context, resp Response) error
	RegisterExtra(ctx context.Context, resp Response) error
}

// Accept calls the Visitor method matching resp.State.
func Accept(ctx context.Context, resp Response, v Visitor) error {
	switch resp.State {
	case StateSuccess:
		return v.Success(ctx, resp)
	case StateInactive:
		return v.Inactive(ctx, resp)
	case StateError:
		return v.Error(ctx, resp)
	case StateLoginEmail:
		return v.LoginEmail(ctx, resp)
	case StateLoginPassword:
		return v.LoginPassword(ctx, resp)
	case StateLoginProvider:
		return v.LoginProvider(ctx, resp)
	case StateRegisterEmail:
		return v.RegisterEmail(ctx, resp)
	case StateRegisterConfirmSent:
		return v.RegisterConfirmSent(ctx, resp)
	case StateRegisterConfirm:
		return v.RegisterConfirm(ctx, resp)
	case StateRegisterDetails:
		return v.RegisterDetails(ctx, resp)
	case StateRegisterExtra:
		return v.RegisterExtra(ctx, resp)
	default:
		return &UnknownStateError{State: string(resp.State)}
	}
}
