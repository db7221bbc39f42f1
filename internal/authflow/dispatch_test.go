package authflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingNavigator struct {
	routes []Route
}

func (n *recordingNavigator) Navigate(_ context.Context, route Route) error {
	n.routes = append(n.routes, route)
	return nil
}

func TestDispatchRunsOnlyMappedHandler(t *testing.T) {
	nav := &recordingNavigator{}
	calls := map[State]int{}
	handlers := Handlers{}
	for _, s := range States {
		s := s
		handlers[s] = func(context.Context, Response) error {
			calls[s]++
			return nil
		}
	}

	err := Dispatch(context.Background(), nav, Response{State: StateRegisterConfirmSent}, handlers)
	require.NoError(t, err)
	require.Equal(t, map[State]int{StateRegisterConfirmSent: 1}, calls)
	require.Empty(t, nav.routes)
}

func TestDispatchDefaultNavigation(t *testing.T) {
	nav := &recordingNavigator{}
	resp := Response{State: StateLoginPassword, PartialToken: "abc 123", Flow: FlowLogin}

	err := Dispatch(context.Background(), nav, resp, Handlers{
		StateRegisterConfirmSent: func(context.Context, Response) error {
			t.Fatal("unexpected handler call")
			return nil
		},
	})
	require.NoError(t, err)
	require.Len(t, nav.routes, 1)
	require.Equal(t, PathLoginPassword, nav.routes[0].Path)
	require.Equal(t, "/signin/password/?partial_token=abc+123", nav.routes[0].URL())
}

func TestDispatchUnknownState(t *testing.T) {
	nav := &recordingNavigator{}
	err := Dispatch(context.Background(), nav, Response{State: State("register/unknown")}, nil)
	var unknown *UnknownStateError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, "register/unknown", unknown.State)
	require.Empty(t, nav.routes)
}

func TestDispatchHandlerErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	err := Dispatch(context.Background(), nil, Response{State: StateError}, Handlers{
		StateError: func(context.Context, Response) error { return boom },
	})
	require.ErrorIs(t, err, boom)
}

func TestDefaultRouteCoversEveryState(t *testing.T) {
	for _, s := range States {
		route, err := DefaultRoute(Response{State: s})
		require.NoError(t, err, s)
		require.NotEmpty(t, route.Path, s)
	}
}

func TestDefaultRouteSuccessHonoursRedirect(t *testing.T) {
	route, err := DefaultRoute(Response{State: StateSuccess, RedirectURL: "/checkout/", PartialToken: "tok"})
	require.NoError(t, err)
	require.Equal(t, "/checkout/", route.URL())
}

func TestResponseDecodeRejectsUnknownState(t *testing.T) {
	var resp Response
	err := json.Unmarshal([]byte(`{"state":"nope","flow":"login","errors":[]}`), &resp)
	var unknown *UnknownStateError
	require.ErrorAs(t, err, &unknown)

	require.NoError(t, json.Unmarshal([]byte(`{"state":"register/details","flow":"register","partial_token":"p","errors":["x"]}`), &resp))
	require.Equal(t, StateRegisterDetails, resp.State)
	require.Equal(t, "p", resp.PartialToken)
}

type countingVisitor struct {
	hits []string
}

func (v *countingVisitor) hit(name string) error { v.hits = append(v.hits, name); return nil }

func (v *countingVisitor) Success(context.Context, Response) error       { return v.hit("success") }
func (v *countingVisitor) Inactive(context.Context, Response) error      { return v.hit("inactive") }
func (v *countingVisitor) Error(context.Context, Response) error         { return v.hit("error") }
func (v *countingVisitor) LoginEmail(context.Context, Response) error    { return v.hit("login/email") }
func (v *countingVisitor) LoginPassword(context.Context, Response) error { return v.hit("login/password") }
func (v *countingVisitor) LoginProvider(context.Context, Response) error { return v.hit("login/provider") }
func (v *countingVisitor) RegisterEmail(context.Context, Response) error { return v.hit("register/email") }
func (v *countingVisitor) RegisterConfirmSent(context.Context, Response) error {
	return v.hit("register/confirm-sent")
}
func (v *countingVisitor) RegisterConfirm(context.Context, Response) error {
	return v.hit("register/confirm")
}
func (v *countingVisitor) RegisterDetails(context.Context, Response) error {
	return v.hit("register/details")
}
func (v *countingVisitor) RegisterExtra(context.Context, Response) error {
	return v.hit("register/extra")
}

func TestAcceptVisitsEveryState(t *testing.T) {
	v := &countingVisitor{}
	for _, s := range States {
		require.NoError(t, Accept(context.Background(), Response{State: s}, v))
	}
	want := make([]string, 0, len(States))
	for _, s := range States {
		want = append(want, string(s))
	}
	require.Equal(t, want, v.hits)

	err := Accept(context.Background(), Response{State: "bad"}, v)
	var unknown *UnknownStateError
	require.ErrorAs(t, err, &unknown)
}
