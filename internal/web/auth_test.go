package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/xpro-storefront/internal/authflow"
	"github.com/noah-isme/xpro-storefront/internal/remote"
)

type fakeAuth struct {
	resp       authflow.Response
	err        error
	resetErr   error
	resets     []string
	confirmed  int
	authCalled int
}

func (f *fakeAuth) Authenticate(context.Context, *remote.Session, remote.AuthStep, any) (authflow.Response, error) {
	f.authCalled++
	return f.resp, f.err
}

func (f *fakeAuth) PasswordReset(_ context.Context, _ *remote.Session, email string) error {
	f.resets = append(f.resets, email)
	return f.resetErr
}

func (f *fakeAuth) PasswordResetConfirm(context.Context, *remote.Session, any) error {
	f.confirmed++
	return nil
}

func call(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestRouteRegisterDetailsErrorsStayWithoutField(t *testing.T) {
	h := &AuthHandler{Logger: zerolog.Nop()}
	resp := authflow.Response{
		State:  authflow.StateRegisterDetails,
		Flow:   authflow.FlowRegister,
		Errors: []string{"Address not accepted"},
	}

	result, err := h.route(context.Background(), remote.StepRegisterDetails, "", resp)
	require.NoError(t, err)
	require.Empty(t, result.Redirect)
	require.Nil(t, result.FieldErrors)
	require.Equal(t, []string{"Address not accepted"}, result.Errors)
}

func TestRouteNavigatesWhenStateAdvances(t *testing.T) {
	h := &AuthHandler{Logger: zerolog.Nop()}
	resp := authflow.Response{State: authflow.StateRegisterExtra, PartialToken: "p9"}

	result, err := h.route(context.Background(), remote.StepRegisterDetails, "", resp)
	require.NoError(t, err)
	require.Equal(t, "/create-account/extra/?partial_token=p9", result.Redirect)
	require.NotNil(t, result.Errors)
}

func TestRouteInactiveNavigatesEvenWithErrors(t *testing.T) {
	h := &AuthHandler{Logger: zerolog.Nop()}
	resp := authflow.Response{State: authflow.StateInactive, Errors: []string{"Account disabled"}}

	result, err := h.route(context.Background(), remote.StepLoginPassword, "password", resp)
	require.NoError(t, err)
	require.Equal(t, authflow.PathInactive, result.Redirect)
}

func TestPasswordReset(t *testing.T) {
	api := &fakeAuth{}
	h := &AuthHandler{API: api, Logger: zerolog.Nop()}

	rr := call(h.PasswordReset, `{"email":"learner@example.com"}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, []string{"learner@example.com"}, api.resets)

	rr = call(h.PasswordReset, `{"email":""}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Len(t, api.resets, 1)
}

func TestPasswordResetRemoteFieldErrors(t *testing.T) {
	api := &fakeAuth{resetErr: &remote.RequestError{
		Endpoint: "auth.password_reset",
		Status:   http.StatusBadRequest,
		Fields:   map[string][]string{"email": {"No account with this email"}},
	}}
	h := &AuthHandler{API: api, Logger: zerolog.Nop()}

	rr := call(h.PasswordReset, `{"email":"ghost@example.com"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "No account with this email")
}

func TestPasswordResetConfirm(t *testing.T) {
	api := &fakeAuth{}
	h := &AuthHandler{API: api, Logger: zerolog.Nop()}

	rr := call(h.PasswordResetConfirm, `{"uid":"u","token":"t","new_password":"abcdef12","re_new_password":"abcdef13"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "re_new_password")
	require.Zero(t, api.confirmed)

	rr = call(h.PasswordResetConfirm, `{"uid":"u","token":"t","new_password":"abcdef12","re_new_password":"abcdef12"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"redirect":"/signin/"`)
	require.Equal(t, 1, api.confirmed)
}

func TestStepRemoteUnavailable(t *testing.T) {
	api := &fakeAuth{err: &remote.RequestError{Endpoint: "auth.login/email", Status: http.StatusServiceUnavailable}}
	h := &AuthHandler{API: api, Logger: zerolog.Nop()}

	rr := call(h.Step(remote.StepLoginEmail), `{"email":"learner@example.com"}`)
	require.GreaterOrEqual(t, rr.Code, 500)
	require.Equal(t, 1, api.authCalled)
}
