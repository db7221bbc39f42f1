package remote

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/noah-isme/xpro-storefront/internal/common"
)

// RequestError is returned for any non-2xx response from the remote API.
// Fields holds per-field messages, General everything not tied to a field.
type RequestError struct {
	Endpoint string
	Status   int
	Fields   map[string][]string
	General  []string
}

func (e *RequestError) Error() string {
	parts := make([]string, 0, len(e.General)+len(e.Fields))
	parts = append(parts, e.General...)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("remote: %s responded %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("remote: %s responded %d: %s", e.Endpoint, e.Status, strings.Join(parts, "; "))
}

// Field returns the first message reported for name.
func (e *RequestError) Field(name string) string {
	if e == nil || len(e.Fields[name]) == 0 {
		return ""
	}
	return e.Fields[name][0]
}

// Validation converts the error into field errors. Fields not listed in
// known are folded into General; a nil known keeps every field.
func (e *RequestError) Validation(known map[string]string) *common.ValidationError {
	out := &common.ValidationError{Fields: map[string]string{}}
	out.General = append(out.General, e.General...)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		msg := strings.Join(e.Fields[k], " ")
		if known == nil {
			out.Set(k, msg)
			continue
		}
		if field, ok := known[k]; ok {
			out.Set(field, msg)
			continue
		}
		out.General = append(out.General, msg)
	}
	if out.Empty() {
		out.General = append(out.General, http.StatusText(e.Status))
	}
	return out
}

var generalKeys = map[string]bool{
	"detail":           true,
	"error":            true,
	"non_field_errors": true,
}

// parseRequestError understands the body shapes the API produces:
// {"field": ["msg"]}, {"detail": "msg"}, ["msg"], {"errors": [{"field": "msg"}]}
// and nested serializer errors, flattened as "parent.child".
func parseRequestError(endpoint string, status int, body []byte) *RequestError {
	e := &RequestError{Endpoint: endpoint, Status: status, Fields: map[string][]string{}}
	var raw any
	if len(body) > 0 && json.Unmarshal(body, &raw) == nil {
		e.collect("", raw)
	}
	if len(e.General) == 0 && len(e.Fields) == 0 {
		e.General = []string{http.StatusText(status)}
	}
	return e
}

func (e *RequestError) collect(prefix string, v any) {
	switch val := v.(type) {
	case string:
		e.add(prefix, val)
	case []any:
		for _, item := range val {
			e.collect(prefix, item)
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			inner := val[key]
			switch {
			case key == "errors" && prefix == "":
				e.collect("", inner)
			case generalKeys[key]:
				e.collect("", inner)
			case prefix == "":
				e.collect(key, inner)
			default:
				e.collect(prefix+"."+key, inner)
			}
		}
	}
}

func (e *RequestError) add(field, msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	if field == "" {
		e.General = append(e.General, msg)
		return
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// AppError implements common.Renderer. Client errors keep their status;
// server errors surface as 502.
func (e *RequestError) AppError() *common.AppError {
	status := e.Status
	code := "REMOTE_REJECTED"
	switch {
	case status == http.StatusUnauthorized:
		code = "UNAUTHORIZED"
	case status == http.StatusForbidden:
		code = "FORBIDDEN"
	case status == http.StatusNotFound:
		code = "NOT_FOUND"
	case status >= http.StatusInternalServerError || status < http.StatusBadRequest:
		status = http.StatusBadGateway
		code = "REMOTE_ERROR"
	}
	msg := http.StatusText(e.Status)
	if len(e.General) > 0 {
		msg = e.General[0]
	}
	appErr := common.NewAppError(code, msg, status, e)
	appErr.Details = e.Validation(nil)
	return appErr
}
