package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vendora/vendora-backend/internal/auth"
)

// ToAuthenticatedUser converts TestUser to auth.AuthenticatedUser
func (u *TestUser) ToAuthenticatedUser() *auth.AuthenticatedUser {
	return &auth.AuthenticatedUser{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		RoleID:   u.RoleID,
		RoleName: u.RoleName,
		IsOwner:  u.IsOwner,
	}
}

// ContextWithUser adds a test user to the context
func ContextWithUser(ctx context.Context, user *TestUser) context.Context {
	return auth.WithUser(ctx, user.ToAuthenticatedUser())
}

// Request represents a test HTTP request
type Request struct {
	Method  string
	Path    string
	Body    interface{}
	Token   string
	Headers map[string]string
}

// Response is a recorded response with its JSON body decoded
type Response struct {
	*httptest.ResponseRecorder
	Body map[string]interface{}
}

// Do runs req against handler without a network listener
func Do(t *testing.T, handler http.Handler, req Request) *Response {
	t.Helper()

	var body *bytes.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		require.NoError(t, err, "Failed to marshal request body")
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	httpReq := httptest.NewRequest(req.Method, req.Path, body)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httpReq)

	resp := &Response{ResponseRecorder: recorder}
	if recorder.Body.Len() > 0 {
		if err := json.Unmarshal(recorder.Body.Bytes(), &resp.Body); err != nil {
			t.Logf("Failed to decode response body: %v", err)
		}
	}
	return resp
}

// ErrorCode extracts error.code from an error response
func (r *Response) ErrorCode() string {
	errObj, _ := r.Body["error"].(map[string]interface{})
	code, _ := errObj["code"].(string)
	return code
}

// List returns the data array of a paginated response
func (r *Response) List() []interface{} {
	list, _ := r.Body["data"].([]interface{})
	return list
}
