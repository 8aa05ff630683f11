package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linotpadm/internal/request"
	"linotpadm/internal/schema"
	"linotpadm/types"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(&types.Connection{URL: url, Admin: "admin", Password: "s3cret"}, testLogger(), WithTimeout(5*time.Second))
	require.NoError(t, err)
	return c
}

func TestDoSendsFormWithBasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/system/setRealm", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "s3cret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "corp", r.PostForm.Get("realm"))
		assert.Equal(t, "ldap1,files", r.PostForm.Get("resolvers"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"version": "LinOTP 2.12", "jsonrpc": "2.0", "result": {"status": true, "value": true}, "id": 1}`)
	}))
	defer server.Close()

	resp, err := newClient(t, server.URL).Do(context.Background(), &request.Request{
		Command:    schema.SetRealm,
		Controller: "system",
		Endpoint:   "setRealm",
		Params: []request.Param{
			{Name: "realm", Value: "corp"},
			{Name: "resolvers", Value: "ldap1,files"},
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.Result.Status)
	assert.JSONEq(t, `true`, string(resp.Result.Value))
	assert.Equal(t, "LinOTP 2.12", resp.Version)
}

func TestDoUploadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.xml")
	require.NoError(t, os.WriteFile(path, []byte("<Tokens/>"), 0600))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/load/tokens", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "pskc", r.FormValue("type"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "tokens.xml", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "<Tokens/>", string(data))

		_, _ = io.WriteString(w, `{"result": {"status": true, "value": {"value": 3}}}`)
	}))
	defer server.Close()

	_, err := newClient(t, server.URL).Do(context.Background(), &request.Request{
		Command:    schema.ImportToken,
		Controller: "admin",
		Endpoint:   "load/tokens",
		Params:     []request.Param{{Name: "type", Value: "pskc"}},
		Upload:     &request.Upload{Field: "file", Path: path},
	})
	require.NoError(t, err)
}

func TestDoErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				var authErr *AuthenticationError
				require.True(t, errors.As(err, &authErr))
				assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				var authErr *AuthenticationError
				require.True(t, errors.As(err, &authErr))
				assert.Equal(t, http.StatusForbidden, authErr.StatusCode)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   "boom",
			check: func(t *testing.T, err error) {
				var transportErr *TransportError
				require.True(t, errors.As(err, &transportErr))
				assert.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
				assert.Contains(t, err.Error(), "boom")
			},
		},
		{
			name:   "not json",
			status: http.StatusOK,
			body:   "<html>login</html>",
			check: func(t *testing.T, err error) {
				var transportErr *TransportError
				require.True(t, errors.As(err, &transportErr))
			},
		},
		{
			name:   "backend refused",
			status: http.StatusOK,
			body:   `{"result": {"status": false, "error": {"code": -311, "message": "no token found"}}}`,
			check: func(t *testing.T, err error) {
				var backendErr *BackendError
				require.True(t, errors.As(err, &backendErr))
				assert.Equal(t, "-311", backendErr.Code)
				assert.Equal(t, "no token found", backendErr.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := newClient(t, server.URL).Do(context.Background(), &request.Request{
				Command:    schema.RemoveToken,
				Controller: "admin",
				Endpoint:   "remove",
				Params:     []request.Param{{Name: "serial", Value: "OATH0001"}},
			})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestDoUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newClient(t, url).Do(context.Background(), &request.Request{Controller: "system", Endpoint: "getRealms"})
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Zero(t, transportErr.StatusCode)
}

func TestNewRejectsMissingCertificate(t *testing.T) {
	_, err := New(&types.Connection{
		URL:  "https://otp.example.com",
		Cert: filepath.Join(t.TempDir(), "missing.pem"),
	}, testLogger())
	require.Error(t, err)
}
