package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"linotpadm/internal/request"
	"linotpadm/types"
)

// AuthenticationError represents an authentication failure that should cause immediate exit
type AuthenticationError struct {
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

// TransportError is a failure to reach the backend or to read its answer
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BackendError is a request the backend answered with status false
type BackendError struct {
	Code    string
	Message string
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error %s: %s", e.Code, e.Message)
	}
	return "backend error: " + e.Message
}

const (
	DefaultTimeout = 30 * time.Second

	// maxErrorBody bounds how much of an error page ends up in a message
	maxErrorBody = 512
)

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// Client sends requests to the management API. It does not retry.
type Client struct {
	conn       *types.Connection
	logger     *logrus.Logger
	httpClient *http.Client
}

func New(conn *types.Connection, logger *logrus.Logger, opts ...Option) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if conn.Cert != "" {
		keyPath := conn.Key
		if keyPath == "" {
			keyPath = conn.Cert
		}
		cert, err := tls.LoadX509KeyPair(conn.Cert, keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		transport.TLSClientConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		logger.WithField("cert", conn.Cert).Debug("Using client certificate")
	}

	c := &Client{
		conn:   conn,
		logger: logger,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: transport,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do sends req and returns the decoded response envelope
func (c *Client) Do(ctx context.Context, req *request.Request) (*types.Response, error) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	target := c.conn.BaseURL() + req.Path()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if c.conn.Admin != "" {
		httpReq.SetBasicAuth(c.conn.Admin, c.conn.Password)
	}

	names := make([]string, len(req.Params))
	for i, p := range req.Params {
		names[i] = p.Name
	}
	c.logger.WithFields(logrus.Fields{
		"command": req.Command,
		"url":     target,
		"params":  names,
		"upload":  req.Upload != nil,
	}).Debug("Sending request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"status":      resp.Status,
	}).Debug("Received response")

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var decoded types.Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if !decoded.Result.Status {
		backendErr := &BackendError{Message: "request failed"}
		if decoded.Result.Error != nil {
			backendErr.Code = decoded.Result.Error.Code.String()
			backendErr.Message = decoded.Result.Error.Message
		}
		return nil, backendErr
	}

	return &decoded, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthenticationError{
			StatusCode: resp.StatusCode,
			Message:    "authentication failed - check --admin and --password",
		}
	case resp.StatusCode == http.StatusForbidden:
		return &AuthenticationError{
			StatusCode: resp.StatusCode,
			Message:    "forbidden - administrator is not authorized for this action",
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(snippet))),
		}
	}
	return nil
}

// encodeBody returns a form body, or a multipart body when req carries a file
func encodeBody(req *request.Request) (io.Reader, string, error) {
	if req.Upload == nil {
		return strings.NewReader(req.Encode()), "application/x-www-form-urlencoded", nil
	}

	file, err := os.Open(req.Upload.Path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", req.Upload.Path, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range req.Params {
		if err := w.WriteField(p.Name, p.Value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", p.Name, err)
		}
	}

	part, err := w.CreateFormFile(req.Upload.Field, filepath.Base(req.Upload.Path))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", req.Upload.Path, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
