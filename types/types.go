package types

import (
	"encoding/json"
	"strings"
)

// Connection holds the settings used to reach the management API
type Connection struct {
	URL      string `json:"url" mapstructure:"url"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Host     string `json:"host" mapstructure:"host"`
	Admin    string `json:"admin" mapstructure:"admin"`
	Password string `json:"-" mapstructure:"password"`
	Cert     string `json:"cert" mapstructure:"cert"`
	Key      string `json:"key" mapstructure:"key"`
}

// BaseURL returns the API root without a trailing slash
func (c *Connection) BaseURL() string {
	if c.URL != "" {
		return strings.TrimRight(c.URL, "/")
	}
	return c.Protocol + "://" + strings.TrimRight(c.Host, "/")
}

// Response is the decoded envelope returned by the backend
type Response struct {
	Result  Result          `json:"result"`
	Version string          `json:"version,omitempty"`
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Result carries the outcome of a backend call
type Result struct {
	Status bool            `json:"status"`
	Value  json.RawMessage `json:"value,omitempty"`
	Error  *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the error object of a failed request
type ResponseError struct {
	Code    json.Number `json:"code"`
	Message string      `json:"message"`
}

// Field is one named value of a Record
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is one row of listing output. Field order is significant.
type Record struct {
	Fields []Field `json:"fields"`
}

// Add appends a field
func (r *Record) Add(name, value string) {
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
}

// Get returns the value of the named field
func (r Record) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Has reports whether the record carries the named field
func (r Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the field names in order
func (r Record) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}
