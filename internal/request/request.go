package request

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"linotpadm/internal/schema"
	"linotpadm/internal/validate"
)

// Param is one backend parameter
type Param struct {
	Name  string
	Value string
}

// Upload is a local file sent as a multipart field
type Upload struct {
	Field string
	Path  string
}

// Request is the transport-independent description of one backend call
type Request struct {
	Command    schema.Command
	Controller string
	Endpoint   string
	Params     []Param
	Upload     *Upload
}

// Path returns the request path below the API root
func (r *Request) Path() string {
	return "/" + r.Controller + "/" + r.Endpoint
}

// Get returns the value of the named backend parameter
func (r *Request) Get(name string) (string, bool) {
	for _, p := range r.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Values returns the parameters as url.Values
func (r *Request) Values() url.Values {
	values := make(url.Values, len(r.Params))
	for _, p := range r.Params {
		values.Add(p.Name, p.Value)
	}
	return values
}

// Encode returns the form encoding of the parameters in request order
func (r *Request) Encode() string {
	var b strings.Builder
	for i, p := range r.Params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// Build turns a validated invocation into a request. Client-side parameters
// are dropped and the rest are sent under their backend names, sorted by name.
func Build(inv *validate.Invocation) (*Request, error) {
	spec := inv.Spec()
	req := &Request{
		Command:    inv.Command(),
		Controller: spec.Controller,
		Endpoint:   spec.Endpoint,
	}

	for _, p := range inv.Specs() {
		value := inv.Get(p.Name)
		if p.Local || value == "" {
			continue
		}

		switch {
		case p.Name == "rtype" && inv.Command() == schema.SetResolver:
			// sent below from the resolved type
		case p.Upload:
			req.Upload = &Upload{Field: p.WireName(), Path: value}
		case p.Kind == schema.KindFlag:
			if schema.IsTrue(value) {
				req.Params = append(req.Params, Param{Name: p.WireName(), Value: "1"})
			}
		case p.Kind == schema.KindMap && inv.Command() == schema.SetConfig:
			entries, err := expand(value)
			if err != nil {
				return nil, fmt.Errorf("error expanding --%s: %w", p.Name, err)
			}
			req.Params = append(req.Params, entries...)
		default:
			req.Params = append(req.Params, Param{Name: p.WireName(), Value: value})
		}
	}

	if rt := inv.ResolverType(); rt != "" {
		req.Params = append(req.Params, Param{Name: "type", Value: rt.ClassName()})
	}

	sort.SliceStable(req.Params, func(i, j int) bool {
		return req.Params[i].Name < req.Params[j].Name
	})

	return req, nil
}

// expand turns a canonical JSON mapping into one parameter per entry
func expand(value string) ([]Param, error) {
	var entries map[string]string
	if err := json.Unmarshal([]byte(value), &entries); err != nil {
		return nil, err
	}

	params := make([]Param, 0, len(entries))
	for k, v := range entries {
		params = append(params, Param{Name: k, Value: v})
	}
	return params, nil
}
