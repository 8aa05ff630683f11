package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Command identifies one administrative operation.
type Command string

const (
	ListToken       Command = "listtoken"
	ListUser        Command = "listuser"
	InitToken       Command = "inittoken"
	AssignToken     Command = "assigntoken"
	UnassignToken   Command = "unassigntoken"
	ImportToken     Command = "importtoken"
	DisableToken    Command = "disabletoken"
	EnableToken     Command = "enabletoken"
	RemoveToken     Command = "removetoken"
	ResyncToken     Command = "resynctoken"
	Set             Command = "set"
	SecurityModule  Command = "securityModule"
	GetConfig       Command = "getconfig"
	SetConfig       Command = "setconfig"
	GetRealms       Command = "getrealms"
	SetRealm        Command = "setrealm"
	DeleteRealm     Command = "deleterealm"
	SetDefaultRealm Command = "setdefaultrealm"
	GetResolvers    Command = "getresolvers"
	DeleteResolver  Command = "deleteresolver"
	SetResolver     Command = "setresolver"
)

// ParseCommand resolves a command name. Exact matches win; otherwise the
// name is compared case-insensitively so "securitymodule" still works.
func ParseCommand(name string) (Command, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrMissingCommand
	}
	if _, ok := registry[Command(name)]; ok {
		return Command(name), nil
	}
	for _, c := range Commands() {
		if strings.EqualFold(string(c), name) {
			return c, nil
		}
	}
	return "", NewParameterError(ErrUnknownCommand, "command", "%q", name)
}

// Kind is the value kind of a parameter.
type Kind int

const (
	KindString Kind = iota
	KindEnum
	KindFlag
	KindList
	KindMap
	KindInt
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindFlag:
		return "flag"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindInt:
		return "int"
	case KindTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParameterSpec describes one parameter a command accepts.
type ParameterSpec struct {
	Name     string
	Short    string
	Kind     Kind
	Required bool
	Values   []string
	Default  string
	// Wire is the backend parameter name; empty means Name.
	Wire string
	// Local parameters configure the client and are never sent to the backend.
	Local bool
	// Upload marks a parameter whose value is a local file sent as the request body.
	Upload bool
	Help   string
}

// WireName returns the name the backend knows this parameter by.
func (p ParameterSpec) WireName() string {
	if p.Wire != "" {
		return p.Wire
	}
	return p.Name
}

// Selector is a group of alternative parameters. A required selector needs at
// least one member present. An exclusive selector rejects more than one.
type Selector struct {
	Name      string
	Members   []string
	Required  bool
	Exclusive bool
}

// ExclusiveGroup is a choice set where at most one member may be active.
type ExclusiveGroup struct {
	Name    string
	Members []string
}

// Condition makes Requires mandatory when Param equals Value (case-insensitive).
type Condition struct {
	Param    string
	Value    string
	Requires []string
}

// CommandSpec is the registry entry of a command.
type CommandSpec struct {
	Command    Command
	Controller string
	Endpoint   string
	Listing    bool
	Params     []ParameterSpec
	Selectors  []Selector
	Exclusive  []ExclusiveGroup
	Conditions []Condition
	Help       string
}

// Lookup finds a command parameter by name.
func (c CommandSpec) Lookup(name string) (ParameterSpec, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// ResolverType is the kind of user directory a resolver reads from.
type ResolverType string

const (
	ResolverFile ResolverType = "FILE"
	ResolverLDAP ResolverType = "LDAP"
	ResolverSQL  ResolverType = "SQL"
)

var resolverClasses = map[ResolverType]string{
	ResolverFile: "passwdresolver",
	ResolverLDAP: "ldapresolver",
	ResolverSQL:  "sqlresolver",
}

// ResolverTypes lists the supported resolver types.
func ResolverTypes() []ResolverType {
	return []ResolverType{ResolverFile, ResolverLDAP, ResolverSQL}
}

// ClassName returns the backend resolver class for the type.
func (r ResolverType) ClassName() string {
	return resolverClasses[r]
}

// ParseResolverType accepts FILE, LDAP or SQL in any case, and also the
// backend class names the server reports for persisted resolvers.
func ParseResolverType(s string) (ResolverType, error) {
	s = strings.TrimSpace(s)
	for _, rt := range ResolverTypes() {
		if strings.EqualFold(string(rt), s) || strings.EqualFold(rt.ClassName(), s) {
			return rt, nil
		}
	}
	if s == "" {
		return "", NewParameterError(ErrUnknownResolverType, "rtype", "no resolver type given, expected one of FILE, LDAP, SQL")
	}
	return "", NewParameterError(ErrUnknownResolverType, "rtype", "%q is not one of FILE, LDAP, SQL", s)
}

// ParameterSet maps parameter names to raw values.
type ParameterSet map[string]string

// Get returns the value of name, or "" when unset.
func (ps ParameterSet) Get(name string) string {
	return ps[name]
}

// Has reports whether name is present with a non-empty value.
func (ps ParameterSet) Has(name string) bool {
	return ps[name] != ""
}

// Clone returns a copy without empty values.
func (ps ParameterSet) Clone() ParameterSet {
	out := make(ParameterSet, len(ps))
	for k, v := range ps {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Keys returns the present keys in alphabetical order.
func (ps ParameterSet) Keys() []string {
	keys := make([]string, 0, len(ps))
	for k, v := range ps {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// IsTrue interprets a flag value. Unparseable values are false.
func IsTrue(v string) bool {
	b, err := cast.ToBoolE(strings.TrimSpace(v))
	return err == nil && b
}

// IsPassthrough reports whether key belongs to a collaborator outside the
// command model. Such keys are accepted without validation and never sent to
// the backend.
func IsPassthrough(key string) bool {
	return key == "csv_format" ||
		strings.HasPrefix(key, "mail_") ||
		strings.HasPrefix(key, "cifs_")
}

// ParseList splits a comma-separated list. Empty elements are rejected.
func ParseList(v string) ([]string, error) {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("%w: element %d is empty", ErrMalformedList, i+1)
		}
		out = append(out, part)
	}
	return out, nil
}

// ParseMapping parses a flat field-to-source mapping. Both a JSON object of
// strings and the compact form "field=source,field2=source2" are accepted.
func ParseMapping(v string) (map[string]string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, fmt.Errorf("%w: empty mapping", ErrMalformedMapping)
	}

	out := make(map[string]string)
	if strings.HasPrefix(v, "{") {
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(v), &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMapping, err)
		}
		for field, source := range raw {
			s, ok := source.(string)
			if !ok {
				return nil, fmt.Errorf("%w: value of %q is not a string", ErrMalformedMapping, field)
			}
			out[field] = s
		}
	} else {
		for _, pair := range strings.Split(v, ",") {
			field, source, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("%w: %q is not a field=source pair", ErrMalformedMapping, strings.TrimSpace(pair))
			}
			field = strings.TrimSpace(field)
			if _, dup := out[field]; dup {
				return nil, fmt.Errorf("%w: field %q given twice", ErrMalformedMapping, field)
			}
			out[field] = strings.TrimSpace(source)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty mapping", ErrMalformedMapping)
	}
	for field, source := range out {
		if strings.TrimSpace(field) == "" || strings.TrimSpace(source) == "" {
			return nil, fmt.Errorf("%w: empty field or source in %q=%q", ErrMalformedMapping, field, source)
		}
	}
	return out, nil
}
