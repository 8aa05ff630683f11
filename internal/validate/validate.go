package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"linotpadm/internal/schema"
)

// Option configures a validation run
type Option func(*options)

type options struct {
	persistedType schema.ResolverType
}

// WithPersistedResolverType supplies the type of an existing resolver. It is
// used by setresolver when --rtype is not given.
func WithPersistedResolverType(rt schema.ResolverType) Option {
	return func(o *options) {
		o.persistedType = rt
	}
}

// Invocation is a command together with a parameter set that passed validation.
// It can only be obtained from Validate and never changes afterwards.
type Invocation struct {
	command       schema.Command
	spec          schema.CommandSpec
	params        schema.ParameterSet
	resolverType  schema.ResolverType
	resolverSpecs []schema.ParameterSpec
	resolver      ResolverConfig
}

// Command returns the validated command
func (inv *Invocation) Command() schema.Command {
	return inv.command
}

// Spec returns the registry entry of the command
func (inv *Invocation) Spec() schema.CommandSpec {
	spec := inv.spec
	spec.Params = append([]schema.ParameterSpec(nil), inv.spec.Params...)
	return spec
}

// Params returns a copy of the full validated parameter set, passthrough keys included
func (inv *Invocation) Params() schema.ParameterSet {
	return inv.params.Clone()
}

// Get returns a validated value, or "" when the parameter is absent
func (inv *Invocation) Get(name string) string {
	return inv.params.Get(name)
}

// Has reports whether a parameter is present
func (inv *Invocation) Has(name string) bool {
	return inv.params.Has(name)
}

// ResolverType returns the resolver type of a setresolver invocation
func (inv *Invocation) ResolverType() schema.ResolverType {
	return inv.resolverType
}

// Resolver returns the typed resolver configuration of a setresolver invocation, or nil
func (inv *Invocation) Resolver() ResolverConfig {
	return inv.resolver
}

// Specs returns the command parameters followed by the resolver parameters in effect
func (inv *Invocation) Specs() []schema.ParameterSpec {
	out := make([]schema.ParameterSpec, 0, len(inv.spec.Params)+len(inv.resolverSpecs))
	out = append(out, inv.spec.Params...)
	return append(out, inv.resolverSpecs...)
}

// Validate checks ps against the schema of cmd and returns the resulting Invocation.
// The checks run in a fixed order: command lookup, resolver type, required
// parameters, unknown keys, value kinds, then exclusive groups. The first
// failure is returned as a *schema.ParameterError or a schema sentinel.
func Validate(cmd schema.Command, ps schema.ParameterSet, opts ...Option) (*Invocation, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	spec, err := schema.SpecFor(cmd)
	if err != nil {
		return nil, err
	}

	params := ps.Clone()
	inv := &Invocation{command: cmd, spec: spec, params: params}

	if cmd == schema.SetResolver {
		rt, err := resolveType(params, o)
		if err != nil {
			return nil, err
		}
		inv.resolverType = rt
		if inv.resolverSpecs, err = schema.ResolverSpecFor(rt); err != nil {
			return nil, err
		}
	}

	specs := inv.Specs()

	if err := checkRequired(spec, specs, params); err != nil {
		return nil, err
	}
	if err := checkKnown(specs, params); err != nil {
		return nil, err
	}
	if err := checkKinds(append(schema.Globals(), specs...), params); err != nil {
		return nil, err
	}
	if err := checkExclusive(spec, specs, params); err != nil {
		return nil, err
	}

	applyDefaults(spec, specs, params)

	if inv.resolverType != "" {
		if inv.resolver, err = decodeResolver(inv.resolverType, params); err != nil {
			return nil, err
		}
	}

	return inv, nil
}

func resolveType(params schema.ParameterSet, o *options) (schema.ResolverType, error) {
	raw := params.Get("rtype")
	if raw == "" && o.persistedType != "" {
		return schema.ParseResolverType(string(o.persistedType))
	}

	rt, err := schema.ParseResolverType(raw)
	if err != nil {
		return "", err
	}
	params["rtype"] = string(rt)
	return rt, nil
}

func checkRequired(spec schema.CommandSpec, specs []schema.ParameterSpec, params schema.ParameterSet) error {
	for _, p := range specs {
		if p.Required && !params.Has(p.Name) {
			return schema.NewParameterError(schema.ErrMissingRequiredParameter, p.Name, "%s", p.Help)
		}
	}

	for _, sel := range spec.Selectors {
		if sel.Required && countPresent(sel.Members, params) == 0 {
			return &schema.ParameterError{
				Err:    schema.ErrMissingRequiredParameter,
				Param:  sel.Members[0],
				Detail: "one of --" + strings.Join(sel.Members, ", --") + " is required",
			}
		}
	}

	for _, c := range spec.Conditions {
		if !strings.EqualFold(params.Get(c.Param), c.Value) {
			continue
		}
		for _, name := range c.Requires {
			if !params.Has(name) {
				return schema.NewParameterError(schema.ErrMissingRequiredParameter, name,
					"required when --%s=%s", c.Param, c.Value)
			}
		}
	}

	return nil
}

func checkKnown(specs []schema.ParameterSpec, params schema.ParameterSet) error {
	known := make(map[string]bool)
	for _, p := range schema.Globals() {
		known[p.Name] = true
	}
	for _, p := range specs {
		known[p.Name] = true
	}

	for _, key := range params.Keys() {
		if known[key] || schema.IsPassthrough(key) {
			continue
		}
		return schema.NewParameterError(schema.ErrUnexpectedParameter, key, "not accepted by this command")
	}
	return nil
}

func checkKinds(specs []schema.ParameterSpec, params schema.ParameterSet) error {
	for _, p := range specs {
		raw, ok := params[p.Name]
		if !ok || raw == "" {
			continue
		}

		value, err := canonical(p, raw)
		if err != nil {
			return err
		}
		params[p.Name] = value
	}
	return nil
}

// canonical checks raw against the kind of p and returns its normalised form
func canonical(p schema.ParameterSpec, raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	switch p.Kind {
	case schema.KindEnum:
		for _, v := range p.Values {
			if strings.EqualFold(v, raw) {
				return v, nil
			}
		}
		return "", schema.NewParameterError(schema.ErrInvalidEnumValue, p.Name,
			"%q is not one of %s", raw, strings.Join(p.Values, ", "))

	case schema.KindFlag:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return "", schema.NewParameterError(schema.ErrInvalidValue, p.Name, "%q is not a boolean", raw)
		}
		return strconv.FormatBool(b), nil

	case schema.KindInt:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return "", schema.NewParameterError(schema.ErrInvalidValue, p.Name, "%q is not a non-negative integer", raw)
		}
		return strconv.Itoa(n), nil

	case schema.KindTimeout:
		parts := strings.Split(raw, ";")
		if len(parts) > 2 {
			return "", schema.NewParameterError(schema.ErrInvalidValue, p.Name, "%q is not seconds or network;response seconds", raw)
		}
		for i, part := range parts {
			part = strings.TrimSpace(part)
			f, err := strconv.ParseFloat(part, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
				return "", schema.NewParameterError(schema.ErrInvalidValue, p.Name, "%q is not a positive number of seconds", part)
			}
			parts[i] = part
		}
		return strings.Join(parts, ";"), nil

	case schema.KindList:
		items, err := schema.ParseList(raw)
		if err != nil {
			return "", &schema.ParameterError{Err: err, Param: p.Name}
		}
		return strings.Join(items, ","), nil

	case schema.KindMap:
		mapping, err := schema.ParseMapping(raw)
		if err != nil {
			return "", &schema.ParameterError{Err: err, Param: p.Name}
		}
		data, err := json.Marshal(mapping)
		if err != nil {
			return "", fmt.Errorf("error encoding --%s: %w", p.Name, err)
		}
		return string(data), nil

	default:
		return raw, nil
	}
}

func checkExclusive(spec schema.CommandSpec, specs []schema.ParameterSpec, params schema.ParameterSet) error {
	for _, group := range spec.Exclusive {
		active := activeMembers(group.Members, specs, params)
		if len(active) > 1 {
			return schema.NewParameterError(schema.ErrConflictingParameters, active[1],
				"--%s cannot be combined with --%s (%s)", active[1], active[0], group.Name)
		}
	}

	for _, sel := range spec.Selectors {
		if !sel.Exclusive {
			continue
		}
		present := presentMembers(sel.Members, params)
		if len(present) > 1 {
			return schema.NewParameterError(schema.ErrConflictingParameters, present[1],
				"give only one of --%s", strings.Join(sel.Members, ", --"))
		}
	}
	return nil
}

// activeMembers returns the members of an exclusive group that are in effect.
// A flag member given as false is not in effect.
func activeMembers(members []string, specs []schema.ParameterSpec, params schema.ParameterSet) []string {
	var active []string
	for _, name := range members {
		if !params.Has(name) {
			continue
		}
		if p, ok := lookup(specs, name); ok && p.Kind == schema.KindFlag && !schema.IsTrue(params.Get(name)) {
			continue
		}
		active = append(active, name)
	}
	return active
}

func presentMembers(members []string, params schema.ParameterSet) []string {
	var present []string
	for _, name := range members {
		if params.Has(name) {
			present = append(present, name)
		}
	}
	return present
}

func countPresent(members []string, params schema.ParameterSet) int {
	return len(presentMembers(members, params))
}

func applyDefaults(spec schema.CommandSpec, specs []schema.ParameterSpec, params schema.ParameterSet) {
	for _, p := range specs {
		if p.Default == "" || params.Has(p.Name) {
			continue
		}
		if groupOccupied(spec, specs, params, p.Name) {
			continue
		}
		params[p.Name] = p.Default
	}
}

// groupOccupied reports whether another member of name's exclusive group is active
func groupOccupied(spec schema.CommandSpec, specs []schema.ParameterSpec, params schema.ParameterSet, name string) bool {
	for _, group := range spec.Exclusive {
		if !contains(group.Members, name) {
			continue
		}
		if len(activeMembers(group.Members, specs, params)) > 0 {
			return true
		}
	}
	return false
}

func lookup(specs []schema.ParameterSpec, name string) (schema.ParameterSpec, bool) {
	for _, p := range specs {
		if p.Name == name {
			return p, true
		}
	}
	return schema.ParameterSpec{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
