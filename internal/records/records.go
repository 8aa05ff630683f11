package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"linotpadm/internal/schema"
	"linotpadm/types"
)

// ErrUnexpectedResponse is returned when a response value does not have the shape its command produces
var ErrUnexpectedResponse = errors.New("unexpected response shape")

// Options tunes record mapping
type Options struct {
	// ExportFields are user fields appended to each record in the order given,
	// when the item carries them.
	ExportFields []string
}

// layout describes how the items of a listing command become records
type layout struct {
	// keyField names the field holding the map key for keyed listings
	keyField  string
	preferred []string
}

var layouts = map[schema.Command]layout{
	schema.ListToken: {
		preferred: []string{
			"LinOtp.TokenSerialnumber", "LinOtp.TokenType", "LinOtp.Isactive", "User.username",
			"LinOtp.RealmNames", "LinOtp.TokenDesc", "LinOtp.FailCount", "LinOtp.MaxFail",
		},
	},
	schema.ListUser: {
		preferred: []string{"username", "givenname", "surname", "email", "mobile", "phone", "userid", "useridresolver"},
	},
	schema.GetRealms: {
		keyField:  "realm",
		preferred: []string{"default", "useridresolver"},
	},
	schema.GetResolvers: {
		keyField:  "resolver",
		preferred: []string{"type", "resolvername", "readonly"},
	},
}

// Map turns a response into display records. Listing commands produce one
// record per item; every other command produces a single result record.
func Map(cmd schema.Command, resp *types.Response, opts Options) ([]types.Record, error) {
	spec, err := schema.SpecFor(cmd)
	if err != nil {
		return nil, err
	}

	value, err := decode(resp.Result.Value)
	if err != nil {
		return nil, err
	}

	if !spec.Listing {
		var rec types.Record
		if s, ok := formatValue(value); ok {
			rec.Add("result", s)
		}
		return []types.Record{rec}, nil
	}

	switch cmd {
	case schema.ListToken:
		items, err := tokenItems(value)
		if err != nil {
			return nil, err
		}
		return mapItems(items, layouts[cmd], opts), nil
	case schema.ListUser:
		items, ok := value.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a list of users", ErrUnexpectedResponse, cmd)
		}
		return mapItems(items, layouts[cmd], opts), nil
	case schema.GetRealms, schema.GetResolvers:
		return mapKeyed(cmd, value, layouts[cmd])
	case schema.GetConfig:
		return mapConfig(value)
	default:
		return nil, fmt.Errorf("%w: no record layout for %s", ErrUnexpectedResponse, cmd)
	}
}

func decode(raw json.RawMessage) (interface{}, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return value, nil
}

// tokenItems accepts both {"data": [...]} and a bare list
func tokenItems(value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		data, ok := v["data"].([]interface{})
		if ok {
			return data, nil
		}
		if v["data"] == nil {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("%w: %s expects value.data to be a list", ErrUnexpectedResponse, schema.ListToken)
}

func mapItems(items []interface{}, l layout, opts Options) []types.Record {
	out := make([]types.Record, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, buildRecord(item, l, "", opts.ExportFields))
	}
	return out
}

func mapKeyed(cmd schema.Command, value interface{}, l layout) ([]types.Record, error) {
	if value == nil {
		return nil, nil
	}
	entries, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s expects an object keyed by name", ErrUnexpectedResponse, cmd)
	}

	out := make([]types.Record, 0, len(entries))
	for _, name := range sortedKeys(entries) {
		item, ok := entries[name].(map[string]interface{})
		if !ok {
			item = map[string]interface{}{}
		}
		out = append(out, buildRecord(item, l, name, nil))
	}
	return out, nil
}

func mapConfig(value interface{}) ([]types.Record, error) {
	if value == nil {
		return nil, nil
	}
	entries, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s expects an object of settings", ErrUnexpectedResponse, schema.GetConfig)
	}

	out := make([]types.Record, 0, len(entries))
	for _, key := range sortedKeys(entries) {
		var rec types.Record
		rec.Add("key", key)
		if s, ok := formatValue(entries[key]); ok {
			rec.Add("value", s)
		}
		out = append(out, rec)
	}
	return out, nil
}

// buildRecord lays out one item: key field, preferred columns, the remaining
// fields alphabetically, then the requested export fields
func buildRecord(item map[string]interface{}, l layout, key string, export []string) types.Record {
	var rec types.Record
	skip := make(map[string]bool)
	for _, name := range export {
		skip[name] = true
	}

	if l.keyField != "" {
		rec.Add(l.keyField, key)
		skip[l.keyField] = true
	}

	for _, name := range l.preferred {
		if skip[name] {
			continue
		}
		skip[name] = true
		if s, ok := formatValue(item[name]); ok {
			rec.Add(name, s)
		}
	}

	for _, name := range sortedKeys(item) {
		if skip[name] {
			continue
		}
		if s, ok := formatValue(item[name]); ok {
			rec.Add(name, s)
		}
	}

	for _, name := range export {
		if rec.Has(name) {
			continue
		}
		if s, ok := formatValue(exportValue(item, name)); ok {
			rec.Add(name, s)
		}
	}

	return rec
}

// exportValue finds a user field on the item itself or on its user sub-object
func exportValue(item map[string]interface{}, name string) interface{} {
	if v, ok := item[name]; ok {
		return v
	}
	if v, ok := item["User."+name]; ok {
		return v
	}
	for _, nested := range []string{"User", "user_info"} {
		if sub, ok := item[nested].(map[string]interface{}); ok {
			if v, ok := sub[name]; ok {
				return v
			}
		}
	}
	return nil
}

// formatValue renders a field value. Absent and null values report false.
func formatValue(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case bool:
		if val {
			return "true", true
		}
		return "false", true
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, elem := range val {
			switch elem.(type) {
			case map[string]interface{}, []interface{}:
				return encodeJSON(val), true
			}
			s, _ := formatValue(elem)
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), true
	default:
		return encodeJSON(val), true
	}
}

func encodeJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
