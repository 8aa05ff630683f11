package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"linotpadm/internal/schema"
	"linotpadm/types"
)

// ErrInvalidConnection is returned when the merged connection settings are unusable
var ErrInvalidConnection = errors.New("invalid connection settings")

// Layer is one named source of parameter values
type Layer struct {
	Name   string
	Values map[string]string
}

// DefaultsLayer returns the built-in defaults
func DefaultsLayer() Layer {
	return Layer{
		Name: "defaults",
		Values: map[string]string{
			"protocol": "https",
			"host":     "localhost",
		},
	}
}

// FileLayer wraps automation file values
func FileLayer(values map[string]string) Layer {
	return Layer{Name: "automation file", Values: values}
}

// FlagLayer wraps values of flags given on the command line
func FlagLayer(values map[string]string) Layer {
	return Layer{Name: "command line", Values: values}
}

// Merge folds layers left to right, later layers overriding earlier ones, and
// returns the selected command with the merged parameter set. Keys are
// lower-cased. Empty values never override an earlier layer.
func Merge(layers ...Layer) (schema.Command, schema.ParameterSet, error) {
	v := viper.New()

	for i, layer := range layers {
		switch {
		case i == 0 && len(layers) > 1:
			for key, value := range layer.Values {
				v.SetDefault(key, value)
			}
		case i == len(layers)-1:
			// Apply overrides (only set non-empty values)
			for key, value := range layer.Values {
				if value != "" {
					v.Set(key, value)
				}
			}
		default:
			if err := v.MergeConfigMap(nonEmpty(layer.Values)); err != nil {
				return "", nil, fmt.Errorf("error merging %s: %w", layer.Name, err)
			}
		}
	}

	params := make(schema.ParameterSet)
	for _, key := range v.AllKeys() {
		if value := v.GetString(key); value != "" {
			params[key] = value
		}
	}

	command, err := schema.ParseCommand(params.Get("command"))
	if err != nil {
		return "", params, err
	}
	return command, params, nil
}

func nonEmpty(values map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// ConnectionFrom extracts and validates the connection settings of a merged parameter set
func ConnectionFrom(params schema.ParameterSet) (*types.Connection, error) {
	conn := &types.Connection{}
	if err := mapstructure.Decode(map[string]string(params), conn); err != nil {
		return nil, fmt.Errorf("error decoding connection settings: %w", err)
	}

	if err := validateConnection(conn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConnection, err)
	}

	return conn, nil
}

// validateConnection validates the connection settings
func validateConnection(conn *types.Connection) error {
	if conn.URL == "" && conn.Host == "" {
		return fmt.Errorf("url or host is required")
	}

	u, err := url.Parse(conn.BaseURL())
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url must use http:// or https:// scheme, got %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("url must include a host")
	}

	if conn.Key != "" && conn.Cert == "" {
		return fmt.Errorf("key given without cert")
	}

	return nil
}
