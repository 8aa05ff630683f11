package admin

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"linotpadm/internal/schema"
)

// RegisterFlags adds one flag per known parameter. Values are read back with
// FlagValues, so no defaults are registered here.
func RegisterFlags(fs *pflag.FlagSet) {
	for _, p := range schema.AllParameters() {
		help := p.Help
		if len(p.Values) > 0 {
			help = fmt.Sprintf("%s (one of: %s)", help, strings.Join(p.Values, ", "))
		}
		if p.Default != "" {
			help = fmt.Sprintf("%s (default %s)", help, p.Default)
		}

		if p.Kind == schema.KindFlag {
			fs.BoolP(p.Name, p.Short, false, help)
		} else {
			fs.StringP(p.Name, p.Short, "", help)
		}
	}
}

// FlagValues returns the flags the user set on the command line
func FlagValues(fs *pflag.FlagSet) map[string]string {
	values := make(map[string]string)
	fs.Visit(func(f *pflag.Flag) {
		if f.Name == "help" || f.Name == "version" {
			return
		}
		values[f.Name] = f.Value.String()
	})
	return values
}

// FlagError turns a command line parsing error into a validation error
func FlagError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "unknown flag") || strings.Contains(msg, "unknown shorthand") {
		return &schema.ParameterError{Err: schema.ErrUnexpectedParameter, Detail: msg}
	}
	return &schema.ParameterError{Err: schema.ErrInvalidValue, Detail: msg}
}
