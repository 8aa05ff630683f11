package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// ErrMalformedAutomationFile is returned when the automation file cannot be read or parsed
var ErrMalformedAutomationFile = errors.New("malformed automation file")

// AutomationSection is the only section read from an automation file
const AutomationSection = "Default"

// LoadAutomationFile reads the [Default] section of an INI automation file.
// Section and key names are case-insensitive and returned lower-cased.
func LoadAutomationFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no path given", ErrMalformedAutomationFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAutomationFile, err)
	}

	return ParseAutomation(data)
}

// ParseAutomation parses automation file content already read into memory
func ParseAutomation(data []byte) (map[string]string, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:              true,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAutomationFile, err)
	}

	section, err := file.GetSection(strings.ToLower(AutomationSection))
	if err != nil || len(section.Keys()) == 0 {
		return nil, fmt.Errorf("%w: no entries in [%s] section", ErrMalformedAutomationFile, AutomationSection)
	}

	values := make(map[string]string, len(section.Keys()))
	for _, key := range section.Keys() {
		values[strings.ToLower(key.Name())] = strings.TrimSpace(key.String())
	}
	return values, nil
}
