package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format names a descriptor encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrFormat, filepath.Ext(path))
}

// Load reads a descriptor file. The format follows the file extension.
// Every required key must be present; optional keys get their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("layout: read %s: %w", path, err)
	}
	f, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(data, f)
	if err != nil {
		return Config{}, fmt.Errorf("layout: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a descriptor held in memory.
func Parse(data []byte, f Format) (Config, error) {
	// Decode twice: once generically to see which keys are present, once
	// into the struct.
	var raw map[string]any
	switch f {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("layout: json: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return Config{}, fmt.Errorf("layout: toml: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("layout: yaml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrFormat, f)
	}

	if missing := missingKeys(raw, reflect.TypeOf(Config{}), ""); len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	var cfg Config
	switch f {
	case FormatJSON:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("layout: json: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("layout: toml: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("layout: yaml: %w", err)
		}
	}
	return cfg.WithDefaults(), nil
}

// missingKeys reports required keys absent from raw. A key is required
// when its json tag has no omitempty option. Nested structs are walked
// with a dotted prefix.
func missingKeys(raw map[string]any, t reflect.Type, prefix string) []string {
	var missing []string
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if strings.Contains(opts, "omitempty") {
			continue
		}
		v, ok := raw[name]
		if !ok || v == nil {
			missing = append(missing, prefix+name)
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			sub, ok := v.(map[string]any)
			if !ok {
				missing = append(missing, prefix+name)
				continue
			}
			missing = append(missing, missingKeys(sub, sf.Type, prefix+name+"/")...)
		}
	}
	sort.Strings(missing)
	return missing
}

// Marshal encodes cfg in the given format. Addresses are written as hex
// strings.
func Marshal(cfg Config, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(cfg, "", "  ")
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatYAML:
		return yaml.Marshal(cfg)
	}
	return nil, fmt.Errorf("%w: %q", ErrFormat, f)
}
