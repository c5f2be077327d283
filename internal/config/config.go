package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	tkerrors "github.com/systmms/ticketrot/internal/errors"
	"github.com/systmms/ticketrot/internal/logging"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the corresponding field is absent from the
// configuration file.
const (
	DefaultStorageRoot      = "/run/ticketrot/keys"
	DefaultGenerations      = 3
	DefaultKeyBytes         = 48
	DefaultRotationInterval = 12 * time.Hour
	DefaultReloadOffset     = 10 * time.Minute
)

// Config holds the runtime configuration
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition
}

// Definition represents the ticketrot.yaml structure. It is loaded
// once at process start and treated as immutable for the duration of
// a rotation cycle.
type Definition struct {
	Version          int      `yaml:"version"`
	StorageRoot      string   `yaml:"storage_root"`
	Generations      int      `yaml:"generations"`
	KeyBytes         int      `yaml:"key_bytes"`
	RotationInterval string   `yaml:"rotation_interval"`
	ReloadInterval   string   `yaml:"reload_interval"`
	ReloadCommand    string   `yaml:"reload_command"`
	ServerBinary     string   `yaml:"server_binary"`
	MinServerVersion string   `yaml:"min_server_version"`
	MetricsTextfile  string   `yaml:"metrics_textfile"`
	Servers          []string `yaml:"servers"`
}

// Load reads, schema-checks, and validates the ticketrot.yaml file.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return tkerrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create a ticketrot.yaml listing the servers to maintain keys for",
			}
		}
		return tkerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	if err := validateSchema(data); err != nil {
		return err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return tkerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	def.applyDefaults()

	if err := def.Validate(); err != nil {
		return err
	}

	c.Definition = &def
	return nil
}

// validateSchema checks the raw document against the embedded JSON schema.
func validateSchema(data []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return tkerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return tkerrors.ConfigError{
			Message: fmt.Sprintf("configuration cannot be represented as JSON for validation: %v", err),
		}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(configSchema),
		gojsonschema.NewBytesLoader(jsonDoc),
	)
	if err != nil {
		return tkerrors.ConfigError{
			Message: fmt.Sprintf("schema validation failed: %v", err),
		}
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return tkerrors.ConfigError{
			Message:    "configuration does not match the expected structure",
			Suggestion: strings.Join(problems, "; "),
		}
	}

	return nil
}

func (d *Definition) applyDefaults() {
	if d.StorageRoot == "" {
		d.StorageRoot = DefaultStorageRoot
	}
	if d.Generations == 0 {
		d.Generations = DefaultGenerations
	}
	if d.KeyBytes == 0 {
		d.KeyBytes = DefaultKeyBytes
	}
	if d.RotationInterval == "" {
		d.RotationInterval = DefaultRotationInterval.String()
	}
	if d.ReloadInterval == "" {
		rot, err := time.ParseDuration(d.RotationInterval)
		if err == nil {
			d.ReloadInterval = (rot + DefaultReloadOffset).String()
		}
	}
	if d.ServerBinary == "" {
		d.ServerBinary = "nginx"
	}
}

// Validate performs the semantic checks the JSON schema cannot express.
func (d *Definition) Validate() error {
	if len(d.Servers) == 0 {
		return tkerrors.ConfigError{
			Field:      "servers",
			Message:    "at least one server must be configured",
			Suggestion: "Add the server names whose key rings should be maintained",
		}
	}

	seen := make(map[string]bool, len(d.Servers))
	for _, server := range d.Servers {
		if seen[server] {
			return tkerrors.ConfigError{
				Field:   "servers",
				Value:   server,
				Message: "duplicate server entry",
			}
		}
		seen[server] = true
	}

	rot, err := time.ParseDuration(d.RotationInterval)
	if err != nil {
		return tkerrors.ConfigError{
			Field:      "rotation_interval",
			Value:      d.RotationInterval,
			Message:    "not a valid duration",
			Suggestion: "Use Go duration syntax, e.g. '12h' or '90m'",
		}
	}
	if rot < time.Minute {
		return tkerrors.ConfigError{
			Field:      "rotation_interval",
			Value:      d.RotationInterval,
			Message:    "rotation interval must be at least one minute",
			Suggestion: "The interval must exceed the worst-case cycle duration",
		}
	}

	reload, err := time.ParseDuration(d.ReloadInterval)
	if err != nil {
		return tkerrors.ConfigError{
			Field:      "reload_interval",
			Value:      d.ReloadInterval,
			Message:    "not a valid duration",
			Suggestion: "Use Go duration syntax, e.g. '12h10m'",
		}
	}
	if reload <= rot {
		return tkerrors.ConfigError{
			Field:      "reload_interval",
			Value:      d.ReloadInterval,
			Message:    "reload interval must exceed the rotation interval",
			Suggestion: "Reload must fire after rotation so the server observes a fully aged key set",
		}
	}

	return nil
}

// RotationDuration returns the parsed rotation interval.
// Validate must have succeeded first.
func (d *Definition) RotationDuration() time.Duration {
	rot, _ := time.ParseDuration(d.RotationInterval)
	return rot
}

// ReloadDuration returns the parsed reload interval.
func (d *Definition) ReloadDuration() time.Duration {
	reload, _ := time.ParseDuration(d.ReloadInterval)
	return reload
}
