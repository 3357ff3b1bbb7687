package transformtest

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chrisalex1117/zgstreamer/runtime/logger"
	"github.com/chrisalex1117/zgstreamer/runtime/pipeline/stage"
)

const (
	// DefaultStreamID is the stream id of the stream-start event pushed on creation.
	DefaultStreamID = "test"

	// DefaultElementName is the name given to the element under test.
	DefaultElementName = "trans"

	// logModule is the logger module whose level LogLevel controls.
	logModule = "runtime.pipeline"
)

// DefaultCaps is the format a synthetic pad accepts when the stage pad it
// faces has an ANY template and no caps were configured.
var DefaultCaps = stage.MustParseCaps("foo/x-bar")

// Config configures the synthetic pads around the element under test.
// When Caps is empty each synthetic pad takes the caps of the stage template
// it faces. It can be loaded from YAML:
//
//	stream_id: clip-1
//	element_name: scaler
//	caps: "video/x-raw, format={ I420, NV12 }"
//	log_level: debug
type Config struct {
	StreamID    string `yaml:"stream_id"`
	ElementName string `yaml:"element_name"`
	Caps        string `yaml:"caps"`
	LogLevel    string `yaml:"log_level,omitempty"`
}

// DefaultConfig returns the harness defaults.
func DefaultConfig() *Config {
	return &Config{
		StreamID:    DefaultStreamID,
		ElementName: DefaultElementName,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.StreamID == "" {
		return errors.New("stream_id must not be empty")
	}
	if c.ElementName == "" {
		return errors.New("element_name must not be empty")
	}
	if _, err := c.caps(); err != nil {
		return err
	}
	if c.LogLevel != "" && !logger.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}

// caps returns the configured caps, or nil when the stage templates decide.
func (c *Config) caps() (*stage.Caps, error) {
	if c.Caps == "" {
		return nil, nil //nolint:nilnil // no override configured
	}
	caps, err := stage.ParseCaps(c.Caps)
	if err != nil {
		return nil, fmt.Errorf("invalid caps: %w", err)
	}
	if caps.IsEmpty() {
		return nil, fmt.Errorf("invalid caps: %q describes no format", c.Caps)
	}
	return caps, nil
}

// ParseConfig decodes a YAML harness config on top of the defaults and validates it.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse harness config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML harness config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read harness config file: %w", err)
	}
	return ParseConfig(data)
}
