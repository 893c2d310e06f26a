package main

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/scitags/hostwatch/backends/prometheus"
	"github.com/scitags/hostwatch/monitor"
	"github.com/scitags/hostwatch/plugins/api"
)

//go:embed schema.json
var schema []byte

type Config struct {
	ProcRoot string `yaml:"procRoot"`
	LogLevel string `yaml:"logLevel"`

	Monitor *monitor.Config `yaml:"monitor"`

	Plugins *struct {
		Api *api.Config `yaml:"api"`
	} `yaml:"plugins"`

	Backends *struct {
		Prometheus *prometheus.Config `yaml:"prometheus"`
	} `yaml:"backends"`
}

var DefaultConfig = Config{
	LogLevel: "info",
}

func (c Config) String() string {
	m, err := yaml.MarshalWithOptions(c, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return "marshalling error..."
	}
	return string(m)
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := config(DefaultConfig)

	if err := yaml.Unmarshal(b, &def); err != nil {
		return err
	}

	*c = Config(def)

	return nil
}

// MonitorConfig falls back to the defaults when the monitor block is absent.
func (c *Config) MonitorConfig() *monitor.Config {
	if c.Monitor == nil {
		def := monitor.DefaultConfig
		return &def
	}
	return c.Monitor
}

func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("error parsing the schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("error adding the schema: %w", err)
	}

	return c.Compile("schema.json")
}

func validate(r []byte) error {
	sch, err := compileSchema()
	if err != nil {
		return err
	}

	j, err := yaml.YAMLToJSON(r)
	if err != nil {
		return fmt.Errorf("error converting the configuration to JSON: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(j))
	if err != nil {
		return fmt.Errorf("error unmarshalling the JSON configuration: %w", err)
	}

	return sch.Validate(inst)
}

func ReadConf(path string) (*Config, error) {
	r, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading the configuration file: %w", err)
	}

	if len(bytes.TrimSpace(r)) == 0 {
		conf := DefaultConfig
		return &conf, nil
	}

	if err := validate(r); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	conf := Config{}
	if err := yaml.Unmarshal(r, &conf); err != nil {
		return nil, fmt.Errorf("error unmarshaling the configuration: %w", err)
	}

	return &conf, nil
}
