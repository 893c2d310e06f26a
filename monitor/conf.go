package monitor

import (
	"time"

	"github.com/goccy/go-yaml"

	"github.com/scitags/hostwatch/sockdiag"
)

type Config struct {
	// Interval between cycles [ms].
	Interval int `yaml:"interval"`

	// InterfacePeriod between interface discoveries [ms]: the topology
	// seldom changes.
	InterfacePeriod int `yaml:"interfacePeriod"`

	// Evict sockets and processes not seen in a cycle.
	Evict bool `yaml:"evict"`

	SockDiag sockdiag.Config `yaml:"sockdiag"`
}

var DefaultConfig = Config{
	Interval:        1000,
	InterfacePeriod: 60000,
	Evict:           true,
	SockDiag:        sockdiag.DefaultConfig,
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

func (c Config) interval() time.Duration {
	return time.Duration(c.Interval) * time.Millisecond
}

func (c Config) interfacePeriod() time.Duration {
	return time.Duration(c.InterfacePeriod) * time.Millisecond
}
