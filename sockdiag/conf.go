package sockdiag

import (
	"github.com/goccy/go-yaml"

	hnl "github.com/scitags/hostwatch/netlink"
	"github.com/scitags/hostwatch/types"
)

// Config holds the inet_diag_req_v2 knobs. States is a bitmask with bit n set
// for every state n (see types.State) we want reported.
type Config struct {
	Protocol uint8  `yaml:"protocol"`
	Ext      uint8  `yaml:"ext"`
	States   uint32 `yaml:"states"`
}

var DefaultConfig = Config{
	Protocol: hnl.IPPROTO_TCP,
	Ext:      1 << (hnl.INET_DIAG_INFO - 1),
	States:   types.TCP_ALL_FLAGS,
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
