//go:build !linux

package sockdiag

import (
	"errors"

	"github.com/scitags/hostwatch/types"
)

type Flow struct {
	Local   string         `structs:"local"`
	Remote  string         `structs:"remote"`
	State   types.State    `structs:"state"`
	Inode   uint32         `structs:"inode"`
	UID     uint32         `structs:"uid"`
	Cong    string         `structs:"cong"`
	TCPInfo *types.TCPInfo `structs:"tcpInfo,omitempty"`
}

func Inspect(src, dst uint16) ([]Flow, error) {
	return nil, errors.ErrUnsupported
}

func InspectWithConfig(src, dst uint16, conf Config) ([]Flow, error) {
	return nil, errors.ErrUnsupported
}
