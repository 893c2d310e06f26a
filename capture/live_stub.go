//go:build !linux

package capture

func OpenLive(iface, filter string, snaplen int) (Source, error) {
	return nil, ErrUnsupported
}
