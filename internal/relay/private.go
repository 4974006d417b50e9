package relay

import (
	"net"
	"net/netip"
	"syscall"

	"github.com/pkg/errors"
)

// ErrPrivateAddress is returned when an allowed host resolves to a LAN,
// loopback or otherwise non-public address.
var ErrPrivateAddress = errors.New("upstream address is not public")

// Carrier-grade NAT: 100.64.0.0/10
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// IsPrivateAddr reports whether addr is not a public unicast address.
func IsPrivateAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsUnspecified(),
		addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast():
		return true
	}
	return addr.Is4() && sharedAddressSpace.Contains(addr)
}

// refusePrivate is a net.Dialer Control hook. It runs after DNS resolution,
// so a public name pointing at an internal address is still refused.
func refusePrivate(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return errors.Wrapf(err, "bad dial address %q", address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return errors.Wrapf(err, "bad dial address %q", address)
	}
	if IsPrivateAddr(addr) {
		return errors.Wrapf(ErrPrivateAddress, "refusing to dial %s", address)
	}
	return nil
}
