package rtc

import (
	"net"
	"strings"
)

// cgnat is the shared address space used by carrier NAT, Tailscale and
// Cloudflare WARP. Direct paths out of it rarely work.
var cgnat = mustCIDR("100.64.0.0/10")

// tunnelMarkers are interface name fragments of VPN and tunnel adapters.
var tunnelMarkers = []string{"tun", "tap", "wg", "ppp", "warp"}

// RestrictedNetwork reports whether an up, non-loopback interface looks
// like a VPN tunnel or sits behind CGNAT, in which case relay candidates
// are the only ones likely to connect.
func RestrictedNetwork() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			addrs = nil
		}
		if restrictedInterface(iface.Name, addrs) {
			return true
		}
	}
	return false
}

func restrictedInterface(name string, addrs []net.Addr) bool {
	name = strings.ToLower(name)
	for _, marker := range tunnelMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}

	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip != nil && cgnat.Contains(ip) {
			return true
		}
	}
	return false
}

func mustCIDR(s string) *net.IPNet {
	_, block, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return block
}
