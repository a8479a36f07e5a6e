package reachability

import (
	"context"
	"net"
	"strings"
	"time"
)

// Probe performs a single connectivity check
type Probe interface {
	Probe(ctx context.Context) Status
}

// ProbeFunc adapts a function to Probe
type ProbeFunc func(ctx context.Context) Status

// Probe calls f
func (f ProbeFunc) Probe(ctx context.Context) Status {
	return f(ctx)
}

// cellularPrefixes are interface name prefixes used by mobile data links
var cellularPrefixes = []string{"pdp_ip", "rmnet", "ccmni", "wwan", "wwp", "ppp"}

// TCPProbe dials Address and classifies the interface the connection
// left through.
type TCPProbe struct {
	Address string
	Timeout time.Duration

	// Interfaces lists local interfaces; nil uses net.Interfaces
	Interfaces func() ([]net.Interface, error)
}

// Probe implements Probe
func (p *TCPProbe) Probe(ctx context.Context) Status {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return StatusNotReachable
	}
	defer conn.Close()

	local, ok := conn.LocalAddr().(*net.TCPAddr)
	if !ok {
		return StatusReachableViaWiFi
	}
	return p.classify(local.IP)
}

func (p *TCPProbe) classify(ip net.IP) Status {
	list := p.Interfaces
	if list == nil {
		list = net.Interfaces
	}
	ifaces, err := list()
	if err != nil {
		return StatusReachableViaWiFi
	}

	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || !ipnet.IP.Equal(ip) {
				continue
			}
			if IsCellularInterface(iface.Name) {
				return StatusReachableViaCellular
			}
			return StatusReachableViaWiFi
		}
	}
	return StatusReachableViaWiFi
}

// IsCellularInterface reports whether name looks like a mobile data link
func IsCellularInterface(name string) bool {
	name = strings.ToLower(name)
	for _, prefix := range cellularPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
