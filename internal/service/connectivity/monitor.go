package connectivity

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"os"
	"strings"

	"github.com/oshokin/wellness-node/internal/logger"
)

// Monitor reports whether the node has usable connectivity.
type Monitor interface {
	HasConnectivity(ctx context.Context) bool
}

// Always reports connectivity unconditionally. Used on development hosts.
type Always struct{}

// HasConnectivity implements Monitor.
func (Always) HasConnectivity(context.Context) bool {
	return true
}

const (
	// DefaultIPv6RouteTable is the kernel IPv6 routing table.
	DefaultIPv6RouteTable = "/proc/net/ipv6_route"
	// DefaultIPv4RouteTable is the kernel IPv4 routing table.
	DefaultIPv4RouteTable = "/proc/net/route"
)

// routeTable describes where a /proc route table keeps the fields that
// identify a default route.
type routeTable struct {
	// destColumn and maskColumn index the destination and its prefix.
	destColumn int
	maskColumn int
	// zeroDest and zeroMask are the kernel's hex spelling of "any".
	zeroDest string
	zeroMask string
	// ifaceColumn indexes the interface name, negative counts from the end.
	ifaceColumn int
}

//nolint:gochecknoglobals // Static table layouts.
var (
	ipv6Layout = routeTable{
		destColumn:  0,
		maskColumn:  1,
		zeroDest:    "00000000000000000000000000000000",
		zeroMask:    "00",
		ifaceColumn: -1,
	}
	ipv4Layout = routeTable{
		destColumn:  1,
		maskColumn:  7,
		zeroDest:    "00000000",
		zeroMask:    "00000000",
		ifaceColumn: 0,
	}
)

// AddrsFunc lists addresses of interfaces that are up and not loopback.
type AddrsFunc func() ([]net.Addr, error)

// NetMonitor checks interface addresses and the kernel routing tables.
type NetMonitor struct {
	// addrs lists candidate addresses.
	addrs AddrsFunc
	// ipv6Routes and ipv4Routes are paths to the kernel route tables.
	ipv6Routes string
	ipv4Routes string
}

// Option configures a NetMonitor.
type Option func(*NetMonitor)

// WithAddrs replaces the address source.
func WithAddrs(fn AddrsFunc) Option {
	return func(m *NetMonitor) {
		if fn != nil {
			m.addrs = fn
		}
	}
}

// WithRouteTables replaces the route table paths.
func WithRouteTables(ipv6, ipv4 string) Option {
	return func(m *NetMonitor) {
		m.ipv6Routes = ipv6
		m.ipv4Routes = ipv4
	}
}

// NewNetMonitor creates a monitor reading the live system state.
func NewNetMonitor(opts ...Option) *NetMonitor {
	m := &NetMonitor{
		addrs:      interfaceAddrs,
		ipv6Routes: DefaultIPv6RouteTable,
		ipv4Routes: DefaultIPv4RouteTable,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// HasConnectivity implements Monitor.
func (m *NetMonitor) HasConnectivity(ctx context.Context) bool {
	addrs, err := m.addrs()
	if err != nil {
		logger.DebugKV(ctx, "Unable to list interface addresses", "error", err)
		return false
	}

	hasIPv6, hasIPv4 := globalFamilies(addrs)

	return (hasIPv6 && hasDefaultRoute(ctx, m.ipv6Routes, ipv6Layout)) ||
		(hasIPv4 && hasDefaultRoute(ctx, m.ipv4Routes, ipv4Layout))
}

// globalFamilies reports which address families have a global unicast address.
func globalFamilies(addrs []net.Addr) (hasIPv6, hasIPv4 bool) {
	for _, addr := range addrs {
		var ip net.IP

		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		default:
			continue
		}

		if !ip.IsGlobalUnicast() {
			continue
		}

		if ip.To4() != nil {
			hasIPv4 = true
		} else {
			hasIPv6 = true
		}
	}

	return hasIPv6, hasIPv4
}

// hasDefaultRoute scans a /proc route table for a default route that
// does not point at the loopback interface.
func hasDefaultRoute(ctx context.Context, path string, layout routeTable) bool {
	if path == "" {
		return false
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		logger.DebugKV(ctx, "Unable to read route table", "path", path, "error", err)
		return false
	}

	scanner := bufio.NewScanner(bytes.NewReader(contents))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) <= max(layout.destColumn, layout.maskColumn, layout.ifaceColumn) {
			continue
		}

		if fields[layout.destColumn] != layout.zeroDest || fields[layout.maskColumn] != layout.zeroMask {
			continue
		}

		iface := layout.ifaceColumn
		if iface < 0 {
			iface += len(fields)
		}

		// The kernel keeps unreachable default entries on lo.
		if fields[iface] == "lo" {
			continue
		}

		return true
	}

	return false
}

func interfaceAddrs() ([]net.Addr, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var result []net.Addr

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		result = append(result, addrs...)
	}

	return result, nil
}
