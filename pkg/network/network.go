package network

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/schubergphilis/clumon/pkg/logging"
)

// Iface is a interface that can have ip's
type Iface struct {
	Name string
	Ipv4 []Address
	Ipv6 []Address
}

// Address contins the ip + netmask
type Address struct {
	IP      string
	Netmask int
}

// Resolver turns a node name into addresses
type Resolver interface {
	Resolve(ctx context.Context, name string) ([]net.IP, error)
}

// interfaceAddrs is replaced in tests
var interfaceAddrs = systemInterfaces

func systemInterfaces() (map[string]Iface, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	ifaces := make(map[string]Iface, len(ifs))
	for _, i := range ifs {
		addrs, err := i.Addrs()
		if err != nil {
			return nil, fmt.Errorf("addresses of %s: %w", i.Name, err)
		}
		iface := Iface{Name: i.Name}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ones, _ := ipnet.Mask.Size()
			addr := Address{IP: ipnet.IP.String(), Netmask: ones}
			if ipnet.IP.To4() != nil {
				iface.Ipv4 = append(iface.Ipv4, addr)
			} else {
				iface.Ipv6 = append(iface.Ipv6, addr)
			}
		}
		ifaces[i.Name] = iface
	}
	return ifaces, nil
}

// addSubnet returns ip as a host network in CIDR notation
func addSubnet(ip string) string {
	if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() == nil {
		return ip + "/128"
	}
	return ip + "/32"
}

// LocalInterface returns the interface ip is configured on, or "" when it is not local
func LocalInterface(ip net.IP) (string, error) {
	config, err := interfaceAddrs()
	if err != nil {
		return "", err
	}
	for name, iface := range config {
		for _, addr := range append(iface.Ipv4, iface.Ipv6...) {
			if net.ParseIP(addr.IP).Equal(ip) {
				return name, nil
			}
		}
	}
	return "", nil
}

// LocalSubnet returns the interface whose network contains ip, or "" when
// ip is not on a directly connected network
func LocalSubnet(ip net.IP) (string, error) {
	config, err := interfaceAddrs()
	if err != nil {
		return "", err
	}
	for name, iface := range config {
		for _, addr := range append(iface.Ipv4, iface.Ipv6...) {
			if SameSubnet(addr, ip.String()) {
				return name, nil
			}
		}
	}
	return "", nil
}

// SameSubnet reports whether ip falls in the network of addr
func SameSubnet(addr Address, ip string) bool {
	_, ipnetA, err := net.ParseCIDR(fmt.Sprintf("%s/%d", addr.IP, addr.Netmask))
	if err != nil {
		return false
	}
	ipB, _, err := net.ParseCIDR(addSubnet(ip))
	if err != nil {
		return false
	}
	return ipnetA.Contains(ipB)
}

// DetectLocalName returns the first of names that resolves to an address of
// this host. Names are tried in the given order. When none matches, the error
// lists the names resolving into a local network.
func DetectLocalName(ctx context.Context, names []string, resolver Resolver) (string, error) {
	log := logging.For("network/detectlocalname")
	var nearby []string
	for _, name := range names {
		ips, err := resolver.Resolve(ctx, name)
		if err != nil {
			log.WithField("node", name).WithError(err).Debug("unable to resolve node")
			continue
		}
		for _, ip := range ips {
			iface, err := LocalInterface(ip)
			if err != nil {
				return "", err
			}
			if iface != "" {
				log.WithField("node", name).WithField("interface", iface).WithField("ip", ip.String()).Info("local node detected")
				return name, nil
			}
			subnet, err := LocalSubnet(ip)
			if err != nil {
				return "", err
			}
			if subnet != "" {
				log.WithField("node", name).WithField("interface", subnet).WithField("ip", ip.String()).Debug("node is on a local network but not on a local address")
				nearby = append(nearby, name)
			}
		}
	}
	if len(nearby) > 0 {
		return "", fmt.Errorf("none of the cluster nodes %v resolves to a local address (on a local network: %s)", names, strings.Join(nearby, ", "))
	}
	return "", fmt.Errorf("none of the cluster nodes %v resolves to a local address", names)
}
