package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// Resolver turns a peer name into the addresses it may connect from or be dialed on
type Resolver interface {
	Resolve(ctx context.Context, name string) ([]net.IP, error)
}

// SystemResolver uses the resolver of the operating system
type SystemResolver struct{}

// Resolve implements Resolver
func (SystemResolver) Resolve(ctx context.Context, name string) ([]net.IP, error) {
	if ip := net.ParseIP(name); ip != nil {
		return []net.IP{ip}, nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, name)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		ips = append(ips, addr.IP)
	}
	return ips, nil
}

// StaticResolver resolves names from a fixed table
type StaticResolver map[string][]string

// Resolve implements Resolver
func (s StaticResolver) Resolve(ctx context.Context, name string) ([]net.IP, error) {
	if ip := net.ParseIP(name); ip != nil {
		return []net.IP{ip}, nil
	}
	var ips []net.IP
	for _, addr := range s[name] {
		if ip := net.ParseIP(addr); ip != nil {
			ips = append(ips, ip)
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no address known for %s", name)
	}
	return ips, nil
}

// DNSResolver queries A and AAAA records of a specific name server
type DNSResolver struct {
	Server  string // host:port of the name server
	Timeout time.Duration
}

// NewDNSResolver returns a resolver querying server, port 53 is added when missing
func NewDNSResolver(server string) *DNSResolver {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &DNSResolver{Server: server, Timeout: 2 * time.Second}
}

// Resolve implements Resolver
func (r *DNSResolver) Resolve(ctx context.Context, name string) ([]net.IP, error) {
	if ip := net.ParseIP(name); ip != nil {
		return []net.IP{ip}, nil
	}

	c := &dns.Client{Timeout: r.Timeout}
	var ips []net.IP
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(name), qtype)
		resp, _, err := c.ExchangeContext(ctx, m, r.Server)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("lookup %s: %s", name, dns.RcodeToString[resp.Rcode])
			continue
		}
		for _, rr := range resp.Answer {
			switch record := rr.(type) {
			case *dns.A:
				ips = append(ips, record.A)
			case *dns.AAAA:
				ips = append(ips, record.AAAA)
			}
		}
	}

	if len(ips) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("lookup %s: no addresses", name)
		}
		return nil, lastErr
	}
	return ips, nil
}
