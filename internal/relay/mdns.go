package relay

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service relays announce themselves under.
const ServiceType = "_ideaboard._tcp"

// Advertise announces a relay listening on port to the local network.
// Close the returned server to withdraw the announcement.
func Advertise(port int, info []string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, append([]string{"ideaboard"}, info...))
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Peer is a relay found on the local network.
type Peer struct {
	Host string   `json:"host"`
	Addr string   `json:"addr"`
	Info []string `json:"info,omitempty"`
}

// Discover browses the local network for relays until timeout or ctx ends.
func Discover(ctx context.Context, timeout time.Duration) ([]Peer, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	var peers []Peer
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			peers = append(peers, Peer{
				Host: e.Host,
				Addr: fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port),
				Info: e.InfoFields,
			})
		}
	}()

	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return nil, fmt.Errorf("mDNS lookup failed: %w", err)
	}
	return peers, nil
}
