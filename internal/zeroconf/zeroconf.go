// Package zeroconf advertises the clock daemon's HTTP API as an mDNS/DNS-SD
// service so clients can find it on the LAN without an address.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD type the API is registered under.
const ServiceType = "_http._tcp"

// Service manages mDNS service registration.
type Service struct {
	name string // instance name, e.g. "clockgen"
	port int
	txt  []string
}

// New creates a Service that will advertise the API on port with the given
// TXT records.
func New(name string, port int, txt []string) *Service {
	return &Service{
		name: name,
		port: port,
		txt:  txt,
	}
}

// TXTRecords builds the TXT records describing one clock generator.
func TXTRecords(variant string, addr uint16, backend string) []string {
	return []string{
		"path=/api",
		"variant=" + variant,
		fmt.Sprintf("addr=0x%02x", addr),
		"backend=" + backend,
	}
}

// Start registers the mDNS service and blocks until ctx is cancelled, at which
// point it shuts down the server cleanly.
func (s *Service) Start(ctx context.Context) error {
	server, err := zeroconf.Register(
		s.name,      // instance name
		ServiceType, // service type
		"local.",    // domain
		s.port,      // port
		s.txt,       // TXT records
		nil,         // all interfaces
	)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	slog.Info("zeroconf: registered mDNS service",
		"name", s.name,
		"port", s.port,
		"txt", s.txt,
	)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}
