package workflow

import (
	"context"
	"fmt"

	"github.com/g960059/sadb/internal/bridge"
	"github.com/g960059/sadb/internal/parse"
)

// IP prints the device's IPv4 address. Not finding one is not an error.
func (s *Service) IP(ctx context.Context, device string) (string, bool, error) {
	ip, ok, err := s.lookupIP(ctx, device)
	if err != nil {
		return "", false, err
	}
	if !ok {
		_, _ = fmt.Fprintf(s.out, "Could not find IP address for device %s\n", device)
		return "", false, nil
	}
	_, _ = fmt.Fprintf(s.out, "%s's IP address is:\t %s\n", device, ip)
	return ip, true, nil
}

func (s *Service) lookupIP(ctx context.Context, device string) (string, bool, error) {
	res, err := s.client.Capture(ctx, device, bridge.ShowAddress(s.client.Config().WifiInterface))
	if err != nil {
		return "", false, fmt.Errorf("get ip address: %w", err)
	}
	if !res.Success() {
		return "", false, fmt.Errorf("get ip address for %s: %w (%d)", device, bridge.ErrExitStatus, res.ExitCode)
	}
	out, err := res.Text()
	if err != nil {
		return "", false, fmt.Errorf("parse ip address output: %w", err)
	}
	ip, ok := parse.IPv4(out)
	return ip, ok, nil
}

// Wifi switches the device to TCP mode and connects to it over the network.
// Every step before the final connect is fatal on failure; the connect result
// decides whether the bridge is reported as up.
func (s *Service) Wifi(ctx context.Context, device string) (bool, error) {
	ip, ok, err := s.lookupIP(ctx, device)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("%w %s", ErrNoIPAddress, device)
	}

	res, err := s.client.TCPIP(ctx, device)
	if err != nil {
		return false, fmt.Errorf("enable tcpip mode: %w", err)
	}
	if !res.Success() {
		return false, fmt.Errorf("enable tcpip mode on %s: %w (%d)", device, bridge.ErrExitStatus, res.ExitCode)
	}

	res, err = s.client.Connect(ctx, ip)
	if err != nil {
		return false, fmt.Errorf("connect via wifi: %w", err)
	}
	if !res.Success() {
		s.log.Warn("wifi connect failed", "device", device, "ip", ip, "exit", res.ExitCode)
		return false, nil
	}
	_, _ = fmt.Fprintf(s.out, "Connected to %s via WiFi\n", device)
	return true, nil
}
