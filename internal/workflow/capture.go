package workflow

import (
	"context"
	"fmt"

	"github.com/g960059/sadb/internal/bridge"
	"github.com/g960059/sadb/internal/parse"
)

const DefaultScreenshotName = "screenshot.png"

func (s *Service) Screenshot(ctx context.Context, device, filename string) error {
	if filename == "" {
		filename = DefaultScreenshotName
	}
	res, err := s.client.Capture(ctx, device, bridge.Screencap())
	if err != nil {
		return fmt.Errorf("take screenshot: %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("take screenshot on %s: %w (%d)", device, bridge.ErrExitStatus, res.ExitCode)
	}
	if err := s.writeFile(filename, res.Stdout, 0o644); err != nil {
		return fmt.Errorf("save screenshot: %w", err)
	}
	_, _ = fmt.Fprintf(s.out, "Screenshot saved to %s\n", filename)
	return nil
}

// Search prints installed packages containing term. No match is not an error.
func (s *Service) Search(ctx context.Context, device, term string) ([]string, error) {
	res, err := s.client.Capture(ctx, device, bridge.ListPackages())
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("list packages on %s: %w (%d)", device, bridge.ErrExitStatus, res.ExitCode)
	}
	listing, err := res.Text()
	if err != nil {
		return nil, fmt.Errorf("parse package list output: %w", err)
	}
	matches := parse.MatchPackages(listing, term)
	for _, m := range matches {
		_, _ = fmt.Fprintln(s.out, m)
	}
	if len(matches) == 0 {
		if near := parse.ClosestPackages(listing, term, 3); len(near) > 0 {
			s.log.Info("no packages matched", "term", term, "closest", near)
		}
	}
	return matches, nil
}

// Raw forwards args verbatim after the device prefix. A non-zero exit is logged only.
func (s *Service) Raw(ctx context.Context, device string, args []string) error {
	if _, err := s.dispatcher.Raw(ctx, device, args); err != nil {
		return fmt.Errorf("run raw adb command: %w", err)
	}
	return nil
}

// Mirror starts the screen mirroring tool and blocks until it exits.
func (s *Service) Mirror(ctx context.Context, device string) error {
	res, err := s.client.Mirror(ctx, device)
	if err != nil {
		return fmt.Errorf("run mirror tool: %w", err)
	}
	if !res.Success() {
		s.log.Error("mirror tool failed", "device", device, "exit", res.ExitCode)
	}
	return nil
}
