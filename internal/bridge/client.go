package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/g960059/sadb/internal/config"
)

// ErrExitStatus marks a bridge step whose non-zero exit is fatal to the caller.
var ErrExitStatus = errors.New("non-zero exit status")

// Client speaks to the adb and mirroring executables through a Runner.
type Client struct {
	cfg    config.Config
	runner Runner
	log    *log.Logger
}

func NewClient(cfg config.Config, logger *log.Logger) *Client {
	return NewClientWithRunner(cfg, NewOSRunner(), logger)
}

func NewClientWithRunner(cfg config.Config, runner Runner, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{cfg: cfg, runner: runner, log: logger}
}

func (c *Client) Config() config.Config {
	return c.cfg
}

// ListDevices returns the raw `adb devices` text.
func (c *Client) ListDevices(ctx context.Context) (string, error) {
	c.log.Debug("exec", "bin", c.cfg.ADBPath, "args", "devices")
	res, err := c.runner.Output(ctx, c.cfg.ADBPath, "devices")
	if err != nil {
		return "", fmt.Errorf("list devices: %w", err)
	}
	if !res.Success() {
		return "", fmt.Errorf("list devices: %w (%d)", ErrExitStatus, res.ExitCode)
	}
	out, err := res.Text()
	if err != nil {
		return "", fmt.Errorf("parse device list output: %w", err)
	}
	return out, nil
}

// Exec runs cmd against device with stdio attached.
func (c *Client) Exec(ctx context.Context, device string, cmd Command) (Result, error) {
	args := cmd.For(device)
	c.log.Debug("exec", "bin", c.cfg.ADBPath, "device", device, "args", cmd.String())
	return c.runner.Run(ctx, c.cfg.ADBPath, args...)
}

// Capture runs cmd against device and returns its stdout.
func (c *Client) Capture(ctx context.Context, device string, cmd Command) (Result, error) {
	c.log.Debug("capture", "bin", c.cfg.ADBPath, "device", device, "args", cmd.String())
	return c.runner.Output(ctx, c.cfg.ADBPath, cmd.For(device)...)
}

// Spawn starts cmd against device; cancelling ctx interrupts the child.
func (c *Client) Spawn(ctx context.Context, device string, cmd Command) (Process, error) {
	c.log.Debug("spawn", "bin", c.cfg.ADBPath, "device", device, "args", cmd.String())
	return c.runner.Start(ctx, c.cfg.ADBPath, cmd.For(device)...)
}

// Connect issues the top-level `adb connect <host>:<port>`.
func (c *Client) Connect(ctx context.Context, host string) (Result, error) {
	addr := host + ":" + strconv.Itoa(c.cfg.WifiPort)
	c.log.Debug("exec", "bin", c.cfg.ADBPath, "args", "connect "+addr)
	return c.runner.Run(ctx, c.cfg.ADBPath, "connect", addr)
}

// TCPIP switches the device's adbd to listen on the configured port.
func (c *Client) TCPIP(ctx context.Context, device string) (Result, error) {
	return c.Exec(ctx, device, NewCommand("tcpip", strconv.Itoa(c.cfg.WifiPort)))
}

// Mirror launches the screen-mirroring tool for device.
func (c *Client) Mirror(ctx context.Context, device string) (Result, error) {
	c.log.Debug("exec", "bin", c.cfg.MirrorPath, "device", device)
	return c.runner.Run(ctx, c.cfg.MirrorPath, "-s", device)
}
