package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/g960059/sadb/internal/bridge"
	"github.com/g960059/sadb/internal/db"
	"github.com/g960059/sadb/internal/parse"
	"github.com/g960059/sadb/internal/workflow"
)

func (r *Runner) rootCommand(g *globals) *cobra.Command {
	root := &cobra.Command{
		Use:           "sadb",
		Short:         "A wrapper for adb on multiple devices",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			g.started = true
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			g.started = true
			return cmd.Help()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/sadb/config.yaml)")
	pf.StringVar(&g.adbPath, "adb", "", "path to the adb executable")
	pf.StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&g.noHistory, "no-history", false, "do not record runs in the history database")

	root.AddCommand(
		r.batchCommand(g, "stop <package_name>", "Stop a package on all or a single device", bridge.StopPackage),
		r.batchCommand(g, "start <package_name>", "Start a package on all or a single device", bridge.StartPackage),
		r.batchCommand(g, "clear <package_name>", "Clear a package's storage on all or a single device", bridge.ClearPackage),
		r.batchCommand(g, "install <apk>", "Install an APK on all or a single device", bridge.InstallAPK),
		r.batchCommand(g, "uninstall <package_name>", "Uninstall a package on all or a single device", bridge.UninstallPackage),
		r.singleCommand(g, "scrcpy", "Start scrcpy on a device", cobra.NoArgs, func(ctx context.Context, s *session, device string, _ []string) error {
			return s.workflows.Mirror(ctx, device)
		}),
		r.singleCommand(g, "ip", "Get the selected device's IP address", cobra.NoArgs, func(ctx context.Context, s *session, device string, _ []string) error {
			_, _, err := s.workflows.IP(ctx, device)
			return err
		}),
		r.screenshotCommand(g),
		r.recordCommand(g),
		r.singleCommand(g, "wifi", "Connect to a device via WiFi", cobra.NoArgs, func(ctx context.Context, s *session, device string, _ []string) error {
			_, err := s.workflows.Wifi(ctx, device)
			return err
		}),
		r.singleCommand(g, "search <search_term>", "Search for an installed package on a device", cobra.ExactArgs(1), func(ctx context.Context, s *session, device string, args []string) error {
			_, err := s.workflows.Search(ctx, device, args[0])
			return err
		}),
		r.rawCommand(g),
		r.devicesCommand(g),
		r.historyCommand(g),
	)
	return root
}

// batchCommand builds a subcommand that may fan out to every device.
func (r *Runner) batchCommand(g *globals, use, short string, build func(string) bridge.Command) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := r.newSession(ctx, g, true)
			if err != nil {
				return err
			}
			defer s.Close()
			sel, err := r.selectTarget(ctx, s, true)
			if err != nil || sel == nil {
				return err
			}
			_, err = s.dispatcher.Dispatch(ctx, sel, build(args[0]))
			return err
		},
	}
}

type singleFunc func(ctx context.Context, s *session, device string, args []string) error

func (r *Runner) singleCommand(g *globals, use, short string, argsCheck cobra.PositionalArgs, fn singleFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  argsCheck,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runSingle(cmd.Context(), g, false, args, fn)
		},
	}
}

func (r *Runner) runSingle(ctx context.Context, g *globals, withHistory bool, args []string, fn singleFunc) error {
	s, err := r.newSession(ctx, g, withHistory)
	if err != nil {
		return err
	}
	defer s.Close()
	sel, err := r.selectTarget(ctx, s, false)
	if err != nil || sel == nil {
		return err
	}
	device, err := workflow.SingleDevice(sel)
	if err != nil {
		return err
	}
	return fn(ctx, s, device, args)
}

func (r *Runner) screenshotCommand(g *globals) *cobra.Command {
	var filename string
	cmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Take a screenshot of a device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runSingle(cmd.Context(), g, false, args, func(ctx context.Context, s *session, device string, _ []string) error {
				return s.workflows.Screenshot(ctx, device, filename)
			})
		},
	}
	cmd.Flags().StringVarP(&filename, "filename", "f", workflow.DefaultScreenshotName, "file to save the screenshot as")
	return cmd
}

func (r *Runner) recordCommand(g *globals) *cobra.Command {
	var filename string
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the screen of a device (Press CTRL-C to stop recording)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runSingle(cmd.Context(), g, false, args, func(ctx context.Context, s *session, device string, _ []string) error {
				_, err := s.workflows.Record(ctx, device, filename)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&filename, "filename", "f", workflow.DefaultRecordingName, "file to save the screen recording as")
	return cmd
}

func (r *Runner) rawCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "r [args]...",
		Short: "Run an adb command on a device",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runSingle(cmd.Context(), g, true, args, func(ctx context.Context, s *session, device string, args []string) error {
				return s.workflows.Raw(ctx, device, args)
			})
		},
	}
	// everything after the first positional belongs to adb
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (r *Runner) devicesCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List attached devices and their state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := r.newSession(ctx, g, false)
			if err != nil {
				return err
			}
			defer s.Close()
			raw, err := s.client.ListDevices(ctx)
			if err != nil {
				return fmt.Errorf("get connected devices: %w", err)
			}
			entries := parse.DeviceEntries(raw)
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(r.out, "No devices found")
				return nil
			}
			for _, e := range entries {
				_, _ = fmt.Fprintf(r.out, "%s\t%s\n", e.Serial, e.Status)
			}
			return nil
		},
	}
}

type historyRow struct {
	RunID      string    `json:"run_id"`
	BatchID    string    `json:"batch_id"`
	Kind       string    `json:"kind"`
	Device     string    `json:"device"`
	Args       []string  `json:"args"`
	ExitCode   int       `json:"exit_code"`
	Outcome    string    `json:"outcome"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (r *Runner) historyCommand(g *globals) *cobra.Command {
	var (
		limit   int
		device  string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent per-device command outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := r.deps.LoadConfig(g.configPath)
			if err != nil {
				return err
			}
			if g.noHistory || !cfg.HistoryEnabled {
				_, _ = fmt.Fprintln(r.out, "History is disabled")
				return nil
			}
			if !cmd.Flags().Changed("limit") {
				limit = cfg.HistoryLimit
			}
			store, err := r.openStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close() //nolint:errcheck
			runs, err := store.ListRuns(ctx, db.RunFilter{Device: device, Limit: limit})
			if err != nil {
				return err
			}
			if jsonOut {
				rows := make([]historyRow, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, historyRow{
						RunID:      run.RunID,
						BatchID:    run.BatchID,
						Kind:       string(run.Kind),
						Device:     run.Device,
						Args:       run.Args,
						ExitCode:   run.ExitCode,
						Outcome:    string(run.Outcome),
						StartedAt:  run.StartedAt,
						FinishedAt: run.FinishedAt,
					})
				}
				enc := json.NewEncoder(r.out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"runs": rows})
			}
			for _, run := range runs {
				_, _ = fmt.Fprintf(r.out, "%s\t%s\t%s\t%d\t%s\t%s\n",
					run.StartedAt.Local().Format(time.DateTime), run.Device, run.Outcome, run.ExitCode, run.Kind, strings.Join(run.Args, " "))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of rows")
	cmd.Flags().StringVar(&device, "device", "", "only show runs for this device")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}
