package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/g960059/sadb/internal/bridge"
	"github.com/g960059/sadb/internal/model"
	"github.com/g960059/sadb/internal/security"
)

var ErrNoSelection = errors.New("no selection")

// Journal persists per-device outcomes. Write failures never fail a dispatch.
type Journal interface {
	InsertRun(ctx context.Context, run model.RunRecord) error
}

type Outcome struct {
	Device   string
	ExitCode int
}

func (o Outcome) Success() bool {
	return o.ExitCode == 0
}

type Report struct {
	BatchID  string
	Outcomes []Outcome
}

// Failed lists devices whose command exited non-zero.
func (r Report) Failed() []string {
	out := make([]string, 0)
	for _, o := range r.Outcomes {
		if !o.Success() {
			out = append(out, o.Device)
		}
	}
	return out
}

type Dispatcher struct {
	client  *bridge.Client
	journal Journal
	log     *log.Logger
	now     func() time.Time
}

func NewDispatcher(client *bridge.Client, journal Journal, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Dispatcher{
		client:  client,
		journal: journal,
		log:     logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch runs cmd once per selected device, strictly in order. A device
// exiting non-zero is logged and the batch continues; a spawn failure aborts
// the remaining devices.
func (d *Dispatcher) Dispatch(ctx context.Context, sel model.Selection, cmd bridge.Command) (Report, error) {
	var devices []string
	switch s := sel.(type) {
	case model.Single:
		devices = []string{s.Device}
	case model.All:
		devices = s.List
	case nil:
		return Report{}, ErrNoSelection
	default:
		return Report{}, fmt.Errorf("unsupported selection %T", sel)
	}
	return d.run(ctx, model.RunKindBatch, devices, cmd)
}

// Raw forwards a caller-supplied argument vector to a single device.
func (d *Dispatcher) Raw(ctx context.Context, device string, args []string) (Outcome, error) {
	report, err := d.run(ctx, model.RunKindRaw, []string{device}, bridge.NewCommand(args...))
	if err != nil {
		return Outcome{}, err
	}
	return report.Outcomes[0], nil
}

func (d *Dispatcher) run(ctx context.Context, kind model.RunKind, devices []string, cmd bridge.Command) (Report, error) {
	report := Report{BatchID: uuid.NewString(), Outcomes: make([]Outcome, 0, len(devices))}
	for _, device := range devices {
		started := d.now()
		res, err := d.client.Exec(ctx, device, cmd)
		if err != nil {
			d.record(ctx, report.BatchID, kind, device, cmd, -1, model.RunOutcomeSpawn, started)
			return report, fmt.Errorf("run on %s: %w", device, err)
		}
		outcome := model.RunOutcomeOK
		if !res.Success() {
			outcome = model.RunOutcomeFailed
			d.log.Warn("command failed on device", "device", device, "exit", res.ExitCode)
		}
		d.record(ctx, report.BatchID, kind, device, cmd, res.ExitCode, outcome, started)
		report.Outcomes = append(report.Outcomes, Outcome{Device: device, ExitCode: res.ExitCode})
	}
	return report, nil
}

func (d *Dispatcher) record(ctx context.Context, batchID string, kind model.RunKind, device string, cmd bridge.Command, code int, outcome model.RunOutcome, started time.Time) {
	if d.journal == nil {
		return
	}
	err := d.journal.InsertRun(ctx, model.RunRecord{
		RunID:      uuid.NewString(),
		BatchID:    batchID,
		Kind:       kind,
		Device:     device,
		Args:       security.RedactArgs(cmd.Args()),
		ExitCode:   code,
		Outcome:    outcome,
		StartedAt:  started,
		FinishedAt: d.now(),
	})
	if err != nil {
		d.log.Warn("record run", "device", device, "err", err)
	}
}
