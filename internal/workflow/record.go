package workflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/g960059/sadb/internal/bridge"
)

const DefaultRecordingName = "video.mp4"

type RecordState string

const (
	RecordIdle            RecordState = "idle"
	RecordSpawned         RecordState = "spawned"
	RecordInterruptArmed  RecordState = "interrupt_armed"
	RecordCollecting      RecordState = "collecting"
	RecordSaved           RecordState = "saved"
	RecordCleanupPrompted RecordState = "cleanup_prompted"
	RecordCleanupDone     RecordState = "cleanup_done"
	RecordTerminal        RecordState = "terminal"
)

type RecordResult struct {
	RemotePath    string
	LocalPath     string
	Saved         bool
	RemoteRemoved bool
}

// recording lives for one Record call and owns the child process.
type recording struct {
	device string
	remote string
	local  string
	proc   bridge.Process
	state  RecordState
	notify func(RecordState)
}

func (r *recording) to(next RecordState) {
	r.state = next
	if r.notify != nil {
		r.notify(next)
	}
}

// RemotePath maps a local file name onto the device's scratch directory.
func RemotePath(remoteDir, filename string) string {
	return path.Join(remoteDir, filepath.Base(filename))
}

// Record captures the device screen until the user interrupts, waits for the
// device to flush the file, pulls it, and offers to delete the remote copy.
func (s *Service) Record(ctx context.Context, device, filename string) (RecordResult, error) {
	if filename == "" {
		filename = DefaultRecordingName
	}
	cfg := s.client.Config()
	rec := &recording{
		device: device,
		remote: RemotePath(cfg.RemoteDir, filename),
		local:  filename,
		state:  RecordIdle,
		notify: s.onState,
	}
	result := RecordResult{RemotePath: rec.remote, LocalPath: rec.local}
	defer rec.to(RecordTerminal)

	armed, disarm := s.interrupts(ctx)
	defer disarm()

	_, _ = fmt.Fprintln(s.out, "Recording... Press CTRL-C to stop.")
	proc, err := s.client.Spawn(armed, device, bridge.ScreenRecord(rec.remote))
	if err != nil {
		return result, fmt.Errorf("start screen recording: %w", err)
	}
	rec.proc = proc
	rec.to(RecordSpawned)
	rec.to(RecordInterruptArmed)

	if err := rec.proc.Wait(); err != nil {
		s.log.Debug("screenrecord exited", "device", device, "err", err)
	}
	rec.to(RecordCollecting)

	_, _ = fmt.Fprintln(s.out, "\nWaiting for recording to save to device...")
	s.sleep(cfg.RecordGrace)

	res, err := s.client.Exec(ctx, device, bridge.Pull(rec.remote, rec.local))
	if err != nil {
		return result, fmt.Errorf("pull recording from device: %w", err)
	}
	if !res.Success() {
		s.log.Warn("pull failed", "device", device, "remote", rec.remote, "exit", res.ExitCode)
		return result, nil
	}
	result.Saved = true
	rec.to(RecordSaved)

	dest := rec.local
	if abs, err := filepath.Abs(rec.local); err == nil {
		dest = abs
	}
	_, _ = fmt.Fprintf(s.out, "Success! Screen recording saved to %s\n", dest)

	rec.to(RecordCleanupPrompted)
	remove, err := confirmDefaultYes(s.in, s.out, "\nDelete video from device? (Y/n): ")
	if err != nil {
		return result, fmt.Errorf("read answer: %w", err)
	}
	if remove {
		res, err := s.client.Exec(ctx, device, bridge.RemoveRemote(rec.remote))
		switch {
		case err != nil:
			s.log.Debug("remove remote recording", "device", device, "err", err)
		case !res.Success():
			s.log.Debug("remove remote recording", "device", device, "exit", res.ExitCode)
		default:
			result.RemoteRemoved = true
		}
	}
	rec.to(RecordCleanupDone)
	return result, nil
}

// confirmDefaultYes treats an empty answer, end of input, or "y" in any case as yes.
func confirmDefaultYes(in io.Reader, out io.Writer, question string) (bool, error) {
	_, _ = fmt.Fprint(out, question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "" || answer == "y", nil
}
