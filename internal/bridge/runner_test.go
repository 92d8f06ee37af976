package bridge

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestOSRunnerOutputCapturesStdout(t *testing.T) {
	requireShell(t)
	r := &OSRunner{Stderr: &bytes.Buffer{}}
	res, err := r.Output(context.Background(), "sh", "-c", "printf hello")
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if !res.Success() || string(res.Stdout) != "hello" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestOSRunnerNonZeroExitIsNotAnError(t *testing.T) {
	requireShell(t)
	r := &OSRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	res, err := r.Run(context.Background(), "sh", "-c", "exit 3")
	if err != nil {
		t.Fatalf("expected soft failure, got %v", err)
	}
	if res.ExitCode != 3 || res.Success() {
		t.Fatalf("expected exit code 3, got %+v", res)
	}
}

func TestOSRunnerMissingBinaryIsSpawnError(t *testing.T) {
	r := &OSRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	_, err := r.Run(context.Background(), "sadb-definitely-not-installed")
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	if _, err := r.Start(context.Background(), "sadb-definitely-not-installed"); !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn from Start, got %v", err)
	}
}

func TestOSRunnerStartInterruptsOnCancel(t *testing.T) {
	requireShell(t)
	r := &OSRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, WaitDelay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	p, err := r.Start(ctx, "sh", "-c", "exec sleep 30")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- p.Wait() }()
	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("child was not stopped after cancel")
	}
}
