package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/g960059/sadb/internal/bridge"
	"github.com/g960059/sadb/internal/dispatch"
	"github.com/g960059/sadb/internal/model"
)

var (
	ErrNoIPAddress = errors.New("could not get IP address of device")
	ErrNeedsSingle = errors.New("command targets a single device")
)

// InterruptFunc derives a context that is cancelled when the user interrupts.
type InterruptFunc func(ctx context.Context) (context.Context, context.CancelFunc)

func signalInterrupts(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

type Options struct {
	Out        io.Writer
	In         io.Reader
	Logger     *log.Logger
	WriteFile  func(name string, data []byte, perm os.FileMode) error
	Sleep      func(time.Duration)
	Interrupts InterruptFunc
	// OnRecordState observes every recording state transition.
	OnRecordState func(RecordState)
}

// Service runs the single-device workflows.
type Service struct {
	client     *bridge.Client
	dispatcher *dispatch.Dispatcher
	out        io.Writer
	in         io.Reader
	log        *log.Logger
	writeFile  func(name string, data []byte, perm os.FileMode) error
	sleep      func(time.Duration)
	interrupts InterruptFunc
	onState    func(RecordState)
}

func NewService(client *bridge.Client, dispatcher *dispatch.Dispatcher, opts Options) *Service {
	s := &Service{
		client:     client,
		dispatcher: dispatcher,
		out:        opts.Out,
		in:         opts.In,
		log:        opts.Logger,
		writeFile:  opts.WriteFile,
		sleep:      opts.Sleep,
		interrupts: opts.Interrupts,
		onState:    opts.OnRecordState,
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.in == nil {
		s.in = os.Stdin
	}
	if s.log == nil {
		s.log = log.New(io.Discard)
	}
	if s.writeFile == nil {
		s.writeFile = os.WriteFile
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}
	if s.interrupts == nil {
		s.interrupts = signalInterrupts
	}
	return s
}

// SingleDevice unwraps a Selection for commands that cannot fan out.
func SingleDevice(sel model.Selection) (string, error) {
	switch s := sel.(type) {
	case model.Single:
		return s.Device, nil
	case model.All:
		return "", fmt.Errorf("%w: got %d devices", ErrNeedsSingle, len(s.List))
	default:
		return "", fmt.Errorf("%w: no device selected", ErrNeedsSingle)
	}
}
