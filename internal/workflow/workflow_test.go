package workflow

import (
	"bytes"
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/g960059/sadb/internal/bridge"
	"github.com/g960059/sadb/internal/config"
	"github.com/g960059/sadb/internal/dispatch"
	"github.com/g960059/sadb/internal/model"
	"github.com/g960059/sadb/internal/testutil"
)

const wlan0Output = "3: wlan0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500\n" +
	"    inet 192.168.1.100/24 brd 192.168.1.255 scope global wlan0\n" +
	"    inet6 fe80::1/64 scope link\n"

type harness struct {
	runner  *testutil.FakeRunner
	out     *bytes.Buffer
	files   map[string][]byte
	slept   []time.Duration
	states  []RecordState
	svc     *Service
	stdin   *strings.Reader
	trigger context.CancelFunc
}

func newHarness(t *testing.T, respond func(testutil.Call) testutil.Response, stdin string) *harness {
	t.Helper()
	h := &harness{
		runner: &testutil.FakeRunner{Respond: respond},
		out:    &bytes.Buffer{},
		files:  map[string][]byte{},
		stdin:  strings.NewReader(stdin),
	}
	client := bridge.NewClientWithRunner(config.DefaultConfig(), h.runner, nil)
	h.svc = NewService(client, dispatch.NewDispatcher(client, nil, nil), Options{
		Out: h.out,
		In:  h.stdin,
		WriteFile: func(name string, data []byte, _ os.FileMode) error {
			h.files[name] = append([]byte(nil), data...)
			return nil
		},
		Sleep: func(d time.Duration) { h.slept = append(h.slept, d) },
		Interrupts: func(ctx context.Context) (context.Context, context.CancelFunc) {
			armed, cancel := context.WithCancel(ctx)
			h.trigger = cancel
			return armed, cancel
		},
		OnRecordState: func(s RecordState) { h.states = append(h.states, s) },
	})
	return h
}

func TestSingleDevice(t *testing.T) {
	if d, err := SingleDevice(model.Single{Device: "a"}); err != nil || d != "a" {
		t.Fatalf("unexpected: %q %v", d, err)
	}
	if _, err := SingleDevice(model.All{List: []string{"a", "b"}}); !errors.Is(err, ErrNeedsSingle) {
		t.Fatalf("expected ErrNeedsSingle for All, got %v", err)
	}
	if _, err := SingleDevice(nil); !errors.Is(err, ErrNeedsSingle) {
		t.Fatalf("expected ErrNeedsSingle for nil, got %v", err)
	}
}

func TestIPFound(t *testing.T) {
	h := newHarness(t, func(testutil.Call) testutil.Response {
		return testutil.Response{Stdout: []byte(wlan0Output)}
	}, "")
	ip, ok, err := h.svc.IP(context.Background(), "d1")
	if err != nil || !ok || ip != "192.168.1.100" {
		t.Fatalf("unexpected result: %q %v %v", ip, ok, err)
	}
	if got := h.runner.Lines(); !reflect.DeepEqual(got, []string{"adb -s d1 shell ip addr show wlan0"}) {
		t.Fatalf("unexpected calls: %#v", got)
	}
	if !strings.Contains(h.out.String(), "d1's IP address is:\t 192.168.1.100") {
		t.Fatalf("unexpected output: %q", h.out.String())
	}
}

func TestIPNotFoundIsNotAnError(t *testing.T) {
	h := newHarness(t, func(testutil.Call) testutil.Response {
		return testutil.Response{Stdout: []byte("    inet6 fe80::1/64 scope link\n")}
	}, "")
	_, ok, err := h.svc.IP(context.Background(), "d1")
	if err != nil || ok {
		t.Fatalf("expected not found without error, got ok=%v err=%v", ok, err)
	}
	if !strings.Contains(h.out.String(), "Could not find IP address for device d1") {
		t.Fatalf("unexpected output: %q", h.out.String())
	}
}

func TestIPRejectsInvalidUTF8(t *testing.T) {
	h := newHarness(t, func(testutil.Call) testutil.Response {
		return testutil.Response{Stdout: []byte("    inet 10.0.0.\xff\xfe/24 scope global wlan0\n")}
	}, "")
	if _, ok, err := h.svc.IP(context.Background(), "d1"); ok || !errors.Is(err, bridge.ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got ok=%v err=%v", ok, err)
	}
	if h.out.Len() != 0 {
		t.Fatalf("nothing should be printed, got %q", h.out.String())
	}
}

func TestScreenshotWritesFile(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	h := newHarness(t, func(testutil.Call) testutil.Response {
		return testutil.Response{Stdout: png}
	}, "")
	if err := h.svc.Screenshot(context.Background(), "d1", ""); err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if !bytes.Equal(h.files[DefaultScreenshotName], png) {
		t.Fatalf("screenshot bytes not written: %#v", h.files)
	}
	if got := h.runner.Lines(); !reflect.DeepEqual(got, []string{"adb -s d1 exec-out screencap -p"}) {
		t.Fatalf("unexpected calls: %#v", got)
	}
}

func TestScreenshotFailureIsHard(t *testing.T) {
	h := newHarness(t, func(testutil.Call) testutil.Response {
		return testutil.Response{ExitCode: 1}
	}, "")
	if err := h.svc.Screenshot(context.Background(), "d1", "shot.png"); !errors.Is(err, bridge.ErrExitStatus) {
		t.Fatalf("expected ErrExitStatus, got %v", err)
	}
	if len(h.files) != 0 {
		t.Fatalf("no file should be written on failure")
	}
}

func TestWifiConnects(t *testing.T) {
	h := newHarness(t, testutil.ScriptByArgs(map[string]testutil.Response{
		"ip addr show": {Stdout: []byte(wlan0Output)},
	}), "")
	ok, err := h.svc.Wifi(context.Background(), "d1")
	if err != nil || !ok {
		t.Fatalf("expected connection, got ok=%v err=%v", ok, err)
	}
	want := []string{
		"adb -s d1 shell ip addr show wlan0",
		"adb -s d1 tcpip 5555",
		"adb connect 192.168.1.100:5555",
	}
	if got := h.runner.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected calls: %#v", got)
	}
	if !strings.Contains(h.out.String(), "Connected to d1 via WiFi") {
		t.Fatalf("unexpected output: %q", h.out.String())
	}
}

func TestWifiWithoutIPAborts(t *testing.T) {
	h := newHarness(t, func(testutil.Call) testutil.Response {
		return testutil.Response{Stdout: []byte("inet6 ::1/128\n")}
	}, "")
	if _, err := h.svc.Wifi(context.Background(), "d1"); !errors.Is(err, ErrNoIPAddress) {
		t.Fatalf("expected ErrNoIPAddress, got %v", err)
	}
	if n := len(h.runner.Calls()); n != 1 {
		t.Fatalf("expected to stop after ip lookup, got %d calls", n)
	}
}

func TestWifiInvalidUTF8AbortsBeforeTCPIP(t *testing.T) {
	h := newHarness(t, func(testutil.Call) testutil.Response {
		return testutil.Response{Stdout: []byte("    inet 10.0.0.\xff\xfe/24 scope global wlan0\n")}
	}, "")
	if _, err := h.svc.Wifi(context.Background(), "d1"); !errors.Is(err, bridge.ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
	if got := h.runner.Lines(); !reflect.DeepEqual(got, []string{"adb -s d1 shell ip addr show wlan0"}) {
		t.Fatalf("tcpip and connect must not run, got %#v", got)
	}
}

func TestWifiTCPIPFailureAborts(t *testing.T) {
	h := newHarness(t, testutil.ScriptByArgs(map[string]testutil.Response{
		"ip addr show": {Stdout: []byte(wlan0Output)},
		"tcpip":        {ExitCode: 1},
	}), "")
	if _, err := h.svc.Wifi(context.Background(), "d1"); !errors.Is(err, bridge.ErrExitStatus) {
		t.Fatalf("expected ErrExitStatus, got %v", err)
	}
	if n := len(h.runner.Calls()); n != 2 {
		t.Fatalf("connect must not run after tcpip failure, got %d calls", n)
	}
}

func TestWifiConnectFailureIsNotSuccess(t *testing.T) {
	h := newHarness(t, testutil.ScriptByArgs(map[string]testutil.Response{
		"ip addr show": {Stdout: []byte(wlan0Output)},
		"connect":      {ExitCode: 1},
	}), "")
	ok, err := h.svc.Wifi(context.Background(), "d1")
	if err != nil || ok {
		t.Fatalf("expected soft connect failure, got ok=%v err=%v", ok, err)
	}
	if strings.Contains(h.out.String(), "Connected") {
		t.Fatalf("must not report success: %q", h.out.String())
	}
}

func TestSearchPrintsMatches(t *testing.T) {
	listing := "package:com.android.chrome\npackage:com.example.app\npackage:com.example.other\n"
	h := newHarness(t, func(testutil.Call) testutil.Response {
		return testutil.Response{Stdout: []byte(listing)}
	}, "")
	matches, err := h.svc.Search(context.Background(), "d1", "example")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("unexpected matches: %#v", matches)
	}
	if h.out.String() != "package:com.example.app\npackage:com.example.other\n" {
		t.Fatalf("unexpected output: %q", h.out.String())
	}
	if got := h.runner.Lines(); !reflect.DeepEqual(got, []string{"adb -s d1 shell pm list packages"}) {
		t.Fatalf("unexpected calls: %#v", got)
	}
}

func TestSearchNoMatchIsNotAnError(t *testing.T) {
	h := newHarness(t, func(testutil.Call) testutil.Response {
		return testutil.Response{Stdout: []byte("package:com.android.chrome\n")}
	}, "")
	matches, err := h.svc.Search(context.Background(), "d1", "whatsapp")
	if err != nil || len(matches) != 0 {
		t.Fatalf("unexpected result: %#v %v", matches, err)
	}
}

func TestSearchRejectsInvalidUTF8(t *testing.T) {
	h := newHarness(t, func(testutil.Call) testutil.Response {
		return testutil.Response{Stdout: []byte("package:com.\xffbad\n")}
	}, "")
	matches, err := h.svc.Search(context.Background(), "d1", "com")
	if !errors.Is(err, bridge.ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
	if len(matches) != 0 || h.out.Len() != 0 {
		t.Fatalf("nothing should match or print, got %q / %q", matches, h.out.String())
	}
}

func TestRawIsSoftOnExitFailure(t *testing.T) {
	h := newHarness(t, func(testutil.Call) testutil.Response {
		return testutil.Response{ExitCode: 1}
	}, "")
	if err := h.svc.Raw(context.Background(), "d1", []string{"reboot", "bootloader"}); err != nil {
		t.Fatalf("raw exit failure must be soft: %v", err)
	}
	if got := h.runner.Lines(); !reflect.DeepEqual(got, []string{"adb -s d1 reboot bootloader"}) {
		t.Fatalf("unexpected calls: %#v", got)
	}
}

func TestRawSpawnFailureIsHard(t *testing.T) {
	h := newHarness(t, func(testutil.Call) testutil.Response {
		return testutil.Response{Err: bridge.ErrSpawn}
	}, "")
	if err := h.svc.Raw(context.Background(), "d1", []string{"devices"}); !errors.Is(err, bridge.ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
}

func TestMirror(t *testing.T) {
	h := newHarness(t, func(testutil.Call) testutil.Response {
		return testutil.Response{ExitCode: 2}
	}, "")
	if err := h.svc.Mirror(context.Background(), "d1"); err != nil {
		t.Fatalf("mirror failure must be soft: %v", err)
	}
	if got := h.runner.Lines(); !reflect.DeepEqual(got, []string{"scrcpy -s d1"}) {
		t.Fatalf("unexpected calls: %#v", got)
	}
}
