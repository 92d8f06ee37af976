package model

import "time"

// DeviceStatus is the connection state reported by the bridge for one device.
type DeviceStatus string

const (
	DeviceStatusDevice       DeviceStatus = "device"
	DeviceStatusOffline      DeviceStatus = "offline"
	DeviceStatusUnauthorized DeviceStatus = "unauthorized"
)

// Usable reports whether commands can be sent to a device in this state.
func (s DeviceStatus) Usable() bool {
	return s == DeviceStatusDevice
}

// DeviceEntry is one row of the enumeration output, whatever its status.
type DeviceEntry struct {
	Serial string
	Status DeviceStatus
}

// Selection is the resolved target of a command. It is either Single or All.
type Selection interface {
	// Devices returns the targeted identifiers in dispatch order.
	Devices() []string
	isSelection()
}

// Single targets exactly one device.
type Single struct {
	Device string
}

func (s Single) Devices() []string { return []string{s.Device} }
func (Single) isSelection()        {}

// All targets every enumerated device, in enumeration order.
type All struct {
	List []string
}

func (a All) Devices() []string { return append([]string(nil), a.List...) }
func (All) isSelection()        {}

type RunKind string

const (
	RunKindBatch RunKind = "batch"
	RunKindRaw   RunKind = "raw"
)

// RunOutcome classifies what happened to one per-device invocation.
type RunOutcome string

const (
	RunOutcomeOK     RunOutcome = "ok"
	RunOutcomeFailed RunOutcome = "failed"
	RunOutcomeSpawn  RunOutcome = "spawn_error"
)

// RunRecord is one per-device invocation persisted in the history store.
type RunRecord struct {
	RunID      string
	BatchID    string
	Kind       RunKind
	Device     string
	Args       []string
	ExitCode   int
	Outcome    RunOutcome
	StartedAt  time.Time
	FinishedAt time.Time
}
