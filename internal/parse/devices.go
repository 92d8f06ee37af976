package parse

import (
	"strings"

	"github.com/g960059/sadb/internal/model"
)

// DeviceEntries parses `adb devices` output. The first line is the
// "List of devices attached" header and is always dropped; lines with fewer
// than two fields are skipped.
func DeviceEntries(output string) []model.DeviceEntry {
	lines := splitLines(output)
	if len(lines) <= 1 {
		return nil
	}
	entries := make([]model.DeviceEntry, 0, len(lines)-1)
	for _, line := range lines[1:] {
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		entries = append(entries, model.DeviceEntry{
			Serial: parts[0],
			Status: model.DeviceStatus(parts[1]),
		})
	}
	return entries
}

// Devices returns the serials whose status is exactly "device", in input order.
func Devices(output string) []string {
	serials := make([]string, 0)
	for _, e := range DeviceEntries(output) {
		if e.Status.Usable() {
			serials = append(serials, e.Serial)
		}
	}
	return serials
}

func splitLines(output string) []string {
	if output == "" {
		return nil
	}
	return strings.Split(output, "\n")
}
