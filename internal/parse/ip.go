package parse

import "strings"

// IPv4 returns the address on the first line mentioning "inet" but not
// "inet6". Only that first line is considered: if it is malformed the result
// is absent even when a later line would have matched.
func IPv4(output string) (string, bool) {
	for _, line := range splitLines(output) {
		if !strings.Contains(line, "inet") || strings.Contains(line, "inet6") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			return "", false
		}
		addr, _, _ := strings.Cut(parts[1], "/")
		if addr == "" {
			return "", false
		}
		return addr, true
	}
	return "", false
}
