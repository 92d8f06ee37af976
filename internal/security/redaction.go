package security

import (
	"regexp"
	"strings"
)

const marker = "[REDACTED]"

var (
	secretKeyExpr        = `(?:password|passwd|secret|api[_-]?key|[a-z0-9._-]*token[a-z0-9._-]*)`
	kvSecretPattern      = regexp.MustCompile(`(?i)(` + secretKeyExpr + `)\s*[:=]\s*(?:"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|[^\s"']+)`)
	authorizationPattern = regexp.MustCompile(`(?i)(authorization\s*:\s*)[^\r\n]+`)
	bearerTokenPattern   = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]+`)
	secretFlagPattern    = regexp.MustCompile(`(?i)^--?` + secretKeyExpr + `$`)
)

// RedactValue masks key=value secrets and auth headers inside a single string.
func RedactValue(input string) string {
	if input == "" {
		return ""
	}
	out := kvSecretPattern.ReplaceAllStringFunc(input, func(match string) string {
		idx := strings.IndexAny(match, ":=")
		if idx < 0 {
			return marker
		}
		return match[:idx+1] + marker
	})
	out = authorizationPattern.ReplaceAllString(out, `${1}`+marker)
	out = bearerTokenPattern.ReplaceAllString(out, "Bearer "+marker)
	return out
}

// RedactArgs returns a copy of an adb argument vector that is safe to persist.
// Text typed through `input text`, values following secret-looking flags, and
// key=value secrets are masked. args itself is never modified.
func RedactArgs(args []string) []string {
	out := make([]string, len(args))
	maskNext := false
	for i, arg := range args {
		switch {
		case maskNext:
			out[i] = marker
			maskNext = false
			continue
		case secretFlagPattern.MatchString(arg):
			out[i] = arg
			maskNext = true
			continue
		}
		out[i] = redactInputText(RedactValue(arg))
		if i > 0 && strings.EqualFold(args[i-1], "input") && strings.EqualFold(arg, "text") {
			maskNext = true
		}
	}
	return out
}

// redactInputText handles `shell "input text foo"` where the whole shell
// command arrives as one argument.
func redactInputText(arg string) string {
	fields := strings.Fields(arg)
	for i := 0; i+2 < len(fields); i++ {
		if strings.EqualFold(fields[i], "input") && strings.EqualFold(fields[i+1], "text") {
			return strings.Join(append(fields[:i+2:i+2], marker), " ")
		}
	}
	return arg
}
