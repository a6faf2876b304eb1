package sandbox

import "strings"

// StopType tags how a sandboxed execution ended.
type StopType int

// Numeric values match the order callers of the submit-code contract
// expect in stop_code.
const (
	StopNormal StopType = iota
	StopAgent
	StopManual
	StopError
	StopTimeout
)

func (s StopType) String() string {
	switch s {
	case StopNormal:
		return "normal"
	case StopAgent:
		return "agent"
	case StopManual:
		return "manual"
	case StopError:
		return "error"
	case StopTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Succeeded reports whether the stop type counts as a successful
// execution (Normal or Agent).
func (s StopType) Succeeded() bool {
	return s == StopNormal || s == StopAgent
}

// sentinels, checked in this fixed order so the first match wins.
var sentinelOrder = []struct {
	typ  StopType
	flag string
}{
	{StopNormal, "[SANDBOX_RUN_ENDS_WITH_NORMAL]"},
	{StopAgent, "[SANDBOX_RUN_ENDS_WITH_AGENT]"},
	{StopManual, "[SANDBOX_RUN_ENDS_WITH_MANUAL]"},
	{StopError, "[SANDBOX_RUN_ENDS_WITH_ERROR]"},
}

// Classify inspects captured output for the launcher script's sentinel
// markers and returns the stop type plus the output with the matched
// sentinel removed. If no sentinel is found, the result is StopError with
// the output unchanged.
func Classify(output string) (StopType, string) {
	trimmed := strings.TrimSpace(output)
	for _, s := range sentinelOrder {
		if strings.Contains(trimmed, s.flag) {
			return s.typ, strings.TrimSpace(strings.Replace(trimmed, s.flag, "", 1))
		}
	}
	return StopError, output
}

// StripSentinels removes every known sentinel from output, regardless of
// order or count. Used unconditionally on the timeout path, where no
// sentinel is expected but a stray one should never leak to the caller.
func StripSentinels(output string) string {
	out := output
	for _, s := range sentinelOrder {
		out = strings.ReplaceAll(out, s.flag, "")
	}
	return strings.TrimSpace(out)
}
