package sandbox

import "strconv"

// SubmitRequest is the Go shape of the submit-code contract.
type SubmitRequest struct {
	ChatKey           string
	CodeText          string
	CotContent        string
	OutputLimit       int
	GenerationTimeMs  int64
	TriggerSenderID   int64
	TriggerSenderName string
}

// SubmitResult is the Go shape of the submit-code contract's return value.
type SubmitResult struct {
	DisplayOutput string
	StopType      StopType
}

// applyDefaults fills in the contract's documented defaults.
func (r *SubmitRequest) applyDefaults() {
	if r.OutputLimit <= 0 {
		r.OutputLimit = 1000
	}
}

// truncate implements the output truncation law (P5): when len(raw) >
// limit, the result starts with a header reporting the hidden count and
// ends with the last limit characters of raw.
func truncate(raw string, limit int) string {
	r := []rune(raw)
	if len(r) <= limit {
		return raw
	}
	hidden := len(r) - limit
	header := "(output too long, hidden " + strconv.Itoa(hidden) + " characters)..."
	return header + string(r[len(r)-limit:])
}
