package sandbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// P5: output truncation law.
func TestTruncate_UnderLimitUnchanged(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 100))
}

func TestTruncate_OverLimit(t *testing.T) {
	raw := strings.Repeat("A", 10000)
	got := truncate(raw, 100)

	assert.True(t, strings.HasPrefix(got, "(output too long, hidden 9900 characters)..."))
	assert.True(t, strings.HasSuffix(got, strings.Repeat("A", 100)))
}

func TestSubmitRequest_DefaultsOutputLimit(t *testing.T) {
	req := SubmitRequest{}
	req.applyDefaults()
	assert.Equal(t, 1000, req.OutputLimit)
}
