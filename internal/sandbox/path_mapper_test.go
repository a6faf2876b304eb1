package sandbox

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMapper(t *testing.T) (*PathMapper, string, string) {
	t.Helper()
	uploadRoot := t.TempDir()
	sharedRoot := t.TempDir()
	m, err := NewPathMapper(uploadRoot, sharedRoot)
	require.NoError(t, err)
	return m, uploadRoot, sharedRoot
}

func TestToHostPath_Uploads(t *testing.T) {
	m, uploadRoot, _ := newTestMapper(t)

	got, err := m.ToHostPath("/app/uploads/image.png", "chat1", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(uploadRoot, "chat1", "image.png"), got)
}

func TestToHostPath_Shared(t *testing.T) {
	m, _, sharedRoot := newTestMapper(t)

	got, err := m.ToHostPath("/app/shared/out.csv", "chat1", "sandbox_chat1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sharedRoot, "sandbox_chat1", "out.csv"), got)
}

func TestToHostPath_SharedWithoutContainerKeyFails(t *testing.T) {
	m, _, _ := newTestMapper(t)

	_, err := m.ToHostPath("/app/shared/out.csv", "chat1", "")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestToHostPath_RelativePathPrependsAppRoot(t *testing.T) {
	m, uploadRoot, _ := newTestMapper(t)

	got, err := m.ToHostPath("uploads/nested/file.txt", "chat1", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(uploadRoot, "chat1", "nested", "file.txt"), got)
}

func TestToHostPath_NoMarkerFails(t *testing.T) {
	m, _, _ := newTestMapper(t)

	_, err := m.ToHostPath("/app/tmp/foo", "chat1", "")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

// P9: for every shared filename f, ToHostPath("/app/shared/"+f, ...) ==
// SharedRoot/container_key/f.
func TestToHostPath_SharedRoundTrip(t *testing.T) {
	m, _, sharedRoot := newTestMapper(t)

	for _, f := range []string{"a.txt", "nested/b.txt", "c"} {
		got, err := m.ToHostPath("/app/shared/"+f, "chat1", "sandbox_chat1")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(sharedRoot, "sandbox_chat1", f), got)
	}
}

// P8: translating an upload path produced by GetUploadFilePath back
// through ToHostPath yields the same host path.
func TestGetUploadFilePath_RoundTrip(t *testing.T) {
	m, _, _ := newTestMapper(t)

	hostPath, err := m.GetUploadFilePath("chat1", "report.pdf", "", "")
	require.NoError(t, err)

	sandboxPath := FilenameToSandboxUploadPath("report.pdf")
	again, err := m.ToHostPath(sandboxPath, "chat1", "")
	require.NoError(t, err)
	assert.Equal(t, hostPath, again)
}

func TestGetUploadFilePath_SynthesizesName(t *testing.T) {
	m, _, _ := newTestMapper(t)

	p1, err := m.GetUploadFilePath("chat1", "", ".png", "seed-a")
	require.NoError(t, err)
	p2, err := m.GetUploadFilePath("chat1", "", ".png", "seed-a")
	require.NoError(t, err)
	assert.Equal(t, p1, p2, "same seed must synthesize the same name")

	p3, err := m.GetUploadFilePath("chat1", "", ".png", "seed-b")
	require.NoError(t, err)
	assert.NotEqual(t, p1, p3)
}
