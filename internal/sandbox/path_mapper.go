package sandbox

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// In-container well-known roots.
const (
	containerUploadsDir = "uploads"
	containerSharedDir  = "shared"
	containerWorkDir    = "/app"
)

// PathMapper translates paths as seen inside a sandbox container into
// their host equivalents, and vice versa, enforcing that every translated
// path lies under one of the two configured host roots.
type PathMapper struct {
	uploadRoot string
	sharedRoot string
}

// NewPathMapper resolves both host roots to absolute form.
func NewPathMapper(uploadRoot, sharedRoot string) (*PathMapper, error) {
	absUpload, err := filepath.Abs(uploadRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root: %w", err)
	}
	absShared, err := filepath.Abs(sharedRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve shared root: %w", err)
	}
	return &PathMapper{uploadRoot: absUpload, sharedRoot: absShared}, nil
}

// ToHostPath translates a path as seen inside the container to its host
// equivalent. containerKey is required when sandboxPath resolves under the
// shared root.
func (m *PathMapper) ToHostPath(sandboxPath, chatKey, containerKey string) (string, error) {
	p := sandboxPath
	if !filepath.IsAbs(p) {
		p = filepath.Join(containerWorkDir, p)
	}

	parts := strings.Split(filepath.Clean(p), string(filepath.Separator))

	for i, part := range parts {
		switch part {
		case containerUploadsDir:
			tail := filepath.Join(parts[i+1:]...)
			return filepath.Join(m.uploadRoot, chatKey, tail), nil
		case containerSharedDir:
			if containerKey == "" {
				return "", fmt.Errorf("%w: shared path %q requires a container key", ErrInvalidPath, sandboxPath)
			}
			tail := filepath.Join(parts[i+1:]...)
			return filepath.Join(m.sharedRoot, containerKey, tail), nil
		}
	}

	return "", fmt.Errorf("%w: %q does not resolve under uploads or shared", ErrInvalidPath, sandboxPath)
}

// UploadRoot returns the resolved host upload root.
func (m *PathMapper) UploadRoot() string { return m.uploadRoot }

// SharedRoot returns the resolved host shared root.
func (m *PathMapper) SharedRoot() string { return m.sharedRoot }

// FilenameToSandboxUploadPath converts a bare filename to its in-sandbox
// upload path. Multi-level paths are not supported; only the basename is
// kept.
func FilenameToSandboxUploadPath(filename string) string {
	return filepath.Join("/app", containerUploadsDir, filepath.Base(filename))
}

// FilenameToSandboxSharedPath converts a bare filename to its in-sandbox
// shared path. Only the basename is kept.
func FilenameToSandboxSharedPath(filename string) string {
	return filepath.Join("/app", containerSharedDir, filepath.Base(filename))
}

// FilepathToSandboxSharedPath preserves sub-paths when translating a
// relative path into the sandbox's shared directory.
func FilepathToSandboxSharedPath(relPath string) string {
	return filepath.Join("/app", containerSharedDir, relPath)
}

// FilepathToSandboxUploadPath preserves sub-paths when translating a
// relative path into the sandbox's upload directory.
func FilepathToSandboxUploadPath(relPath string) string {
	return filepath.Join("/app", containerUploadsDir, relPath)
}

// GetUploadFilePath returns a host upload path for a newly created
// artifact. When fileName is empty, a name is synthesized from
// md5(seed or a random UUID) + suffix. The parent directory is created;
// the file itself is not.
func (m *PathMapper) GetUploadFilePath(chatKey, fileName, suffix, seed string) (string, error) {
	if fileName == "" {
		if seed == "" {
			seed = uuid.New().String()
		}
		sum := md5.Sum([]byte(seed))
		fileName = hex.EncodeToString(sum[:]) + suffix
	}

	dir := filepath.Join(m.uploadRoot, chatKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	return filepath.Join(dir, filepath.Base(fileName)), nil
}
