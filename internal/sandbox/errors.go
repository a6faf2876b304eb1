package sandbox

import "errors"

// ErrInvalidPath is returned by the path mapper when a sandbox path does
// not resolve under either well-known root, or a shared path is missing
// its required container key.
var ErrInvalidPath = errors.New("sandbox: invalid path")

// ErrLaunchFailed is returned when a container cannot be prepared (share
// or upload directory, code files, name suffix, bridge token) or the
// container engine refuses to create or start it. No registry slot is
// claimed and no execution
// record is persisted when this error is returned.
var ErrLaunchFailed = errors.New("sandbox: container launch failed")
