package sandbox

import "github.com/docker/docker/errdefs"

// isNotFound reports whether err represents the container engine telling
// us a container is already gone. Using the SDK's typed predicate instead
// of matching "404" in an error string (Design Notes §9) keeps this
// correct across API versions and transports.
func isNotFound(err error) bool {
	return err != nil && errdefs.IsNotFound(err)
}
