// Package version reports the build of an edgecam binary.
//
// Version, commit, branch and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/edgecam/version.Version=1.0.0"
//
// Unset values are filled from the module's embedded VCS settings.
package version
