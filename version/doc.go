// Package version reports build information for modkit binaries.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/modkit/version.Version=1.0.0" ./cmd/modkit-demo
//
// Anything left unset falls back to the VCS stamps in the binary's build info.
package version
