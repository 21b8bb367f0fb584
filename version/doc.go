// Package version reports the gohost build.
//
// Version, commit and build time are set at compile time:
//
//	go build -ldflags "-X github.com/kbukum/gohost/version.Version=1.0.0"
package version
