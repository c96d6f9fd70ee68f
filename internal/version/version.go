// Package version provides build and version information for Sentient Stage.
package version

// Version is the current release version of Sentient Stage.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/AaronLay10/SentientStage/internal/version.Version=x.y.z"
var Version = "0.3.0"
