// Package version holds the build version, set with
// -ldflags "-X github.com/calm3366/bond-portfolio/internal/version.Version=...".
package version

// Version is the application version.
var Version = "dev"
