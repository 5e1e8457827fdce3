// Package model defines the data structures used throughout the application.
package model

// VersionInfo contains build-time metadata about maxbuild itself.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}
