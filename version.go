// Package legisflow provides the version information for legisflow.
package legisflow

// Version is the current version of legisflow.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
