// Package version records the ahcinit build version.
package version

// Version is the current ahcinit version.
const Version = "0.1.0"
