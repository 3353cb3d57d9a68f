// Package common holds service metadata and logger construction shared by
// all binaries in this repository.
package common

// PackageName identifies this service in logs and metrics.
var PackageName = "api-server-template"

// Version is the service version. Overridden at build time via
// -ldflags "-X github.com/ruteri/api-server-template/common.Version=...".
var Version = "dev"
