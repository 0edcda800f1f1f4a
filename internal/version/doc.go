// Package version exposes build metadata for pkpass.
//
// Version, Commit and BuildTime are injected via -ldflags; when Commit is
// empty the VCS revision stamped by the Go toolchain is used instead.
package version
