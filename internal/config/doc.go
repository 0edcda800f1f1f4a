// Package config defines the pkpass settings file and provides helpers to
// load, validate and save it in YAML format.
//
// The Config type locates the signing identity and trust roots, selects the
// signature digest and archive compression, and carries the log settings.
package config
