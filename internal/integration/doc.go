// Package integration exercises the pkpass entry points end to end:
// scaffolding, building, batch builds and offline verification.
package integration
