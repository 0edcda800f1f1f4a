// Package verifier checks a built pass archive offline the way a wallet does:
// flat namespace, required entries, manifest coverage and digests, and the
// detached signature over the exact manifest bytes.
package verifier
