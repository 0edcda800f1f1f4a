// Package manifest computes the content manifest of a pass archive: a JSON
// object mapping every covered file name to the lowercase hex SHA-1 digest of
// its bytes.
//
// Collect reads each staged file exactly once and returns the bytes it hashed
// together with the manifest, so the archive writes precisely what was
// digested. Encode is deterministic: keys are sorted and the same manifest
// always yields the same bytes.
package manifest
