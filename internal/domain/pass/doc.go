// Package pass contains the wallet pass definition: the pass.json data model,
// its canonical JSON encoding and a chained Builder that finalizes into one of
// the five pass styles.
//
// The canonical encoding omits every key that sits at its documented default
// (false flags, natural alignment, empty lists, empty optional strings). The
// decision is made per key when encoding, and Decode applies the same defaults
// when keys are missing, so Decode(Encode(p)) yields p again.
package pass
