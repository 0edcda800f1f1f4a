// Package signing produces and checks detached PKCS#7 signatures over
// manifest bytes.
//
// An Identity couples the pass type certificate with its private key and the
// intermediate certificates embedded into every signature. Identities load
// from a PEM certificate and key pair or from a PKCS#12 bundle. PKCS7Signer
// signs with RSA over SHA-256 by default; SHA-1 is available for consumers
// that still require it. The signature never embeds the signed content.
package signing
