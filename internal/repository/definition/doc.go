// Package definition implements persistence for pass definitions.
//
// The FileRepository loads and stores pass.json and personalization.json in
// a pass source directory using the canonical pass encoding.
package definition
