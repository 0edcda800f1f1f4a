// Package packager builds signed pass archives.
//
// A Source resolves the pass definition, stages the assets of its directory
// into a private workspace, computes the manifest, signs it and publishes the
// archive. The stages run strictly in that order and each consumes only the
// output of the previous one; the first failure stops the build, and the
// workspace is removed on every exit path. Run, RunBatch and Init are the
// entry points used by the pkpass commands.
package packager
