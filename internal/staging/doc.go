// Package staging materializes the asset files of one build into a private
// Workspace.
//
// Staging is strictly one level deep: regular files at the root of the source
// directory are copied byte for byte under their original names. Directories,
// dot-files, non-regular files and reserved names are skipped and logged.
// A Workspace is owned by exactly one build and must be released on every
// exit path.
package staging
