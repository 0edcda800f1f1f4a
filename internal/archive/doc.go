// Package archive writes and reads pass archives: flat zip files whose
// entries all live at the archive root.
//
// The Assembler builds the whole archive before anything reaches the
// destination. go-update checks up front that the destination directory
// accepts new files, then the archive is written to a temporary file in the
// same directory and renamed over the destination. Readers see either the
// previous archive or the new one, never a missing or partial file.
package archive
