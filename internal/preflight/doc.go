// Package preflight provides readiness checks for the filesystem paths,
// external binaries and tracker that reencode depends on.
//
// The CLI "reencode check" command runs every check and prints the results.
// "reencode transcode" runs the binary and directory checks before starting so
// a missing encoder fails fast instead of after the output directory exists.
package preflight
