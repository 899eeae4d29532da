// Package transcode turns a lossless release directory into a transcoded
// release directory.
//
// Analyze inspects every source file once per release and decides whether
// the release needs resampling to 16 bit (and to which rate) and whether it
// needs a stereo downmix. Plan turns that profile and a codec into the argv
// chain for one file. Transcoder.TranscodeRelease drives the whole release:
// it owns the output directory, feeds a bounded worker pool, verifies tags on
// every output, copies auxiliary files, and removes the output directory
// entirely when anything fails.
//
// Kind classifies any error this package returns into a short, stable name
// for operator-facing output and the run history.
package transcode
