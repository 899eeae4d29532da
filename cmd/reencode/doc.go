// Command reencode transcodes lossless FLAC releases into lossy or
// downsampled lossless editions.
//
// Results go to stdout and logs go to stderr, so the output directory of a
// transcode can be captured with $(reencode transcode ...).
package main
