// Package logs reads the daily JSON log files written by the logging package.
//
// Latest picks the newest file in the log directory, Tail returns its last N
// lines with bounded memory, and Follow polls for appended lines until the
// context ends. Both accept a Match filter such as RunFilter so the CLI can
// show the records of a single release run.
package logs
