// Package pipeline runs chains of external processes connected by OS pipes.
//
// Every stage is its own process with its own argv; nothing passes through a
// shell. Stage i's stdout feeds stage i+1's stdin. All stages of one chain
// share a process group led by the first stage, so cancellation reaches
// every descendant: the group receives SIGTERM and, after a grace period,
// SIGKILL. Execute returns only after every started stage has been reaped.
//
// Exit status and a bounded tail of stderr are recorded for every stage.
// Classify turns those results into a single verdict: the first genuine
// failure wins, and broken-pipe terminations only count when nothing else
// failed.
package pipeline
