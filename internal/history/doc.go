// Package history persists a record of every release transcode in a local
// SQLite database so operators can review past runs and their failures.
//
// Each run stores one row per source file. Stage stderr for failed files is
// kept zstd-compressed alongside the job row.
package history
