package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"reencode/internal/pipeline"
	"reencode/internal/transcode"
)

// JobStatus is the final state of one file in a run.
type JobStatus string

const (
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
	JobSkipped JobStatus = "skipped"
)

// Run is one persisted release transcode.
type Run struct {
	ID           int64     `json:"id" yaml:"id"`
	RunID        string    `json:"run_id" yaml:"run_id"`
	SourceDir    string    `json:"source_dir" yaml:"source_dir"`
	OutputDir    string    `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	Codec        string    `json:"codec" yaml:"codec"`
	State        string    `json:"state" yaml:"state"`
	ErrorKind    string    `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Files        int       `json:"files" yaml:"files"`
	Auxiliary    int       `json:"auxiliary" yaml:"auxiliary"`
	Resampled    bool      `json:"resampled" yaml:"resampled"`
	TargetRate   int       `json:"target_rate,omitempty" yaml:"target_rate,omitempty"`
	Downmixed    bool      `json:"downmixed" yaml:"downmixed"`
	TorrentPath  string    `json:"torrent_path,omitempty" yaml:"torrent_path,omitempty"`
	StartedAt    time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time `json:"finished_at" yaml:"finished_at"`
	Jobs         []Job     `json:"jobs,omitempty" yaml:"jobs,omitempty"`
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Job is one file's record within a run.
type Job struct {
	Rel          string    `json:"path" yaml:"path"`
	Output       string    `json:"output,omitempty" yaml:"output,omitempty"`
	Status       JobStatus `json:"status" yaml:"status"`
	ErrorMessage string    `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	DurationMs   int64     `json:"duration_ms" yaml:"duration_ms"`
	// Diagnostics holds the captured stderr of the job's stages.
	Diagnostics string `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// FromOutcome converts a coordinator outcome into a Run.
func FromOutcome(outcome transcode.Outcome, runErr error) Run {
	run := Run{
		RunID:      outcome.RunID,
		SourceDir:  outcome.SourceDir,
		OutputDir:  outcome.Dir,
		Codec:      outcome.Codec.Name,
		State:      string(outcome.State),
		Files:      len(outcome.Jobs),
		Auxiliary:  outcome.Auxiliary,
		Resampled:  outcome.Profile.NeedsResample,
		TargetRate: outcome.Profile.TargetSampleRate,
		Downmixed:  outcome.Profile.NeedsDownmix,
		StartedAt:  outcome.Started,
		FinishedAt: outcome.Finished,
	}
	if runErr != nil {
		run.ErrorKind = string(transcode.Kind(runErr))
		run.ErrorMessage = runErr.Error()
	}
	for _, res := range outcome.Jobs {
		job := Job{
			Rel:        filepath.ToSlash(res.Job.Rel),
			Output:     res.Output,
			Status:     JobDone,
			DurationMs: res.Duration.Milliseconds(),
		}
		switch {
		case res.Skipped:
			job.Status = JobSkipped
		case res.Err != nil:
			job.Status = JobFailed
			job.ErrorMessage = res.Err.Error()
			job.Diagnostics = diagnostics(res.Result)
		}
		run.Jobs = append(run.Jobs, job)
	}
	return run
}

func diagnostics(result pipeline.Result) string {
	var b strings.Builder
	for _, stage := range result.Stages {
		if len(stage.Stderr) == 0 {
			continue
		}
		bin := ""
		if len(stage.Args) > 0 {
			bin = filepath.Base(stage.Args[0])
		}
		fmt.Fprintf(&b, "== stage %d (%s) exit=%d", stage.Ordinal, bin, stage.ExitCode)
		if stage.StderrTruncated {
			b.WriteString(" [truncated]")
		}
		b.WriteByte('\n')
		b.Write(stage.Stderr)
		if !strings.HasSuffix(string(stage.Stderr), "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Record inserts run and its jobs, returning the row identifier.
func (s *Store) Record(ctx context.Context, run Run) (int64, error) {
	if run.RunID == "" {
		return 0, errors.New("record run: run id is required")
	}
	var id int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin record tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx, `INSERT INTO runs (
            run_id, source_dir, output_dir, codec, state, error_kind, error_message,
            files, auxiliary, resampled, target_rate, downmixed, torrent_path,
            started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID,
			run.SourceDir,
			nullableString(run.OutputDir),
			run.Codec,
			run.State,
			nullableString(run.ErrorKind),
			nullableString(run.ErrorMessage),
			run.Files,
			run.Auxiliary,
			boolToInt(run.Resampled),
			run.TargetRate,
			boolToInt(run.Downmixed),
			nullableString(run.TorrentPath),
			run.StartedAt.UTC().Format(timeLayout),
			run.FinishedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		for _, job := range run.Jobs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO jobs (
                run_id, rel_path, output_path, status, error_message, duration_ms, diagnostics
            ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id,
				job.Rel,
				nullableString(job.Output),
				string(job.Status),
				nullableString(job.ErrorMessage),
				job.DurationMs,
				compressDiagnostics(job.Diagnostics),
			); err != nil {
				return fmt.Errorf("insert job %s: %w", job.Rel, err)
			}
		}
		return tx.Commit()
	})
	return id, err
}

// SetTorrent attaches a torrent file path to a recorded run.
func (s *Store) SetTorrent(ctx context.Context, runID, torrentPath string) error {
	return retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `UPDATE runs SET torrent_path = ? WHERE run_id = ?`, torrentPath, runID)
		if err != nil {
			return fmt.Errorf("update torrent path: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("update torrent path: run %s not found", runID)
		}
		return nil
	})
}

const runColumns = "id, run_id, source_dir, output_dir, codec, state, error_kind, error_message, files, auxiliary, resampled, target_rate, downmixed, torrent_path, started_at, finished_at"

// List returns the most recent runs, newest first, without their jobs.
// A limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get loads one run with its jobs. ref is either the numeric row id or a
// run id prefix. It returns nil when nothing matches.
func (s *Store) Get(ctx context.Context, ref string) (*Run, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("get run: empty reference")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE CAST(id AS TEXT) = ? OR substr(run_id, 1, ?) = ?
         ORDER BY (CAST(id AS TEXT) = ?) DESC, id DESC LIMIT 1`,
		ref, utf8.RuneCountInString(ref), ref, ref)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	jobs, err := s.jobs(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Jobs = jobs
	return &run, nil
}

// Prune deletes runs that started before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("prune runs: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

func (s *Store) jobs(ctx context.Context, runRowID int64) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rel_path, output_path, status, error_message, duration_ms, diagnostics FROM jobs WHERE run_id = ? ORDER BY rel_path`,
		runRowID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			job          Job
			output       sql.NullString
			status       string
			errorMessage sql.NullString
			diag         []byte
		)
		if err := rows.Scan(&job.Rel, &output, &status, &errorMessage, &job.DurationMs, &diag); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.Output = output.String
		job.Status = JobStatus(status)
		job.ErrorMessage = errorMessage.String
		if job.Diagnostics, err = decompressDiagnostics(diag); err != nil {
			return nil, fmt.Errorf("job %s diagnostics: %w", job.Rel, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run          Run
		outputDir    sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
		resampled    int
		downmixed    int
		torrentPath  sql.NullString
		startedRaw   string
		finishedRaw  string
	)
	if err := scanner.Scan(
		&run.ID,
		&run.RunID,
		&run.SourceDir,
		&outputDir,
		&run.Codec,
		&run.State,
		&errorKind,
		&errorMessage,
		&run.Files,
		&run.Auxiliary,
		&resampled,
		&run.TargetRate,
		&downmixed,
		&torrentPath,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Run{}, err
	}
	run.OutputDir = outputDir.String
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String
	run.Resampled = resampled != 0
	run.Downmixed = downmixed != 0
	run.TorrentPath = torrentPath.String
	run.StartedAt = parseTimeString(startedRaw)
	run.FinishedAt = parseTimeString(finishedRaw)
	return run, nil
}
