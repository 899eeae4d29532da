package transcode

import (
	"context"

	"reencode/internal/pipeline"
)

// executePipeline runs one job's stage chain. It is a package-level variable
// so tests can substitute a fake executor.
var executePipeline = pipeline.Execute

// SetExecutorForTests overrides the pipeline executor during tests.
func SetExecutorForTests(fn func(context.Context, []pipeline.Stage, pipeline.Options) (pipeline.Result, error)) func() {
	previous := executePipeline
	executePipeline = fn
	return func() {
		executePipeline = previous
	}
}
