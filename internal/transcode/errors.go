package transcode

import (
	"context"
	"errors"

	"reencode/internal/pipeline"
	"reencode/internal/services"
	"reencode/internal/tags"
)

var (
	ErrUnsupportedSampleRate = errors.New("unsupported sample rate")
	ErrUnsupportedTarget     = errors.New("unsupported transcode target")
	ErrOutputAlreadyExists   = errors.New("output directory already exists")
	ErrNoSourceFiles         = errors.New("no source files")
	ErrPoolTimeout           = errors.New("transcode pool timed out")
)

// ErrorKind is a stable, operator-facing error class.
type ErrorKind string

const (
	KindUnsupportedSampleRate ErrorKind = "UnsupportedSampleRate"
	KindUnsupportedTarget     ErrorKind = "UnsupportedTarget"
	KindOutputAlreadyExists   ErrorKind = "OutputAlreadyExists"
	KindStageFailed           ErrorKind = "StageFailed"
	KindTagCheckFailed        ErrorKind = "TagCheckFailed"
	KindPoolTimeout           ErrorKind = "PoolTimeout"
	KindCancelled             ErrorKind = "Cancelled"
	KindNoSourceFiles         ErrorKind = "NoSourceFiles"
	KindJobTimeout            ErrorKind = "JobTimeout"
	KindExternalTool          ErrorKind = "ExternalTool"
	KindInternal              ErrorKind = "Internal"
)

// Kind classifies err. A nil error has no kind.
func Kind(err error) ErrorKind {
	var stageErr *pipeline.StageFailedError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedSampleRate):
		return KindUnsupportedSampleRate
	case errors.Is(err, ErrUnsupportedTarget):
		return KindUnsupportedTarget
	case errors.Is(err, ErrOutputAlreadyExists):
		return KindOutputAlreadyExists
	case errors.Is(err, ErrNoSourceFiles):
		return KindNoSourceFiles
	case errors.Is(err, ErrPoolTimeout):
		return KindPoolTimeout
	case errors.As(err, &stageErr):
		return KindStageFailed
	case errors.Is(err, tags.ErrTagCheckFailed):
		return KindTagCheckFailed
	case errors.Is(err, services.ErrTimeout):
		return KindJobTimeout
	case errors.Is(err, services.ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, services.ErrExternalTool):
		return KindExternalTool
	default:
		return KindInternal
	}
}
