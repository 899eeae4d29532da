package transcode

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// outputLock is an advisory lock that keeps two reencode processes from
// claiming the same output directory.
type outputLock struct {
	lock *flock.Flock
}

func acquireOutputLock(lockDir, outputDir string) (*outputLock, error) {
	if lockDir == "" {
		return &outputLock{}, nil
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	sum := sha256.Sum256([]byte(outputDir))
	path := filepath.Join(lockDir, hex.EncodeToString(sum[:8])+".lock")

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is being written by another reencode process", ErrOutputAlreadyExists, outputDir)
	}
	return &outputLock{lock: lock}, nil
}

func (l *outputLock) release() {
	if l == nil || l.lock == nil {
		return
	}
	_ = l.lock.Unlock()
}
