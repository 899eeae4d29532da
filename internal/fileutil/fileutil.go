// Package fileutil holds the verified copy used for auxiliary release files.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrDigestMismatch reports that the bytes written differ from the bytes read.
var ErrDigestMismatch = errors.New("copy digest mismatch")

// CopyVerified copies src to dst, creating dst's parents. dst must not exist.
// Permission bits and modification time follow src. The SHA-256 of what was
// read is compared to what was written and dst is removed on any failure.
func CopyVerified(src, dst string) (err error) {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	read, wrote := sha256.New(), sha256.New()
	n, err := io.Copy(io.MultiWriter(out, wrote), io.TeeReader(in, read))
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if n != info.Size() {
		return fmt.Errorf("%w: source %d bytes, copied %d", ErrDigestMismatch, info.Size(), n)
	}
	if !bytes.Equal(read.Sum(nil), wrote.Sum(nil)) {
		return ErrDigestMismatch
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
