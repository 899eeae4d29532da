package transcode

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"reencode/internal/fileutil"
)

// DefaultAuxiliaryExtensions are copied alongside the transcoded audio.
var DefaultAuxiliaryExtensions = []string{
	".cue", ".gif", ".jpeg", ".jpg", ".log", ".md5", ".nfo", ".pdf", ".png", ".sfv", ".txt",
}

// copyAuxiliary copies every file under src whose extension is listed into
// the same relative location under dst. It returns the number of files copied.
func copyAuxiliary(ctx context.Context, src, dst string, extensions []string) (int, error) {
	if len(extensions) == 0 {
		extensions = DefaultAuxiliaryExtensions
	}
	copied := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !slices.Contains(extensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if err := fileutil.CopyVerified(path, filepath.Join(dst, rel)); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		copied++
		return nil
	})
	return copied, err
}

// sourceFiles lists the FLAC files under root in lexical order.
func sourceFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(path), ".flac") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
