package tags

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"reencode/internal/services"
)

// ErrTagCheckFailed marks a transcode whose tags did not survive.
var ErrTagCheckFailed = errors.New("tag check failed")

// RequiredTags must be present and non-empty on every transcode.
var RequiredTags = []string{"artist", "album", "title", "tracknumber"}

var numericTags = map[string]struct{}{
	"tracknumber": {},
	"discnumber":  {},
	"tracktotal":  {},
	"totaltracks": {},
	"disctotal":   {},
	"totaldiscs":  {},
}

var (
	fractionalPattern = regexp.MustCompile(`^\d+(/\d+)?$`)
	trailingZeroTotal = regexp.MustCompile(`/(0+)?$`)
	zeroValue         = regexp.MustCompile(`^0+(/.*)?$`)
)

// TagCheckError describes a missing or malformed tag.
type TagCheckError struct {
	Path   string
	Tag    string
	Reason string
}

func (e *TagCheckError) Error() string {
	return fmt.Sprintf("%q %s %s tag", e.Path, e.Reason, e.Tag)
}

func (e *TagCheckError) Unwrap() []error {
	return []error{ErrTagCheckFailed, services.ErrValidation}
}

// ScrubTag strips whitespace and NULs and cleans numeric tags: a trailing
// "/" or "/0" goes, a leading "/" goes, and zero totals or disc numbers
// become empty. Track number zero survives (hidden tracks).
func ScrubTag(name, value string) string {
	scrubbed := strings.Trim(strings.TrimSpace(value), "\x00")
	name = strings.ToLower(name)
	if _, numeric := numericTags[name]; !numeric {
		return scrubbed
	}
	scrubbed = trailingZeroTotal.ReplaceAllString(scrubbed, "")
	scrubbed = strings.TrimLeft(scrubbed, "/")
	if name != "tracknumber" && zeroValue.MatchString(scrubbed) {
		return ""
	}
	return scrubbed
}

// ValidFractional reports whether value is "n" or "n/m".
func ValidFractional(value string) bool {
	return fractionalPattern.MatchString(value)
}

// Prepare scrubs source tags for the destination format. Empty values are
// dropped. MP3 has no total-tracks frame, so totals fold into "n/m".
func Prepare(src Tags, destPath string) Tags {
	out := make(Tags, len(src))
	for key, value := range src {
		if scrubbed := ScrubTag(key, value); scrubbed != "" {
			out[key] = scrubbed
		}
	}
	if !strings.EqualFold(filepath.Ext(destPath), ".mp3") {
		return out
	}
	mergeTotal(out, "tracknumber", "totaltracks", "tracktotal")
	mergeTotal(out, "discnumber", "totaldiscs", "disctotal")
	return out
}

func mergeTotal(tags Tags, numberKey string, totalKeys ...string) {
	total := ""
	for _, key := range totalKeys {
		if total == "" {
			total = tags[key]
		}
		delete(tags, key)
	}
	number, ok := tags[numberKey]
	if !ok || total == "" || strings.Contains(number, "/") {
		return
	}
	tags[numberKey] = number + "/" + total
}

// Check re-reads path and verifies the required tags.
func Check(ctx context.Context, store Store, path string) error {
	tags, err := store.ReadTags(ctx, path)
	if err != nil {
		return err
	}
	for _, name := range RequiredTags {
		value, ok := tags[name]
		if !ok {
			return &TagCheckError{Path: path, Tag: name, Reason: "has no"}
		}
		if strings.TrimSpace(value) == "" {
			return &TagCheckError{Path: path, Tag: name, Reason: "has an empty"}
		}
	}
	if number := tags["tracknumber"]; !ValidFractional(number) {
		return &TagCheckError{Path: path, Tag: "tracknumber", Reason: fmt.Sprintf("has a malformed (%q)", number)}
	}
	return nil
}

// CopyAndVerify copies src's scrubbed tags onto dst and checks the result.
func CopyAndVerify(ctx context.Context, store Store, src, dst string) error {
	srcTags, err := store.ReadTags(ctx, src)
	if err != nil {
		return err
	}
	if err := store.WriteTags(ctx, dst, Prepare(srcTags, dst)); err != nil {
		return err
	}
	return Check(ctx, store, dst)
}
