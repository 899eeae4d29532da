package transcode

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"reencode/internal/codec"
)

var (
	flacMarker     = regexp.MustCompile(`(?i)\bFLAC\b`)
	bitDepthMarker = regexp.MustCompile(`(?i)\b24\s*-?\s*bits?\b`)
	rateMarker     = regexp.MustCompile(`(?i)\b(44[.,]1|48|88[.,]2|96|176[.,]4|192)\s*-?\s*khz\b`)
	depthRatePair  = regexp.MustCompile(`(?i)\b24\s*[/-]\s*(44[.,]1|48|88[.,]2|96|176[.,]4|192)\b`)
	emptyBrackets  = regexp.MustCompile(`\[\]|\(\)`)
	openPadding    = regexp.MustCompile(`([\[(])[\s\-/,]+`)
	closePadding   = regexp.MustCompile(`[\s\-/,]+([\])])`)
	extraSpace     = regexp.MustCompile(`\s{2,}`)
	preEmphasis    = regexp.MustCompile(`(?i)pre[- ]?emphasi(s(ed)?|zed)`)
)

// labelReplacer keeps configured codec labels usable as a path segment.
var labelReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// DirName derives the transcode directory name from the source directory.
// A FLAC marker in the name is replaced with the codec label; otherwise the
// label is appended in brackets. When the release is resampled, 24-bit and
// high sample-rate markers are dropped since they no longer apply.
func DirName(sourceDir string, target codec.Codec, profile SourceProfile) string {
	name := norm.NFC.String(filepath.Base(filepath.Clean(sourceDir)))
	label := strings.TrimSpace(labelReplacer.Replace(target.Label()))

	if profile.NeedsResample {
		name = depthRatePair.ReplaceAllString(name, "")
		name = bitDepthMarker.ReplaceAllString(name, "")
		name = rateMarker.ReplaceAllString(name, "")
	}

	if flacMarker.MatchString(name) {
		name = flacMarker.ReplaceAllLiteralString(name, label)
	} else {
		name = strings.TrimSpace(name) + " [" + label + "]"
	}

	name = openPadding.ReplaceAllString(name, "$1")
	name = closePadding.ReplaceAllString(name, "$1")
	name = emptyBrackets.ReplaceAllString(name, "")
	name = extraSpace.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	return norm.NFC.String(name)
}

// PreEmphasised reports whether a release name marks pre-emphasised audio,
// which must not be transcoded.
func PreEmphasised(name string) bool {
	return preEmphasis.MatchString(name)
}

// AllowedTranscodes returns the catalog codecs a release may be transcoded
// to. Pre-emphasised releases allow none.
func AllowedTranscodes(name string, catalog *codec.Catalog) []string {
	if PreEmphasised(name) {
		return nil
	}
	return catalog.Names()
}
