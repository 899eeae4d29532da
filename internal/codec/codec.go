// Package codec holds the catalog of transcode targets.
//
// A Codec names the encoder family that produces it, the output file
// extension, and the option tokens passed to that encoder. The planner turns
// a family into a concrete encoder stage; adding a codec never requires
// touching pipeline code.
package codec

import (
	"fmt"
	"slices"
	"strings"
)

// Family identifies the encoder executable used for a codec.
type Family string

const (
	FamilyLame   Family = "lame"
	FamilyOggenc Family = "oggenc"
	FamilyFFmpeg Family = "ffmpeg"
	FamilyFlac   Family = "flac"
)

// Known reports whether the family has an encoder stage builder.
func (f Family) Known() bool {
	switch f {
	case FamilyLame, FamilyOggenc, FamilyFFmpeg, FamilyFlac:
		return true
	}
	return false
}

// Codec is one transcode target.
type Codec struct {
	Name      string
	Family    Family
	Extension string
	Options   []string
	Lossless  bool
}

// Label is the short tag used in derived directory names, e.g. "MP3 V0".
func (c Codec) Label() string {
	switch c.Family {
	case FamilyLame:
		return "MP3 " + c.Name
	case FamilyOggenc:
		return "Ogg " + c.Name
	}
	return c.Name
}

var builtin = []Codec{
	{Name: "320", Family: FamilyLame, Extension: ".mp3", Options: []string{"-b", "320", "--ignore-tag-errors"}},
	{Name: "V0", Family: FamilyLame, Extension: ".mp3", Options: []string{"-V", "0", "--vbr-new", "--ignore-tag-errors"}},
	{Name: "V2", Family: FamilyLame, Extension: ".mp3", Options: []string{"-V", "2", "--vbr-new", "--ignore-tag-errors"}},
	{Name: "Q8", Family: FamilyOggenc, Extension: ".ogg", Options: []string{"-q", "8"}},
	{Name: "AAC", Family: FamilyFFmpeg, Extension: ".m4a", Options: []string{"-c:a", "aac", "-b:a", "320k"}},
	{Name: "ALAC", Family: FamilyFFmpeg, Extension: ".m4a", Options: []string{"-acodec", "alac"}, Lossless: true},
	{Name: "FLAC", Family: FamilyFlac, Extension: ".flac", Options: []string{"--best"}, Lossless: true},
}

// Catalog is an ordered, case-insensitive set of codecs.
type Catalog struct {
	codecs []Codec
}

// Builtin returns the catalog shipped with reencode.
func Builtin() *Catalog {
	c := &Catalog{}
	for _, entry := range builtin {
		c.codecs = append(c.codecs, entry.clone())
	}
	return c
}

// With returns a copy of the catalog with extra entries added. An entry whose
// name matches an existing codec replaces it in place.
func (c *Catalog) With(extra ...Codec) (*Catalog, error) {
	next := &Catalog{codecs: make([]Codec, 0, len(c.codecs)+len(extra))}
	for _, entry := range c.codecs {
		next.codecs = append(next.codecs, entry.clone())
	}
	for _, entry := range extra {
		if strings.TrimSpace(entry.Name) == "" {
			return nil, fmt.Errorf("codec: empty name")
		}
		if !entry.Family.Known() {
			return nil, fmt.Errorf("codec %s: unknown encoder family %q", entry.Name, entry.Family)
		}
		if idx := next.index(entry.Name); idx >= 0 {
			next.codecs[idx] = entry.clone()
			continue
		}
		next.codecs = append(next.codecs, entry.clone())
	}
	return next, nil
}

// Lookup finds a codec by name, ignoring case.
func (c *Catalog) Lookup(name string) (Codec, bool) {
	if idx := c.index(name); idx >= 0 {
		return c.codecs[idx].clone(), true
	}
	return Codec{}, false
}

// All returns every codec in catalog order.
func (c *Catalog) All() []Codec {
	out := make([]Codec, 0, len(c.codecs))
	for _, entry := range c.codecs {
		out = append(out, entry.clone())
	}
	return out
}

// Names returns the codec names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.codecs))
	for _, entry := range c.codecs {
		out = append(out, entry.Name)
	}
	return out
}

func (c *Catalog) index(name string) int {
	name = strings.TrimSpace(name)
	return slices.IndexFunc(c.codecs, func(entry Codec) bool {
		return strings.EqualFold(entry.Name, name)
	})
}

func (c Codec) clone() Codec {
	c.Options = slices.Clone(c.Options)
	return c
}
