package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reencode/internal/codec"
	"reencode/internal/transcode"
)

type codecView struct {
	Name      string   `json:"name" yaml:"name"`
	Label     string   `json:"label" yaml:"label"`
	Family    string   `json:"family" yaml:"family"`
	Extension string   `json:"extension" yaml:"extension"`
	Lossless  bool     `json:"lossless" yaml:"lossless"`
	Options   []string `json:"options" yaml:"options"`
}

func newCodecsCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "codecs [SOURCE]",
		Short: "List transcode targets",
		Long: `List the codec catalog. With SOURCE, only the targets that release may be
transcoded to are listed; a pre-emphasised release allows none.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := ctx.catalog()
			if err != nil {
				return err
			}
			codecs := catalog.All()
			if len(args) == 1 {
				codecs = codecs[:0]
				for _, name := range transcode.AllowedTranscodes(filepath.Base(filepath.Clean(args[0])), catalog) {
					c, _ := catalog.Lookup(name)
					codecs = append(codecs, c)
				}
			}
			views := codecViews(codecs)
			return writeFormatted(cmd, format, views, func() string {
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{v.Name, v.Label, v.Family, v.Extension, yesNo(v.Lossless), strings.Join(v.Options, " ")})
				}
				return renderTable(codecColumns, rows)
			})
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}

func codecViews(codecs []codec.Codec) []codecView {
	views := make([]codecView, 0, len(codecs))
	for _, c := range codecs {
		views = append(views, codecView{
			Name:      c.Name,
			Label:     c.Label(),
			Family:    string(c.Family),
			Extension: c.Extension,
			Lossless:  c.Lossless,
			Options:   c.Options,
		})
	}
	return views
}
