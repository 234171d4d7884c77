package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/searchgate/internal/domain/query"
	"github.com/kailas-cloud/searchgate/internal/parser"
)

// parseOutput is what `searchgate parse` prints.
type parseOutput struct {
	Include   []string       `json:"include"`
	Exclude   []string       `json:"exclude"`
	Modifier  query.Modifier `json:"modifier"`
	Canonical string         `json:"canonical"`
	FullQuery string         `json:"full_query"`
	Excluded  []string       `json:"excluded_words,omitempty"`
	Notices   []string       `json:"notices,omitempty"`
	TooShort  bool           `json:"too_short"`
}

func newParseCmd() *cobra.Command {
	var (
		tz            int
		stopwordsFile string
	)
	cmd := &cobra.Command{
		Use:   "parse <query...>",
		Short: "Parse a raw query and print the goal, modifier and canonical form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var stopwords parser.StopwordSet
			if stopwordsFile != "" {
				set, err := loadStopwordsFile(stopwordsFile)
				if err != nil {
					return err
				}
				stopwords = set
			}

			res := parser.New(stopwords).Parse(strings.Join(args, " "), tz)
			out := parseOutput{
				Include:   res.Goal.Include(),
				Exclude:   res.Goal.Exclude(),
				Modifier:  res.Modifier,
				Canonical: res.Canonical,
				FullQuery: res.FullQuery(),
				Excluded:  res.Excluded,
				Notices:   res.Notices,
				TooShort:  res.TooShort,
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().IntVar(&tz, "tz", 0, "timezone offset in minutes behind UTC (browser convention)")
	cmd.Flags().StringVar(&stopwordsFile, "stopwords", "", "stopword file, one word per line")
	return cmd
}

func loadStopwordsFile(path string) (parser.Stopwords, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("open stopwords: %w", err)
	}
	defer func() { _ = f.Close() }()
	return parser.LoadStopwords(f)
}
