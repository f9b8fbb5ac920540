package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/marcmoiagese/ArbreGedcom/core/gedcom"
	"github.com/spf13/cobra"
)

type parseReport struct {
	Header        gedcom.Header  `json:"header"`
	Individuals   int            `json:"individuals"`
	Families      int            `json:"families"`
	Sources       int            `json:"sources"`
	Repositories  int            `json:"repositories"`
	Notes         int            `json:"notes"`
	Media         int            `json:"media"`
	UnparsedLines int            `json:"unparsed_lines"`
	Skipped       map[string]int `json:"skipped,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse FITXER",
		Short: "Parseja un GEDCOM sense tocar la BD i mostra el resum en JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			parsed, err := gedcom.ParseBytes(data)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(parseReport{
				Header:        parsed.Header,
				Individuals:   len(parsed.Individuals),
				Families:      len(parsed.Families),
				Sources:       len(parsed.Sources),
				Repositories:  len(parsed.Repositories),
				Notes:         len(parsed.Notes),
				Media:         len(parsed.Media),
				UnparsedLines: parsed.UnparsedLines,
				Skipped:       parsed.Skipped,
				Warnings:      parsed.Warnings,
			})
		},
	}
}

func newCleanDateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "clean-date DATA",
		Short: "Normalitza una data GEDCOM",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.Join(args, " ")
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(gedcom.NormalizeDate(raw))
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), gedcom.CleanGedcomDate(raw))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "mostra la data normalitzada completa")
	return cmd
}
