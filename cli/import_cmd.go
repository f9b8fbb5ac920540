package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/marcmoiagese/ArbreGedcom/db"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type importTarget struct {
	treeID int
	userID int
}

func (t *importTarget) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&t.treeID, "tree", 0, "arbre de destí (obligatori)")
	cmd.Flags().IntVar(&t.userID, "user", 0, "usuari propietari de l'arbre (obligatori)")
	_ = cmd.MarkFlagRequired("tree")
	_ = cmd.MarkFlagRequired("user")
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var target importTarget
	var quiet bool
	cmd := &cobra.Command{
		Use:   "import FITXER",
		Short: "Importa un GEDCOM ara mateix, amb reintents, sense passar per la cua",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var bar *progressbar.ProgressBar
			observer := func(done, total int) {
				if quiet {
					return
				}
				if bar == nil || bar.GetMax() != total {
					bar = progressbar.NewOptions(total,
						progressbar.OptionSetWriter(cmd.ErrOrStderr()),
						progressbar.OptionSetDescription("Important registres"),
						progressbar.OptionSetWidth(40),
						progressbar.OptionShowCount(),
						progressbar.OptionThrottle(65*time.Millisecond),
						progressbar.OptionOnCompletion(func() { fmt.Fprintln(cmd.ErrOrStderr()) }),
					)
				}
				_ = bar.Set(done)
			}

			job, err := app.ImportGedcomNow(cmd.Context(), f, args[0], target.treeID, target.userID, observer)
			if err != nil {
				return err
			}
			progress, err := app.ImportProgress(cmd.Context(), target.userID, target.treeID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "importació %s completada\n", job.Payload.JobUUID)
			if progress != nil && progress.SummaryJSON.Valid {
				fmt.Fprintln(cmd.OutOrStdout(), progress.SummaryJSON.String)
			}
			return nil
		},
	}
	target.bind(cmd)
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "sense barra de progrés")
	return cmd
}

func newEnqueueCmd(opts *rootOptions) *cobra.Command {
	var target importTarget
	cmd := &cobra.Command{
		Use:   "enqueue FITXER",
		Short: "Desa el GEDCOM i encua la importació per al worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			job, err := app.EnqueueGedcomImport(cmd.Context(), f, args[0], target.treeID, target.userID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), job.JobUUID)
			return err
		},
	}
	target.bind(cmd)
	return cmd
}

func newProgressCmd(opts *rootOptions) *cobra.Command {
	var filter db.ImportProgressFilter
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Mostra l'estat de les importacions",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			rows, err := app.DB.ListImportProgress(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(progressViews(rows))
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USUARI\tARBRE\tESTAT\tPROCESSATS\tERROR")
			for _, p := range rows {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%d/%d\t%s\n", p.UserID, p.TreeID, p.Status,
					p.ProcessedRecords, p.TotalRecords, p.ErrorMessage.String)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&filter.UserID, "user", 0, "filtra per usuari")
	cmd.Flags().IntVar(&filter.TreeID, "tree", 0, "filtra per arbre")
	cmd.Flags().StringVar(&filter.Status, "status", "", "filtra per estat (PENDING, PROCESSING, COMPLETED, FAILED)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "màxim de files")
	cmd.Flags().BoolVar(&asJSON, "json", false, "sortida en JSON")
	return cmd
}

type progressView struct {
	UserID     int             `json:"user_id"`
	TreeID     int             `json:"tree_id"`
	Status     string          `json:"status"`
	Total      int             `json:"total_records"`
	Processed  int             `json:"processed_records"`
	Error      string          `json:"error_message,omitempty"`
	Summary    json.RawMessage `json:"summary,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

func progressViews(rows []db.ImportProgress) []progressView {
	out := make([]progressView, 0, len(rows))
	for _, p := range rows {
		v := progressView{
			UserID:    p.UserID,
			TreeID:    p.TreeID,
			Status:    p.Status,
			Total:     p.TotalRecords,
			Processed: p.ProcessedRecords,
			Error:     p.ErrorMessage.String,
		}
		if p.SummaryJSON.Valid && json.Valid([]byte(p.SummaryJSON.String)) {
			v.Summary = json.RawMessage(p.SummaryJSON.String)
		}
		if p.StartedAt.Valid {
			v.StartedAt = &p.StartedAt.Time
		}
		if p.FinishedAt.Valid {
			v.FinishedAt = &p.FinishedAt.Time
		}
		out = append(out, v)
	}
	return out
}
