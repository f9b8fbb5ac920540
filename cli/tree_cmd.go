package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/marcmoiagese/ArbreGedcom/db"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newSchemaCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Crea les taules al motor configurat",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp()
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.DB.CreateSchema(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "esquema %s aplicat\n", app.DB.Style())
			return err
		},
	}
}

func newTreeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Gestió d'arbres",
	}

	var owner int
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Crea un arbre buit i n'escriu l'identificador",
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner <= 0 {
				return errors.New("--owner ha de ser positiu")
			}
			app, err := opts.openApp()
			if err != nil {
				return err
			}
			defer app.Close()
			id, err := app.DB.CreateTree(cmd.Context(), &db.Tree{OwnerUserID: owner, Name: name})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
	create.Flags().IntVar(&owner, "owner", 0, "usuari propietari (obligatori)")
	create.Flags().StringVar(&name, "name", "", "nom de l'arbre (obligatori)")
	_ = create.MarkFlagRequired("owner")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(create)
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var treeID int
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Exporta un arbre a GEDCOM",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return app.ExportTree(cmd.Context(), treeID, w)
		},
	}
	cmd.Flags().IntVar(&treeID, "tree", 0, "arbre a exportar (obligatori)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "fitxer de sortida (per defecte stdout)")
	_ = cmd.MarkFlagRequired("tree")
	return cmd
}
