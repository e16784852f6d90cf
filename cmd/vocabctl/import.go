package main

import (
	"github.com/spf13/cobra"

	"vocabquiz/internal/importer"
	"vocabquiz/internal/repository"
)

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx|file.csv>",
	Short: "Import vocabulary from a spreadsheet",
	Long: `Import vocabulary from an Excel or CSV file.

Columns: A = English meaning, B = form type (singular, plural, root...),
C = Arabic form. Consecutive rows with the same meaning are one word;
importing a meaning that already exists replaces its forms.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openSQLDatabase(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		importCfg := importer.DefaultConfig(args[0])
		importCfg.SheetName, _ = cmd.Flags().GetString("sheet")
		if startRow, _ := cmd.Flags().GetInt("start-row"); startRow > 0 {
			importCfg.StartRow = startRow
		}

		im := importer.New(repository.NewVocabRepository(db), logger)
		result, err := im.ImportFile(ctx, importCfg)
		if err != nil {
			return err
		}

		cmd.Printf("Read %d rows: %d words (%d new, %d updated), %d rows skipped\n",
			result.TotalRows, result.Words, result.Created, result.Updated, result.Skipped)
		for _, msg := range result.Errors {
			cmd.PrintErrln("  " + msg)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("sheet", "", "worksheet name (default: first sheet)")
	importCmd.Flags().Int("start-row", 2, "first data row, 1-based")
}
