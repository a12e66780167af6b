package main

import (
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/models/reports"
	"github.com/spf13/cobra"
)

var importProductsCmd = &cobra.Command{
	Use:   "import-products <file.xlsx>",
	Short: "Import products from a workbook; nothing is saved if any row fails",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := connect(cmd)
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		count, err := models.ImportProductsFromXlsx(ctx, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d products\n", count)
		return nil
	},
}

var exportProductsCmd = &cobra.Command{
	Use:   "export-products <file.xlsx>",
	Short: "Export the catalog in the import layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := connect(cmd)
		if err != nil {
			return err
		}
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		if err := reports.ExportProducts(ctx, f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

func init() {
	rootCmd.AddCommand(importProductsCmd, exportProductsCmd)
}
