package main

import (
	"fmt"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update tables and the primary location",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := connect(cmd); err != nil {
			return err
		}
		if err := models.MigrateTable(config.GetDB()); err != nil {
			return err
		}
		if flush, _ := cmd.Flags().GetBool("flush-cache"); flush {
			if err := config.ClearRedis(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cache flushed")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("flush-cache", false, "Drop every cached entity after migrating")
	rootCmd.AddCommand(migrateCmd)
}
