package main

import (
	"fmt"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/spf13/cobra"
)

var fiscalCmd = &cobra.Command{
	Use:   "fiscal",
	Short: "Fiscal device shift operations",
	Long:  "Shift operations on the fiscal device of a cash register. Without a register id the first register with a device is used.",
}

var openShiftCmd = &cobra.Command{
	Use:   "open-shift [register-id]",
	Short: "Open the device shift",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := connect(cmd)
		if err != nil {
			return err
		}
		id, err := registerIdArg(args)
		if err != nil {
			return err
		}
		if err := models.OpenRegisterShift(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "shift opened")
		return nil
	},
}

var closeShiftCmd = &cobra.Command{
	Use:   "close-shift [register-id]",
	Short: "Close the device shift (Z report)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := connect(cmd)
		if err != nil {
			return err
		}
		id, err := registerIdArg(args)
		if err != nil {
			return err
		}
		if err := models.CloseRegisterShift(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "shift closed")
		return nil
	},
}

var xReportCmd = &cobra.Command{
	Use:   "x-report [register-id]",
	Short: "Print the device X report as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := connect(cmd)
		if err != nil {
			return err
		}
		id, err := registerIdArg(args)
		if err != nil {
			return err
		}
		report, err := models.GetRegisterXReport(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(report))
		return nil
	},
}

func init() {
	fiscalCmd.AddCommand(openShiftCmd, closeShiftCmd, xReportCmd)
	rootCmd.AddCommand(fiscalCmd)
}
