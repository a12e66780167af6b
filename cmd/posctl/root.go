package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "posctl",
	Short: "Operator tooling for the POS backend",
	Long: `posctl runs maintenance tasks against the POS database and fiscal devices.

It reads the same environment as the API server (DB_DRIVER, DB_DSN or DB_USER/DB_PASSWORD/DB_HOST/DB_NAME,
REDIS_ADDRESS, FISCAL_DEVICE_PORT, ...).`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		config.GetLogger().WithFields(logrus.Fields{"field": "posctl"}).Error(err)
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("user", "posctl", "User name recorded on written documents")
}

// connect opens the database (and redis when configured) and returns an attributed context.
func connect(cmd *cobra.Command) (context.Context, error) {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	config.ConnectRedisWithRetry()
	user, _ := cmd.Flags().GetString("user")
	ctx := utils.SetUserNameInContext(cmd.Context(), user)
	return ctx, nil
}

func registerIdArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid register id %q", args[0])
	}
	return id, nil
}
