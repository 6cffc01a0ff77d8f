package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var log = logging.Logger("voxtree/cli")

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "voxtree",
	Short: "Build and inspect sparse voxel trees",
	Long: `voxtree compiles point clouds into paged sparse voxel trees and
stores them in a directory blockstore.

Commands:
  build      Voxelize points and flush the resulting tree
  inspect    Load a flushed tree, verify it and print statistics

Settings come from flags, a voxtree.yaml file and VOXTREE_* environment
variables, in that order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setLogLevel(viper.GetString("log-level"))
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./voxtree.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("store", "s", "voxtree.store", "blockstore directory")
	cobra.CheckErr(viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")))
	cobra.CheckErr(viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store")))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("voxtree")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.voxtree")
	}
	viper.SetEnvPrefix("VOXTREE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
			os.Exit(1)
		}
	}
}

// setLogLevel applies level to every voxtree subsystem.
func setLogLevel(level string) error {
	for _, sub := range []string{"voxtree", "voxtree/ingest", "voxtree/cli"} {
		if err := logging.SetLogLevel(sub, level); err != nil {
			return fmt.Errorf("log level %q: %w", level, err)
		}
	}
	return nil
}

// bindFlags lets viper supply every flag of cmd not set on the command line.
func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		cobra.CheckErr(viper.BindPFlag(f.Name, f))
	})
}
