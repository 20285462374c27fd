package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/critpath/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "critpath",
	Short: "Critical path scheduling for spreadsheet project plans",
	Long: `critpath computes early and late dates, float and the critical path of a
project plan exported from a spreadsheet. Dependency cycles, missing
references and malformed records are reported instead of aborting the run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errProblems is returned by commands that found data-quality problems and
// already reported them.
var errProblems = errors.New("problems found")

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errProblems) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .critpath.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".critpath")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	config.BindEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}
