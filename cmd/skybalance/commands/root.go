package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DrSkyle/skybalance/pkg/engine"
	"github.com/DrSkyle/skybalance/pkg/version"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	logFormat string
	logFile   string
	settings  engine.Config
)

var rootCmd = &cobra.Command{
	Use:   "skybalance",
	Short: "Airport congestion rebalancing",
	Long: `SkyBalance - Airspace Load Rebalancing

Measure. Classify. Rebalance.`,
	Version:       version.Current,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.skybalance.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format: json or text")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to a file (interactive mode discards them otherwise)")
	rootCmd.PersistentFlags().BoolVarP(&settings.Verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&settings.Region, "region", "", "AWS Region for s3:// and dynamodb:// targets")
	rootCmd.PersistentFlags().StringVar(&settings.Profile, "profile", "", "AWS shared config profile")
	rootCmd.PersistentFlags().StringVar(&settings.OtelEndpoint, "otel-endpoint", "", "OTLP/HTTP trace endpoint")

	// Hidden Flags
	rootCmd.PersistentFlags().StringVar(&settings.Endpoint, "aws-endpoint", "", "Override the AWS endpoint (LocalStack)")
	_ = rootCmd.PersistentFlags().MarkHidden("aws-endpoint")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, ".skybalance.yaml"))
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("SKYBALANCE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to read config %s: %v\n", cfgFile, err)
	}
}

func renderHelp(cmd *cobra.Command) {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00FF99")).
		MarginBottom(1)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	fmt.Println(titleStyle.Render(fmt.Sprintf("SKYBALANCE %s", version.Current)))
	fmt.Println("Airport congestion estimation and position rebalancing.")

	fmt.Println(titleStyle.Render("USAGE"))
	fmt.Printf("  %s\n\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Println(titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Printf("  %-12s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Println("")
	}

	fmt.Println(titleStyle.Render("EXAMPLES"))
	fmt.Println("  skybalance run --mock                          # Interactive Mode (TUI)")
	fmt.Println("  skybalance run --headless --iterations 20      # Batch Mode (No TUI)")
	fmt.Println("  skybalance analyze --observations dump.csv     # One offline cycle")
	fmt.Println("")

	fmt.Println(titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		output := fmt.Sprintf("  --%-22s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
			output += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Println(flagStyle.Render(output))
	})
	fmt.Println("")
}
