package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/think/internal/config"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Long: "Prints the merged configuration (defaults, config file, THINK_* environment, flags). " +
			"With --file, prints only the named file on top of the defaults.",
		Run: runConfigShow,
	}
	showCmd.Flags().String("file", "", "Validate and print this TOML file without environment overrides")
	configCmd.AddCommand(showCmd)
	RootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")

	shown := cfg
	if file != "" {
		var err error
		shown, err = config.LoadFile(file)
		if err != nil {
			exitErr("config", err)
		}
	}
	if err := shown.Encode(os.Stdout); err != nil {
		exitErr("config", err)
	}
}
