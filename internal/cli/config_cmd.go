package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/haskel/variantlab/internal/experiment"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or validate the configuration",
	Long: `Display the effective configuration (file merged over defaults) or
only validate it. Secrets are redacted.`,
	RunE: runConfig,
}

var (
	validateOnly bool
	showStages   string
)

func init() {
	configCmd.Flags().BoolVar(&validateOnly, "validate", false, "only validate config, don't print")
	configCmd.Flags().StringVar(&showStages, "stages", "", "print the stages a run in this mode visits")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		if jsonOut {
			if werr := json.NewEncoder(out).Encode(map[string]any{"valid": false, "error": err.Error()}); werr != nil {
				return werr
			}
		} else {
			fmt.Fprintf(out, "Configuration invalid: %v\n", err)
		}
		return err
	}

	if validateOnly {
		if jsonOut {
			fmt.Fprintln(out, `{"valid":true}`)
		} else {
			fmt.Fprintln(out, "Configuration is valid")
		}
		return nil
	}

	if showStages != "" {
		return printStages(out, showStages)
	}

	redacted := *cfg
	if redacted.Status.Auth.Password != "" {
		redacted.Status.Auth.Password = "********"
	}

	if jsonOut {
		return writeJSON(out, redacted)
	}

	data, err := yaml.Marshal(redacted)
	if err != nil {
		return err
	}
	fmt.Fprint(out, string(data))
	return nil
}

func printStages(out io.Writer, mode string) error {
	m, err := experiment.ParseMode(mode)
	if err != nil {
		return err
	}

	stages := experiment.PlannedStages(m)
	if jsonOut {
		return writeJSON(out, stages)
	}

	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.String()
	}
	fmt.Fprintln(out, strings.Join(names, " -> "))
	return nil
}
