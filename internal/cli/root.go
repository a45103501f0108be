package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haskel/variantlab/internal/config"
)

var (
	cfgFile  string
	host     string
	port     int
	jsonOut  bool
	verbose  bool
	user     string
	password string

	Version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "variantlab",
	Short: "A/B comparison of two model variants",
	Long: `Variantlab trains two model variants on the same dataset split, evaluates
both on the held-out test set and decides which one wins using per-metric
significance tests. Progress of a running experiment can be followed over
HTTP with the status and watch commands.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&host, "host", "localhost", "status server host")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 8090, "status server port")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&user, "user", "", "status server username")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "status server password")
}

func SetVersion(v string) {
	Version = v
	rootCmd.Version = v
}

// GetServerURL returns the status server URL based on flags.
func GetServerURL() string {
	return fmt.Sprintf("http://%s:%d", host, port)
}

func GetConfigFile() string {
	return cfgFile
}

func IsJSON() bool {
	return jsonOut
}

func IsVerbose() bool {
	return verbose
}

func GetAuth() (string, string) {
	return user, password
}

// loadConfig reads --config when given and fails on a broken file instead of
// silently using defaults.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}
