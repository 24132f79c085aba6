// Package cli implements the fullstori command-line tool.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Tatenda/fullstori/pkg/sdk"
)

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// app carries per-invocation settings resolved from flags, environment and
// the optional config file.
type app struct {
	v   *viper.Viper
	out io.Writer
}

// NewRootCommand builds the command tree. Each call returns an independent
// tree so tests can run commands side by side.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New(), out: os.Stdout}
	var cfgFile string

	root := &cobra.Command{
		Use:   "fullstori",
		Short: "CLI for the fullstori investigation graph server",
		Long: `Command-line interface for a fullstori server.

Database commands (migrate, seed) talk to PostgreSQL directly using the
server's POSTGRES_* settings. Graph and event commands use the HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			return a.loadConfig(cfgFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fullstori/config.yaml)")
	flags.String("server", "http://localhost:8080", "fullstori server URL")
	flags.String("api-key", "", "API key sent as X-API-Key")
	flags.String("token", "", "bearer token")
	flags.StringP("output", "o", "table", "output format (table, json)")

	for _, name := range []string{"server", "api-key", "token", "output"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newVersionCommand(a),
		newMigrateCommand(a),
		newSeedCommand(a),
		newGraphsCommand(a),
		newEventsCommand(a),
	)
	return root
}

func (a *app) loadConfig(cfgFile string) error {
	a.v.SetEnvPrefix("FULLSTORI")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		a.v.AddConfigPath(filepath.Join(home, ".fullstori"))
		a.v.SetConfigType("yaml")
		a.v.SetConfigName("config")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (cfgFile == "" && os.IsNotExist(err)) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// client builds an SDK client from the resolved settings.
func (a *app) client() (*sdk.Client, error) {
	auth := sdk.AuthConfig{}
	switch {
	case a.v.GetString("api-key") != "":
		auth = sdk.AuthConfig{Mode: "apikey", APIKey: a.v.GetString("api-key")}
	case a.v.GetString("token") != "":
		auth = sdk.AuthConfig{Mode: "bearer", Token: a.v.GetString("token")}
	}
	return sdk.New(sdk.Config{ServerURL: a.v.GetString("server"), Auth: auth})
}

func (a *app) jsonOutput() bool {
	return a.v.GetString("output") == "json"
}
