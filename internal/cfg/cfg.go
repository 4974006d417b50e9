// Package cfg provides configuration and command-line interface setup for tubeshelf.
package cfg

import (
	"context"
	"strings"

	"tubeshelf/internal/domain/keys"
	"tubeshelf/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Runner starts a binding with validated settings.
type Runner func(ctx context.Context, mode server.Mode, s *Settings) error

// NewRootCmd builds the tubeshelf command tree. Each call gets its own
// Viper instance.
func NewRootCmd(run Runner) (*cobra.Command, error) {
	v := viper.New()
	v.SetEnvPrefix(keys.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "tubeshelf",
		Short:         "tubeshelf serves a web audio player and relays GitHub release audio with range support",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadDotEnv(); err != nil {
				return err
			}
			return loadDefaultsFromConfig(cmd, v.GetString(keys.ConfigFile))
		},
	}

	if err := InitProgramFlags(rootCmd, v); err != nil {
		return nil, err
	}
	if err := InitListenerFlags(rootCmd, v); err != nil {
		return nil, err
	}
	if err := InitProxyFlags(rootCmd, v); err != nil {
		return nil, err
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local development server (static files, audio, proxy, optional download)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := Load(v, server.ModeServe)
			if err != nil {
				return err
			}
			return run(cmd.Context(), server.ModeServe, s)
		},
	}
	if err := InitLibraryFlags(serveCmd, v); err != nil {
		return nil, err
	}
	if err := InitDownloadFlags(serveCmd, v); err != nil {
		return nil, err
	}

	proxyCmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run the remote binding (release proxy and download API only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := Load(v, server.ModeProxy)
			if err != nil {
				return err
			}
			return run(cmd.Context(), server.ModeProxy, s)
		},
	}

	rootCmd.AddCommand(serveCmd, proxyCmd)
	return rootCmd, nil
}

// Execute parses os.Args and runs the selected binding.
func Execute(ctx context.Context, run Runner) error {
	rootCmd, err := NewRootCmd(run)
	if err != nil {
		return err
	}
	return rootCmd.ExecuteContext(ctx)
}
