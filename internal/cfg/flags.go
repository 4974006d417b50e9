package cfg

import (
	"tubeshelf/internal/domain/consts"
	"tubeshelf/internal/domain/keys"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// InitProgramFlags initializes flags related to the core program. E.g. logging level.
func InitProgramFlags(rootCmd *cobra.Command, v *viper.Viper) error {
	// Config file
	rootCmd.PersistentFlags().String(keys.ConfigFile, "", "TOML config file supplying defaults for any flag")
	if err := v.BindPFlag(keys.ConfigFile, rootCmd.PersistentFlags().Lookup(keys.ConfigFile)); err != nil {
		return err
	}

	// Debug level
	rootCmd.PersistentFlags().Int(keys.DebugLevel, 0, "Debugging level (0 - 5)")
	if err := v.BindPFlag(keys.DebugLevel, rootCmd.PersistentFlags().Lookup(keys.DebugLevel)); err != nil {
		return err
	}

	// Log file
	rootCmd.PersistentFlags().String(keys.LogFile, "", "Also write logs to this file")
	if err := v.BindPFlag(keys.LogFile, rootCmd.PersistentFlags().Lookup(keys.LogFile)); err != nil {
		return err
	}
	return nil
}

// InitListenerFlags initializes the HTTP listener flags.
func InitListenerFlags(rootCmd *cobra.Command, v *viper.Viper) error {
	rootCmd.PersistentFlags().String(keys.Host, consts.DefaultHost, "Interface to listen on (empty for all)")
	if err := v.BindPFlag(keys.Host, rootCmd.PersistentFlags().Lookup(keys.Host)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().IntP(keys.Port, "p", consts.DefaultPort, "Port to listen on")
	if err := v.BindPFlag(keys.Port, rootCmd.PersistentFlags().Lookup(keys.Port)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Int(keys.MaxConnections, 0, "Maximum concurrent connections (0 for unlimited)")
	if err := v.BindPFlag(keys.MaxConnections, rootCmd.PersistentFlags().Lookup(keys.MaxConnections)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Duration(keys.ShutdownTimeout, consts.DefaultShutdownTimeout, "How long to wait for in-flight requests on shutdown")
	if err := v.BindPFlag(keys.ShutdownTimeout, rootCmd.PersistentFlags().Lookup(keys.ShutdownTimeout)); err != nil {
		return err
	}
	return nil
}

// InitProxyFlags initializes the release relay flags.
func InitProxyFlags(rootCmd *cobra.Command, v *viper.Viper) error {
	rootCmd.PersistentFlags().StringSlice(keys.ProxyHosts, []string{consts.DefaultProxyHost}, "Hosts the proxy may fetch release assets from")
	if err := v.BindPFlag(keys.ProxyHosts, rootCmd.PersistentFlags().Lookup(keys.ProxyHosts)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().StringSlice(keys.ProxyRedirectHosts, []string{consts.DefaultProxyHost, ".githubusercontent.com"},
		"Hosts upstream may redirect to (a leading dot matches subdomains)")
	if err := v.BindPFlag(keys.ProxyRedirectHosts, rootCmd.PersistentFlags().Lookup(keys.ProxyRedirectHosts)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Duration(keys.ProxyTimeout, consts.DefaultProxyTimeout, "Upstream connect and idle-read timeout")
	if err := v.BindPFlag(keys.ProxyTimeout, rootCmd.PersistentFlags().Lookup(keys.ProxyTimeout)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().Int(keys.ChunkSize, consts.DefaultChunkSize, "Streaming chunk size in bytes")
	if err := v.BindPFlag(keys.ChunkSize, rootCmd.PersistentFlags().Lookup(keys.ChunkSize)); err != nil {
		return err
	}

	rootCmd.PersistentFlags().String(keys.CABundle, "", "PEM file of trusted root certificates (default: system store)")
	if err := v.BindPFlag(keys.CABundle, rootCmd.PersistentFlags().Lookup(keys.CABundle)); err != nil {
		return err
	}
	return nil
}

// InitLibraryFlags initializes web root and file cache flags.
func InitLibraryFlags(cmd *cobra.Command, v *viper.Viper) error {
	cmd.Flags().StringP(keys.WebRoot, "d", ".", "Directory served as the web root")
	if err := v.BindPFlag(keys.WebRoot, cmd.Flags().Lookup(keys.WebRoot)); err != nil {
		return err
	}

	cmd.Flags().Int64(keys.CacheMaxBytes, consts.DefaultCacheMaxBytes, "Memory budget for the small-file cache (0 disables it)")
	if err := v.BindPFlag(keys.CacheMaxBytes, cmd.Flags().Lookup(keys.CacheMaxBytes)); err != nil {
		return err
	}

	cmd.Flags().Int64(keys.CacheFileLimit, consts.DefaultCacheFileLimit, "Largest file kept in the small-file cache")
	if err := v.BindPFlag(keys.CacheFileLimit, cmd.Flags().Lookup(keys.CacheFileLimit)); err != nil {
		return err
	}
	return nil
}

// InitDownloadFlags initializes the local yt-dlp download flags.
func InitDownloadFlags(cmd *cobra.Command, v *viper.Viper) error {
	cmd.Flags().Bool(keys.EnableDownload, false, "Enable POST /download (runs yt-dlp locally)")
	if err := v.BindPFlag(keys.EnableDownload, cmd.Flags().Lookup(keys.EnableDownload)); err != nil {
		return err
	}

	cmd.Flags().String(keys.AudioDir, consts.DefaultAudioDir, "Download directory, relative to the web root unless absolute")
	if err := v.BindPFlag(keys.AudioDir, cmd.Flags().Lookup(keys.AudioDir)); err != nil {
		return err
	}

	cmd.Flags().String(keys.YtdlpPath, consts.DefaultYtdlpPath, "yt-dlp executable")
	if err := v.BindPFlag(keys.YtdlpPath, cmd.Flags().Lookup(keys.YtdlpPath)); err != nil {
		return err
	}

	cmd.Flags().Duration(keys.DownloadTimeout, consts.DefaultDownloadTimeout, "Maximum time for one download")
	if err := v.BindPFlag(keys.DownloadTimeout, cmd.Flags().Lookup(keys.DownloadTimeout)); err != nil {
		return err
	}
	return nil
}
