package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"tubeshelf/internal/domain/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// dotEnvFile is read from the working directory when present.
const dotEnvFile = ".env"

// loadDotEnv exports variables from .env without overriding the real environment.
func loadDotEnv() error {
	if err := godotenv.Load(dotEnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", dotEnvFile, err)
	}
	logger.Pl.D(1, "Loaded environment from %s", dotEnvFile)
	return nil
}

// loadDefaultsFromConfig applies config file values to every flag the user
// did not set on the command line.
func loadDefaultsFromConfig(cmd *cobra.Command, path string) error {
	if path == "" {
		return nil
	}

	values, err := parseTomlFile(path)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(values))
	var errOrNil error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		raw, ok := values[f.Name]
		if !ok {
			return
		}
		known[f.Name] = true
		if f.Changed || errOrNil != nil {
			return
		}
		if err := setFlagFromConfig(f, raw); err != nil {
			errOrNil = fmt.Errorf("config key %q in %s: %w", f.Name, path, err)
		}
	})
	if errOrNil != nil {
		return errOrNil
	}

	var unknown []string
	for k := range values {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		logger.Pl.W("Ignoring config keys not used by %q: %s", cmd.Name(), strings.Join(unknown, ", "))
	}
	return nil
}

// setFlagFromConfig writes a decoded TOML value into f.
func setFlagFromConfig(f *pflag.Flag, raw any) error {
	switch val := raw.(type) {
	case []any:
		items := make([]string, 0, len(val))
		for _, it := range val {
			items = append(items, fmt.Sprint(it))
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			return sv.Replace(items)
		}
		return f.Value.Set(strings.Join(items, ","))
	case string:
		return f.Value.Set(val)
	case map[string]any:
		return fmt.Errorf("tables are not supported")
	default:
		return f.Value.Set(fmt.Sprint(val))
	}
}
