package cfg

import (
	"fmt"
	"os"

	"tubeshelf/internal/domain/logger"

	"github.com/BurntSushi/toml"
)

// parseTomlFile decodes a flat TOML file keyed by flag name.
func parseTomlFile(path string) (map[string]any, error) {
	checkPath, err := os.Stat(path)

	switch {
	case err != nil:
		return nil, fmt.Errorf("failed check for config file path: %w", err)
	case checkPath.IsDir():
		return nil, fmt.Errorf("toml file passed in as directory %q, should be file", path)
	case !checkPath.Mode().IsRegular():
		return nil, fmt.Errorf("%q is not a regular file", path)
	case checkPath.Size() == 0:
		return nil, fmt.Errorf("file %q is empty", path)
	}

	values := make(map[string]any)
	md, err := toml.DecodeFile(path, &values)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}
	logger.Pl.D(2, "Loaded %d keys from config file %q", len(md.Keys()), path)
	return values, nil
}
