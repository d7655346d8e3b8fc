package core

import (
	"fmt"
	"os"

	"github.com/cuemby/ridgedb/pkg/types"
	"gopkg.in/yaml.v3"
)

// loadEngineOptions unmarshals an optional YAML tuning file into
// EngineOptions. An empty path is not an error: the engine runs with
// bbolt's defaults.
func loadEngineOptions(path string) (types.EngineOptions, error) {
	if path == "" {
		return types.EngineOptions{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.EngineOptions{}, fmt.Errorf("core: read engine options %s: %w", path, err)
	}
	var opts types.EngineOptions
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return types.EngineOptions{}, fmt.Errorf("core: parse engine options %s: %w", path, err)
	}
	return opts, nil
}
