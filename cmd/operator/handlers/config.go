package handlers

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// PrintConfig loads the operator configuration and writes it to out, or to
// writePath when one is given.
func PrintConfig(out io.Writer, configPath, writePath string) error {
	cfg, err := newLoader().WithConfigFile(configPath).Load()
	if err != nil {
		return err
	}

	if writePath != "" {
		if err := cfg.Save(writePath); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "Configuration written to %s\n", writePath)
		return err
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
