package config

import (
	"github.com/spf13/viper"

	"github.com/modelfleet/fleetctl/pkg/fleeterr"
)

// Load reads the configuration document at path (YAML) into a Document
// and validates it. path is handed straight to viper.SetConfigFile, so
// any format viper supports by extension works; the reference format is
// YAML.
func Load(path string) (*Document, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fleeterr.New(fleeterr.ConfigInvalid, "config.Load", err).WithField("path")
	}

	var doc Document
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fleeterr.New(fleeterr.ConfigInvalid, "config.Load", err)
	}

	if err := ValidateDocument(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}
