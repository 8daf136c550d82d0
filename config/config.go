// Package config loads mount tables from configuration files. A file holds a
// "mounts" list of records; format follows the file extension (YAML, JSON,
// TOML, anything viper reads).
//
//	mounts:
//	  - name: site
//	    protocol: os
//	    path: /var/data/site
//	  - name: docs
//	    path: "site:documents"
//	    permissions: readonly
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/softwell/mountfs"
	"github.com/softwell/mountfs/mount"
)

// envPrefix namespaces environment overrides, ie: MOUNTFS_* variables.
const envPrefix = "MOUNTFS"

// Load reads the mount records from the file at path.
func Load(path string) ([]mount.Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, &mountfs.ConfigError{Reason: fmt.Sprintf("cannot read %s", path), Err: err}
	}
	return unmarshal(v)
}

// Parse reads mount records from in-memory configuration content in the
// given format ("yaml", "json", "toml").
func Parse(content []byte, format string) ([]mount.Config, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(strings.NewReader(string(content))); err != nil {
		return nil, &mountfs.ConfigError{Reason: "cannot parse configuration", Err: err}
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) ([]mount.Config, error) {
	if !v.IsSet("mounts") {
		return nil, &mountfs.ConfigError{Reason: `configuration has no "mounts" list`}
	}
	var configs []mount.Config
	if err := v.UnmarshalKey("mounts", &configs); err != nil {
		return nil, &mountfs.ConfigError{Reason: "invalid mounts list", Err: err}
	}
	return configs, nil
}

// Manager loads the file at path and returns a configured mount table.
func Manager(path string, opts ...mount.Option) (*mount.Manager, error) {
	configs, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := mount.NewManager(opts...)
	if err := m.Configure(configs); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}
