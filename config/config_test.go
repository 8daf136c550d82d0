package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/softwell/mountfs"
	_ "github.com/softwell/mountfs/backend/all" // register all backends
)

type configSuite struct {
	suite.Suite
}

const yamlMounts = `
mounts:
  - name: site
    protocol: os
    path: %s
  - name: cache
    protocol: mem
    versioning: true
  - name: docs
    path: "site:documents"
    permissions: readonly
`

func (s *configSuite) writeConfig(content string) string {
	path := filepath.Join(s.T().TempDir(), "mounts.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *configSuite) TestLoad() {
	root := s.T().TempDir()
	path := s.writeConfig(fmt.Sprintf(yamlMounts, root))

	configs, err := Load(path)
	s.Require().NoError(err)
	s.Require().Len(configs, 3)

	s.Equal("site", configs[0].Name)
	s.Equal("os", configs[0].Protocol)
	s.Equal(root, configs[0].Path)

	s.Equal("cache", configs[1].Name)
	s.Equal(true, configs[1].Params["versioning"], "extra fields land in Params")

	s.Equal("docs", configs[2].Name)
	s.Empty(configs[2].Protocol)
	s.Equal("site:documents", configs[2].Path)
	s.Equal("readonly", configs[2].Permissions)
}

func (s *configSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(s.T().TempDir(), "nope.yaml"))
	var cerr *mountfs.ConfigError
	s.ErrorAs(err, &cerr)
}

func (s *configSuite) TestParse() {
	configs, err := Parse([]byte(`{"mounts": [{"name": "data", "protocol": "mem"}]}`), "json")
	s.Require().NoError(err)
	s.Require().Len(configs, 1)
	s.Equal("data", configs[0].Name)

	_, err = Parse([]byte(`{"other": true}`), "json")
	var cerr *mountfs.ConfigError
	s.ErrorAs(err, &cerr, "a file without a mounts list is rejected")
}

func (s *configSuite) TestManager() {
	root := s.T().TempDir()
	path := s.writeConfig(fmt.Sprintf(yamlMounts, root))

	m, err := Manager(path)
	s.Require().NoError(err)
	defer func() { s.NoError(m.Close()) }()

	s.Equal([]string{"cache", "docs", "site"}, m.MountNames())

	ctx := context.Background()
	n, err := m.Node("site:hello.txt")
	s.Require().NoError(err)
	s.Require().NoError(n.Write(ctx, []byte("hi")))

	data, err := os.ReadFile(filepath.Join(root, "hello.txt"))
	s.NoError(err)
	s.Equal("hi", string(data))

	// the derived mount came up readonly
	ro, err := m.Node("docs:hello.txt")
	s.Require().NoError(err)
	var perr *mountfs.PermissionError
	s.ErrorAs(ro.Write(ctx, []byte("x")), &perr)
}

func (s *configSuite) TestManagerBadConfig() {
	path := s.writeConfig("mounts:\n  - name: bad\n    protocol: gopherfs\n")
	_, err := Manager(path)
	var cerr *mountfs.ConfigError
	s.ErrorAs(err, &cerr)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(configSuite))
}
