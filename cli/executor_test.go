package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/assetstate/cli/app"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

const testConfig = `ApplicationConfiguration:
  DBConfiguration:
    Type: "boltdb"
    BoltDBOptions:
      FilePath: "%s"
  LogLevel: "warn"
  Trie:
    PreserveHistory: true
    CacheType: "lru"
    CacheSize: 128
`

// executor represents context for a test instance.
// It can be safely used in multiple tests, but not in parallel.
type executor struct {
	// ConfigFile is the configuration file of the test database.
	ConfigFile string
	// Out contains command output.
	Out *bytes.Buffer
	// Err contains command errors.
	Err *bytes.Buffer
}

func newExecutor(t *testing.T) *executor {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "assetstate.yml")
	cfg := []byte(fmt.Sprintf(testConfig, filepath.ToSlash(filepath.Join(dir, "assets.bolt"))))
	require.NoError(t, os.WriteFile(cfgPath, cfg, 0o644))

	cli.OsExiter = func(int) {}
	return &executor{
		ConfigFile: cfgPath,
		Out:        bytes.NewBuffer(nil),
		Err:        bytes.NewBuffer(nil),
	}
}

// run executes the command with a fresh application, flag values don't leak
// between runs this way.
func (e *executor) run(args ...string) error {
	e.Out.Reset()
	e.Err.Reset()
	ctl := app.New()
	ctl.Writer = e.Out
	ctl.ErrWriter = e.Err
	return ctl.Run(append([]string{"assetstate"}, args...))
}

// Run executes the command with the test config, it must succeed.
func (e *executor) Run(t *testing.T, args ...string) {
	require.NoError(t, e.run(append(args, "--config-file", e.ConfigFile)...), e.Err.String())
}

// RunWithError executes the command with the test config, it must fail.
func (e *executor) RunWithError(t *testing.T, args ...string) {
	require.Error(t, e.run(append(args, "--config-file", e.ConfigFile)...))
}

// decode unmarshals the output of the last command.
func (e *executor) decode(t *testing.T, v any) {
	require.NoError(t, json.Unmarshal(e.Out.Bytes(), v), e.Out.String())
}
