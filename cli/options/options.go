/*
Package options contains a set of common CLI options and helper functions to use them.
*/
package options

import (
	"fmt"
	"time"

	"github.com/nspcc-dev/assetstate/pkg/config"
	"github.com/nspcc-dev/assetstate/pkg/core/dataasset"
	"github.com/nspcc-dev/assetstate/pkg/core/nodestore"
	"github.com/nspcc-dev/assetstate/pkg/core/stateroot"
	"github.com/nspcc-dev/assetstate/pkg/core/storage"
	"github.com/nspcc-dev/assetstate/pkg/io"
	"github.com/nspcc-dev/assetstate/pkg/core/state"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConfigFile is a flag for commands that use the configuration file.
var ConfigFile = cli.StringFlag{
	Name:  "config-file",
	Usage: "path to the configuration file (in-memory database with default settings is used if not set)",
}

// Debug is a flag for commands that allow debug logging.
var Debug = cli.BoolFlag{
	Name:  "debug, d",
	Usage: "enable debug logging (LOTS of output, overrides configuration)",
}

// Common is the set of flags every registry command accepts.
var Common = []cli.Flag{ConfigFile, Debug}

// GetConfigFromContext returns the configuration from the file given with
// --config-file or the default one.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	if configFile := ctx.String("config-file"); configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.DefaultConfig(), nil
}

// HandleLoggingParams reads logging parameters.
// If a user selected debug level -- function enables it.
// If logPath is configured -- function creates a dir and a file for logging.
func HandleLoggingParams(debug bool, cfg config.ApplicationConfiguration) (*zap.Logger, *zap.AtomicLevel, error) {
	var (
		level = zapcore.InfoLevel
		err   error
	)
	if len(cfg.LogLevel) > 0 {
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	if cfg.LogEncoding != "" {
		cc.Encoding = cfg.LogEncoding
	}
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil
	// Command output goes to stdout.
	cc.OutputPaths = []string{"stderr"}

	if logPath := cfg.LogPath; logPath != "" {
		if err := io.MakeDirForFile(logPath, "logger"); err != nil {
			return nil, nil, err
		}
		cc.OutputPaths = []string{logPath}
	}

	log, err := cc.Build()
	return log, &cc.Level, err
}

// Registry is an opened asset registry along with its storage.
type Registry struct {
	*dataasset.Manager
	Config dataasset.Config
	Store  storage.Store
	Roots  *stateroot.Module
	Log    *zap.Logger
}

// Commit journals the current main root, so that the next command starts
// from it.
func (r *Registry) Commit() (*state.MPTRoot, error) {
	return r.Roots.AddStateRoot(r.MainRoot(), r.Config.Now())
}

// Close closes the storage and flushes logs.
func (r *Registry) Close() error {
	err := r.Store.Close()
	_ = r.Log.Sync()
	return err
}

// GetRegistry opens the storage configured for the command and the registry
// at the last committed root.
func GetRegistry(ctx *cli.Context) (*Registry, cli.ExitCoder) {
	cfg, err := GetConfigFromContext(ctx)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	app := cfg.ApplicationConfiguration
	log, _, err := HandleLoggingParams(ctx.Bool("debug"), app)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	mcfg, err := ManagerConfig(app)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	st, err := storage.NewStore(app.DBConfiguration)
	if err != nil {
		return nil, cli.NewExitError(fmt.Errorf("could not initialize storage: %w", err), 1)
	}
	roots := stateroot.NewModule(st, log)
	if err := roots.Init(); err != nil {
		_ = st.Close()
		return nil, cli.NewExitError(fmt.Errorf("could not load root journal: %w", err), 1)
	}
	m, err := dataasset.NewManagerFromRoot(st, roots.CurrentLocalStateRoot(), mcfg, log)
	if err != nil {
		_ = st.Close()
		return nil, cli.NewExitError(err, 1)
	}
	return &Registry{Manager: m, Config: mcfg, Store: st, Roots: roots, Log: log}, nil
}

// ManagerConfig converts the trie configuration into the registry one.
func ManagerConfig(app config.ApplicationConfiguration) (dataasset.Config, error) {
	mptCfg, err := app.Trie.MPTConfig()
	if err != nil {
		return dataasset.Config{}, err
	}
	cfg := dataasset.DefaultConfig()
	cfg.Trie = mptCfg
	cfg.PreserveHistory = app.Trie.PreserveHistory
	cfg.Now = func() uint64 { return uint64(time.Now().Unix()) }
	if _, err := app.Trie.NewCache(); err != nil {
		return dataasset.Config{}, err
	}
	if app.Trie.CacheType == config.CacheLRU || app.Trie.CacheType == config.CacheFastCache {
		cfg.Cache = func() nodestore.Cache {
			// Checked above.
			c, _ := app.Trie.NewCache()
			return c
		}
	}
	return cfg, nil
}
