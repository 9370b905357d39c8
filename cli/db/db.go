/*
Package db contains database maintenance commands.
*/
package db

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nspcc-dev/assetstate/cli/flags"
	"github.com/nspcc-dev/assetstate/cli/options"
	"github.com/nspcc-dev/assetstate/pkg/core/assettrie"
	"github.com/nspcc-dev/assetstate/pkg/core/dataasset"
	"github.com/nspcc-dev/assetstate/pkg/core/state"
	"github.com/nspcc-dev/assetstate/pkg/util"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// KVPair represents a key-value pair.
type KVPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PruneResult is the output of the prune command.
type PruneResult struct {
	Root      util.Uint256 `json:"root"`
	Removed   int          `json:"removed"`
	Truncated int          `json:"truncated"`
}

// NewCommands returns 'db' command.
func NewCommands() []cli.Command {
	return []cli.Command{{
		Name:  "db",
		Usage: "Database maintenance",
		Subcommands: []cli.Command{
			{
				Name:      "dump",
				Usage:     "Dump trie contents as JSON",
				UsageText: "assetstate db dump [--root <hash>] [--asset <hash>] [--out <file>]",
				Description: `Dumps hex-encoded key-value pairs of the main trie or, if --asset is
   given, of the asset certificate trie. The last committed root is used unless
   --root is given.`,
				Action: dump,
				Flags: append([]cli.Flag{
					flags.NewHashFlag("root", "main trie root"),
					flags.NewHashFlag("asset", "dump certificates of this asset"),
					cli.StringFlag{Name: "out, o", Usage: "output file (stdout if not set)"},
				}, options.Common...),
			},
			{
				Name:      "prune",
				Usage:     "Remove trie nodes unreachable from the current and the given roots",
				UsageText: "assetstate db prune [--keep <hash> ...] [--keep-last <n>]",
				Description: `Removes nodes of both trie layers that are not reachable from the current
   root, the roots given with --keep and the last n journaled roots. Journal
   entries of roots that are not kept are removed too.`,
				Action: prune,
				Flags: append([]cli.Flag{
					cli.StringSliceFlag{Name: "keep", Usage: "main trie root to keep, can be repeated"},
					cli.UintFlag{Name: "keep-last", Usage: "number of the latest journaled roots to keep"},
				}, options.Common...),
			},
			{
				Name:      "roots",
				Usage:     "List journaled main trie roots",
				UsageText: "assetstate db roots",
				Action:    roots,
				Flags:     options.Common,
			},
		},
	}}
}

func dump(ctx *cli.Context) error {
	r, ec := options.GetRegistry(ctx)
	if ec != nil {
		return ec
	}
	defer r.Close()

	root := r.MainRoot()
	if flags.IsSet(ctx, "root") {
		root, _ = flags.GetHash(ctx, "root")
	}
	prefix := dataasset.MainPrefix()
	if flags.IsSet(ctx, "asset") {
		assetID, _ := flags.GetHash(ctx, "asset")
		m, err := dataasset.NewManagerFromRoot(r.Store, root, r.Config, r.Log)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		a, err := m.GetAssetStateByID(assetID)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		if a == nil {
			return cli.NewExitError(fmt.Errorf("asset %s not found", assetID), 1)
		}
		root = a.ChildrenRoot
		prefix = dataasset.CertificatePrefix(assetID)
	}

	tr := assettrie.New(r.Store, root,
		assettrie.WithConfig(r.Config.Trie),
		assettrie.WithPrefix(prefix),
		assettrie.WithLogger(r.Log))
	items, err := tr.Entries()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	res := make([]KVPair, 0, len(items))
	for _, kv := range items {
		res = append(res, KVPair{
			Key:   hex.EncodeToString(kv.Key),
			Value: hex.EncodeToString(kv.Value),
		})
	}

	w := ctx.App.Writer
	if out := ctx.String("out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("error creating file: %w", err), 1)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return cli.NewExitError(err, 1)
	}
	r.Log.Info("trie dumped", zap.Stringer("root", root), zap.Int("items", len(res)))
	return nil
}

func prune(ctx *cli.Context) error {
	var keep []util.Uint256
	for _, s := range ctx.StringSlice("keep") {
		h, err := util.Uint256DecodeString(s)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("invalid root '%s': %w", s, err), 1)
		}
		keep = append(keep, h)
	}

	r, ec := options.GetRegistry(ctx)
	if ec != nil {
		return ec
	}
	defer r.Close()

	if n := ctx.Uint("keep-last"); n > 0 {
		last, err := r.Roots.LastRoots(int(n))
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		keep = append(keep, last...)
	}

	n, err := r.Prune(keep)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	kept := make(map[util.Uint256]bool, len(keep))
	for _, h := range keep {
		kept[h] = true
	}
	truncated, err := r.Roots.Truncate(func(sr *state.MPTRoot) bool {
		return kept[sr.Root]
	})
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	return printJSON(ctx, PruneResult{Root: r.MainRoot(), Removed: n, Truncated: truncated})
}

func roots(ctx *cli.Context) error {
	r, ec := options.GetRegistry(ctx)
	if ec != nil {
		return ec
	}
	defer r.Close()

	res, err := r.Roots.Roots()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if res == nil {
		res = []*state.MPTRoot{}
	}
	return printJSON(ctx, res)
}

func printJSON(ctx *cli.Context, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	_, _ = fmt.Fprintln(ctx.App.Writer, string(data))
	return nil
}
