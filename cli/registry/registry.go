/*
Package registry contains the asset and certificate commands.
*/
package registry

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/nspcc-dev/assetstate/cli/flags"
	"github.com/nspcc-dev/assetstate/cli/options"
	"github.com/nspcc-dev/assetstate/pkg/core/state"
	"github.com/nspcc-dev/assetstate/pkg/util"
	"github.com/urfave/cli"
)

// RegisterResult is the output of the asset registration.
type RegisterResult struct {
	AssetID util.Uint256 `json:"assetid"`
	TokenID uint32       `json:"tokenid"`
	Root    util.Uint256 `json:"root"`
}

// IssueResult is the output of the certificate issuance.
type IssueResult struct {
	AssetID       util.Uint256 `json:"assetid"`
	CertificateID uint32       `json:"certificateid"`
	Root          util.Uint256 `json:"root"`
}

// RootResult is the output of mutations returning only the new main root.
type RootResult struct {
	Root util.Uint256 `json:"root"`
}

// NewCommands returns 'asset' and 'cert' commands.
func NewCommands() []cli.Command {
	return []cli.Command{
		{
			Name:  "asset",
			Usage: "Manage data assets",
			Subcommands: []cli.Command{
				{
					Name:      "register",
					Usage:     "Register a new data asset",
					UsageText: "assetstate asset register --owner <address> --data-hash <hash> [--name <name>] [--timestamp <unix>] [--label <label> ...]",
					Action:    registerAsset,
					Flags: append([]cli.Flag{
						flags.NewAddressFlag("owner", "asset owner"),
						flags.NewHashFlag("data-hash", "raw data hash"),
						cli.StringFlag{Name: "name", Usage: "asset name"},
						cli.StringFlag{Name: "description", Usage: "asset description"},
						cli.StringFlag{Name: "metadata-cid", Usage: "metadata CID"},
						cli.StringSliceFlag{Name: "label", Usage: "asset label, can be repeated"},
						cli.Uint64Flag{Name: "timestamp", Usage: "creation time (unix seconds), current time if not set"},
						cli.StringFlag{Name: "price", Usage: "base price (decimal)"},
					}, options.Common...),
				},
				{
					Name:      "show",
					Usage:     "Show the asset by its id or token id",
					UsageText: "assetstate asset show --id <hash> | --token <n>",
					Action:    showAsset,
					Flags: append([]cli.Flag{
						flags.NewHashFlag("id", "asset id"),
						cli.Int64Flag{Name: "token", Usage: "asset token id", Value: -1},
					}, options.Common...),
				},
				{
					Name:      "transfer",
					Usage:     "Transfer the asset to a new owner",
					UsageText: "assetstate asset transfer --id <hash> --from <address> --to <address>",
					Action:    transferAsset,
					Flags: append([]cli.Flag{
						flags.NewHashFlag("id", "asset id"),
						flags.NewAddressFlag("from", "current owner"),
						flags.NewAddressFlag("to", "new owner"),
					}, options.Common...),
				},
				{
					Name:      "lock",
					Usage:     "Lock the asset",
					UsageText: "assetstate asset lock --id <hash> --owner <address>",
					Action:    func(ctx *cli.Context) error { return setLocked(ctx, true) },
					Flags: append([]cli.Flag{
						flags.NewHashFlag("id", "asset id"),
						flags.NewAddressFlag("owner", "asset owner"),
					}, options.Common...),
				},
				{
					Name:      "unlock",
					Usage:     "Unlock the asset",
					UsageText: "assetstate asset unlock --id <hash> --owner <address>",
					Action:    func(ctx *cli.Context) error { return setLocked(ctx, false) },
					Flags: append([]cli.Flag{
						flags.NewHashFlag("id", "asset id"),
						flags.NewAddressFlag("owner", "asset owner"),
					}, options.Common...),
				},
				{
					Name:      "list",
					Usage:     "List assets, all or of the given owner",
					UsageText: "assetstate asset list [--owner <address>]",
					Action:    listAssets,
					Flags: append([]cli.Flag{
						flags.NewAddressFlag("owner", "asset owner"),
					}, options.Common...),
				},
			},
		},
		{
			Name:  "cert",
			Usage: "Manage asset certificates",
			Subcommands: []cli.Command{
				{
					Name:      "issue",
					Usage:     "Issue a certificate for the asset",
					UsageText: "assetstate cert issue --asset <hash> --holder <address> [--right usage|access] [--valid-until <unix>]",
					Action:    issueCertificate,
					Flags: append([]cli.Flag{
						flags.NewHashFlag("asset", "asset id"),
						flags.NewAddressFlag("holder", "certificate holder"),
						cli.StringFlag{Name: "right", Usage: "right type: usage or access", Value: state.RightUsage.String()},
						cli.Uint64Flag{Name: "valid-until", Usage: "expiration time (unix seconds), never expires if not set"},
					}, options.Common...),
				},
				{
					Name:      "revoke",
					Usage:     "Revoke the certificate",
					UsageText: "assetstate cert revoke --asset <hash> --id <n> --revoker <address>",
					Action:    revokeCertificate,
					Flags: append([]cli.Flag{
						flags.NewHashFlag("asset", "asset id"),
						cli.UintFlag{Name: "id", Usage: "certificate id"},
						flags.NewAddressFlag("revoker", "asset owner or certificate holder"),
					}, options.Common...),
				},
				{
					Name:      "status",
					Usage:     "Change the certificate status",
					UsageText: "assetstate cert status --asset <hash> --id <n> --status active|expired",
					Action:    setCertificateStatus,
					Flags: append([]cli.Flag{
						flags.NewHashFlag("asset", "asset id"),
						cli.UintFlag{Name: "id", Usage: "certificate id"},
						cli.StringFlag{Name: "status", Usage: "active or expired"},
					}, options.Common...),
				},
				{
					Name:      "list",
					Usage:     "List certificates of the asset or of the holder",
					UsageText: "assetstate cert list --asset <hash> | --holder <address>",
					Action:    listCertificates,
					Flags: append([]cli.Flag{
						flags.NewHashFlag("asset", "asset id"),
						flags.NewAddressFlag("holder", "certificate holder"),
					}, options.Common...),
				},
			},
		},
	}
}

func registerAsset(ctx *cli.Context) error {
	owner, err := flags.GetAddress(ctx, "owner")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	dataHash, err := flags.GetHash(ctx, "data-hash")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	a := state.NewDataAsset()
	a.Owner = owner
	a.RawDataHash = dataHash
	a.Name = ctx.String("name")
	a.Description = ctx.String("description")
	a.MetadataCID = ctx.String("metadata-cid")
	a.Labels = ctx.StringSlice("label")
	a.Timestamp = ctx.Uint64("timestamp")
	if a.Timestamp == 0 {
		a.Timestamp = uint64(time.Now().Unix())
	}
	if p := ctx.String("price"); p != "" {
		b, ok := new(big.Int).SetString(p, 10)
		if !ok || b.Sign() < 0 || a.PricingConfig.BasePrice.SetFromBig(b) {
			return cli.NewExitError(fmt.Errorf("invalid price '%s'", p), 1)
		}
	}

	r, ec := options.GetRegistry(ctx)
	if ec != nil {
		return ec
	}
	defer r.Close()

	tokenID := r.NextTokenID()
	id, root, err := r.RegisterAsset(a)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if _, err := r.Commit(); err != nil {
		return cli.NewExitError(err, 1)
	}
	return printJSON(ctx, RegisterResult{AssetID: id, TokenID: tokenID, Root: root})
}

func showAsset(ctx *cli.Context) error {
	r, ec := options.GetRegistry(ctx)
	if ec != nil {
		return ec
	}
	defer r.Close()

	var (
		a     *state.DataAsset
		err   error
		token = ctx.Int64("token")
	)
	switch {
	case flags.IsSet(ctx, "id"):
		id, _ := flags.GetHash(ctx, "id")
		a, err = r.GetAssetStateByID(id)
	case token >= 0 && token <= math.MaxUint32:
		a, err = r.GetAssetStateByTokenID(uint32(token))
	default:
		return cli.NewExitError("either --id or valid --token is required", 1)
	}
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if a == nil {
		return cli.NewExitError("asset not found", 1)
	}
	return printJSON(ctx, a)
}

func transferAsset(ctx *cli.Context) error {
	id, err := flags.GetHash(ctx, "id")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	from, err := flags.GetAddress(ctx, "from")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	to, err := flags.GetAddress(ctx, "to")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	return mutate(ctx, func(r *options.Registry) (util.Uint256, error) {
		return r.TransferAsset(id, to, from)
	})
}

func setLocked(ctx *cli.Context, locked bool) error {
	id, err := flags.GetHash(ctx, "id")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	owner, err := flags.GetAddress(ctx, "owner")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	return mutate(ctx, func(r *options.Registry) (util.Uint256, error) {
		if locked {
			return r.LockAsset(id, owner)
		}
		return r.UnlockAsset(id, owner)
	})
}

func listAssets(ctx *cli.Context) error {
	r, ec := options.GetRegistry(ctx)
	if ec != nil {
		return ec
	}
	defer r.Close()

	var (
		assets []*state.DataAsset
		err    error
	)
	if flags.IsSet(ctx, "owner") {
		owner, _ := flags.GetAddress(ctx, "owner")
		assets, err = r.GetUserAssets(owner)
	} else {
		assets, err = r.GetAssets()
	}
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if assets == nil {
		assets = []*state.DataAsset{}
	}
	return printJSON(ctx, assets)
}

func issueCertificate(ctx *cli.Context) error {
	assetID, err := flags.GetHash(ctx, "asset")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	holder, err := flags.GetAddress(ctx, "holder")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	right, err := state.RightTypeFromString(ctx.String("right"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	var validUntil *uint64
	if ctx.IsSet("valid-until") {
		v := ctx.Uint64("valid-until")
		validUntil = &v
	}

	r, ec := options.GetRegistry(ctx)
	if ec != nil {
		return ec
	}
	defer r.Close()

	certID, root, err := r.IssueCertificate(assetID, holder, right, validUntil)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if _, err := r.Commit(); err != nil {
		return cli.NewExitError(err, 1)
	}
	return printJSON(ctx, IssueResult{AssetID: assetID, CertificateID: certID, Root: root})
}

func revokeCertificate(ctx *cli.Context) error {
	assetID, err := flags.GetHash(ctx, "asset")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	revoker, err := flags.GetAddress(ctx, "revoker")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if !ctx.IsSet("id") {
		return cli.NewExitError("missing --id", 1)
	}
	certID := uint32(ctx.Uint("id"))
	return mutate(ctx, func(r *options.Registry) (util.Uint256, error) {
		return r.RevokeCertificate(assetID, certID, revoker)
	})
}

func setCertificateStatus(ctx *cli.Context) error {
	assetID, err := flags.GetHash(ctx, "asset")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	status, err := state.CertificateStatusFromString(ctx.String("status"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if !ctx.IsSet("id") {
		return cli.NewExitError("missing --id", 1)
	}
	certID := uint32(ctx.Uint("id"))
	return mutate(ctx, func(r *options.Registry) (util.Uint256, error) {
		return r.UpdateCertificateStatus(assetID, certID, status)
	})
}

func listCertificates(ctx *cli.Context) error {
	r, ec := options.GetRegistry(ctx)
	if ec != nil {
		return ec
	}
	defer r.Close()

	switch {
	case flags.IsSet(ctx, "asset"):
		assetID, _ := flags.GetHash(ctx, "asset")
		certs, err := r.GetAssetCertificates(assetID)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		if certs == nil {
			certs = []*state.RightToken{}
		}
		return printJSON(ctx, certs)
	case flags.IsSet(ctx, "holder"):
		holder, _ := flags.GetAddress(ctx, "holder")
		certs, err := r.GetUserCertificates(holder)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		res := make([]*state.RightToken, 0, len(certs))
		for _, c := range certs {
			res = append(res, c.Certificate)
		}
		return printJSON(ctx, res)
	default:
		return cli.NewExitError("either --asset or --holder is required", 1)
	}
}

// mutate opens the registry, applies f and commits the new root.
func mutate(ctx *cli.Context, f func(*options.Registry) (util.Uint256, error)) error {
	r, ec := options.GetRegistry(ctx)
	if ec != nil {
		return ec
	}
	defer r.Close()

	root, err := f(r)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if _, err := r.Commit(); err != nil {
		return cli.NewExitError(err, 1)
	}
	return printJSON(ctx, RootResult{Root: root})
}

func printJSON(ctx *cli.Context, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	_, _ = fmt.Fprintln(ctx.App.Writer, string(data))
	return nil
}
