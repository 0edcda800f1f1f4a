package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/passkit/internal/domain/pass"
	"github.com/oshokin/passkit/internal/logger"
	"github.com/oshokin/passkit/internal/repository/definition"
)

// Style names accepted by Init.
const (
	StyleBoardingPass = "boardingPass"
	StyleCoupon       = "coupon"
	StyleEventTicket  = "eventTicket"
	StyleGeneric      = "generic"
	StyleStoreCard    = "storeCard"
)

// InitOptions contains inputs for scaffolding a pass source directory.
type InitOptions struct {
	// Dir is created when missing.
	Dir                string
	SerialNumber       string
	PassTypeIdentifier string
	TeamIdentifier     string
	OrganizationName   string
	Description        string
	// Style is one of the Style* names; empty means generic.
	Style string
	// TransitType is air, boat, bus, generic or train. Boarding passes only.
	TransitType string
	// Force overwrites an existing pass.json.
	Force bool
}

var (
	errIdentityRequired  = errors.New("serial number, pass type identifier and team identifier must be provided")
	errUnknownStyle      = errors.New("unknown pass style")
	errUnknownTransit    = errors.New("unknown transit type")
	errTransitNotAllowed = errors.New("only boarding passes take a transit type")
	errDefinitionExists  = errors.New("pass.json already exists")
)

//nolint:gochecknoglobals // Read-only lookup table.
var transitTypes = map[string]pass.TransitType{
	"air":     pass.TransitAir,
	"boat":    pass.TransitBoat,
	"bus":     pass.TransitBus,
	"generic": pass.TransitGeneric,
	"train":   pass.TransitTrain,
}

// Init writes a canonical pass.json into a directory and returns its path.
func Init(ctx context.Context, opts *InitOptions) (string, error) {
	ctx = logger.WithName(ctx, "init")

	p, err := scaffold(opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(opts.Dir, definition.Filename)

	if _, err = os.Stat(path); err == nil && !opts.Force {
		return "", fmt.Errorf("%w: %s", errDefinitionExists, path)
	}

	if err = definition.NewFileRepository(opts.Dir).Save(ctx, p); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Pass definition written", "path", path, "style", p.Style.Key())

	return path, nil
}

func scaffold(opts *InitOptions) (*pass.Pass, error) {
	if opts.SerialNumber == "" || opts.PassTypeIdentifier == "" || opts.TeamIdentifier == "" {
		return nil, errIdentityRequired
	}

	b := pass.NewBuilder(opts.SerialNumber, opts.PassTypeIdentifier, opts.TeamIdentifier).
		OrganizationName(opts.OrganizationName).
		Description(opts.Description)

	if opts.TransitType != "" && opts.Style != StyleBoardingPass {
		return nil, errTransitNotAllowed
	}

	switch opts.Style {
	case StyleBoardingPass:
		transit := pass.TransitGeneric

		if opts.TransitType != "" {
			var ok bool
			if transit, ok = transitTypes[opts.TransitType]; !ok {
				return nil, fmt.Errorf("%w: %q", errUnknownTransit, opts.TransitType)
			}
		}

		return b.FinishBoardingPass(transit), nil
	case StyleCoupon:
		return b.FinishCoupon(), nil
	case StyleEventTicket:
		return b.FinishEventTicket(), nil
	case StyleGeneric, "":
		return b.FinishGeneric(), nil
	case StyleStoreCard:
		return b.FinishStoreCard(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownStyle, opts.Style)
	}
}
