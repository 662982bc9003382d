package tokens

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"solana-pool-resolver/internal/domain"
	"solana-pool-resolver/internal/layout"
)

// Resolve tiers reported to metrics.
const (
	TierTable   = "table"
	TierNative  = "native"
	TierAPI     = "api"
	TierLedger  = "ledger"
	TierUnknown = "unknown"
)

// ledgerLabelLen is how many address characters name a ledger-decoded token.
const ledgerLabelLen = 6

// Resolve returns the record for address. Lookup order is the loaded table,
// the native alias, the metadata API and finally the raw mint account on the
// ledger. Tier failures are logged and fall through to the next tier.
// Tokens found by the API or the ledger are added to the curated set.
func (r *Registry) Resolve(ctx context.Context, address string) (domain.TokenRecord, error) {
	if address == "" {
		return domain.TokenRecord{}, ErrEmptyInput
	}

	if rec, ok := r.Token(address); ok {
		r.metrics.RecordResolve(TierTable)
		return rec, nil
	}

	if strings.EqualFold(address, domain.NativeAlias) {
		r.metrics.RecordResolve(TierNative)
		if rec, ok := r.Token(r.native.Address); ok {
			return rec, nil
		}
		return r.Native(), nil
	}

	if err := ctx.Err(); err != nil {
		return domain.TokenRecord{}, err
	}
	if rec, ok := r.fromAPI(ctx, address); ok {
		r.addCurated(rec)
		r.metrics.RecordResolve(TierAPI)
		return rec.Clone(), nil
	}

	if err := ctx.Err(); err != nil {
		return domain.TokenRecord{}, err
	}
	if rec, ok := r.fromLedger(ctx, address); ok {
		r.addCurated(rec)
		r.metrics.RecordResolve(TierLedger)
		return rec.Clone(), nil
	}

	if err := ctx.Err(); err != nil {
		return domain.TokenRecord{}, err
	}
	r.metrics.RecordResolve(TierUnknown)
	return domain.TokenRecord{}, fmt.Errorf("%w: %s", ErrUnknownMint, address)
}

func (r *Registry) fromAPI(ctx context.Context, address string) (domain.TokenRecord, bool) {
	if r.api == nil {
		return domain.TokenRecord{}, false
	}

	recs, err := r.api.TokenInfo(ctx, []string{address})
	if err != nil {
		r.logger.Warn("metadata api lookup failed",
			zap.String("address", address),
			zap.Error(err),
		)
		return domain.TokenRecord{}, false
	}
	if len(recs) == 0 {
		r.logger.Debug("metadata api has no record", zap.String("address", address))
		return domain.TokenRecord{}, false
	}

	for _, rec := range recs {
		if rec.Address != address {
			continue
		}
		out := rec.Clone()
		out.Priority = domain.PriorityAPI
		return out, true
	}

	r.logger.Debug("metadata api returned no record for address",
		zap.String("address", address),
		zap.Int("records", len(recs)),
	)
	return domain.TokenRecord{}, false
}

func (r *Registry) fromLedger(ctx context.Context, address string) (domain.TokenRecord, bool) {
	if r.ledger == nil {
		return domain.TokenRecord{}, false
	}

	acct, err := r.ledger.GetAccount(ctx, address)
	if err != nil {
		r.logger.Warn("ledger lookup failed",
			zap.String("address", address),
			zap.Error(err),
		)
		return domain.TokenRecord{}, false
	}
	if acct == nil {
		r.logger.Debug("mint account not found", zap.String("address", address))
		return domain.TokenRecord{}, false
	}

	mint, err := layout.DecodeMint(acct.Data)
	if err != nil {
		r.logger.Warn("mint account decode failed",
			zap.String("address", address),
			zap.String("owner", acct.Owner),
			zap.Error(err),
		)
		return domain.TokenRecord{}, false
	}

	label := address
	if len(label) > ledgerLabelLen {
		label = label[:ledgerLabelLen]
	}

	return domain.TokenRecord{
		ChainID:   r.native.ChainID,
		Address:   address,
		ProgramID: acct.Owner,
		Symbol:    label,
		Name:      label,
		Decimals:  int(mint.Decimals),
		Tags:      domain.TagSet{},
		Priority:  domain.PriorityLedger,
		Type:      domain.TypeUnknown,
	}, true
}
