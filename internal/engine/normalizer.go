package engine

import (
	"fmt"
	"log/slog"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// RunContext carries mutable per-sync-run state. It is created fresh for
// every watched address so concurrent syncs never cross-contaminate.
type RunContext struct {
	// AbstractedAccount is the smart-account address a relayer chain
	// settles the signer's counter-asset through. It is unknown at the
	// start of a run and learned once, from the counterparty of the first
	// confidently-classified buy.
	AbstractedAccount string
}

// Learn records the abstracted account address if none is known yet.
func (rc *RunContext) Learn(address string) {
	if rc.AbstractedAccount == "" && address != "" {
		rc.AbstractedAccount = address
	}
}

// Normalizer turns one raw indexer event into a canonical leg pair: what
// left the wallet and what arrived. Events with no resolvable two-sided flow
// yield ErrUnclassifiable.
type Normalizer struct {
	params *Params
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer with the given rule sets.
func NewNormalizer(params *Params, logger *slog.Logger) *Normalizer {
	params.normalize()
	return &Normalizer{
		params: params,
		logger: logger.With(slog.String("component", "normalizer")),
	}
}

// Normalize resolves the event into zero or one RawLeg for the wallet.
// nativeUsd is the current native spot price, needed only for logging
// context here; conversion itself happens in the entry builder so the rate
// used is the one persisted per entry.
func (n *Normalizer) Normalize(ev *domain.RawEvent, wallet string, rc *RunContext) (*domain.RawLeg, error) {
	if ev == nil || ev.ID == "" {
		return nil, fmt.Errorf("normalizer: %w", domain.ErrUnclassifiable)
	}

	var leg *domain.RawLeg
	switch {
	case ev.HasSwapSummary():
		leg = n.fromSwapSummary(ev)
	default:
		leg = n.fromTransfers(ev, wallet)
		if leg == nil && ev.Chain.Relayed() {
			leg = n.fromRelayedTransfers(ev, wallet, rc)
		}
	}

	if leg == nil {
		return nil, fmt.Errorf("normalizer: event %s: %w", ev.ID, domain.ErrUnclassifiable)
	}

	n.resolveSymbols(leg)
	n.applyUnknownAmountHeuristic(leg)

	if leg.In.Amount <= 0 || leg.Out.Amount <= 0 {
		return nil, fmt.Errorf("normalizer: event %s has a one-sided flow: %w", ev.ID, domain.ErrUnclassifiable)
	}
	if leg.In.Key() == leg.Out.Key() {
		return nil, fmt.Errorf("normalizer: event %s moves a single asset: %w", ev.ID, domain.ErrUnclassifiable)
	}

	return leg, nil
}

// fromSwapSummary builds the leg from an explicit swap decode. The native
// leg wins on either side when present; otherwise the first token input is
// the true source and the last token output the true destination, since
// multi-hop routes list intermediates in between.
func (n *Normalizer) fromSwapSummary(ev *domain.RawEvent) *domain.RawLeg {
	leg := &domain.RawLeg{Event: ev}

	switch {
	case ev.NativeInput > 0:
		leg.Out = n.nativeAmount(ev.NativeInput)
	case len(ev.TokenInputs) > 0:
		leg.Out = ev.TokenInputs[0]
	default:
		return nil
	}

	switch {
	case ev.NativeOutput > 0:
		leg.In = n.nativeAmount(ev.NativeOutput)
	case len(ev.TokenOutputs) > 0:
		leg.In = ev.TokenOutputs[len(ev.TokenOutputs)-1]
	default:
		return nil
	}

	return leg
}

// fromTransfers synthesizes a leg when no swap summary exists but the wallet
// has exactly one outgoing and one incoming transfer of differing assets.
func (n *Normalizer) fromTransfers(ev *domain.RawEvent, wallet string) *domain.RawLeg {
	var outgoing, incoming []*domain.TokenTransfer
	for i := range ev.Transfers {
		t := &ev.Transfers[i]
		if t.Amount <= 0 {
			continue
		}
		switch {
		case t.From == wallet && t.To != wallet:
			outgoing = append(outgoing, t)
		case t.To == wallet && t.From != wallet:
			incoming = append(incoming, t)
		}
	}

	if len(outgoing) != 1 || len(incoming) != 1 {
		return nil
	}
	if outgoing[0].Asset().Key() == incoming[0].Asset().Key() {
		return nil
	}

	return &domain.RawLeg{
		Event:       ev,
		Out:         outgoing[0].Asset(),
		In:          incoming[0].Asset(),
		OutTransfer: outgoing[0],
		InTransfer:  incoming[0],
	}
}

// fromRelayedTransfers handles intent/relayer chains where the wallet shows
// only one side of the swap and the counter-asset settles through a separate
// smart-account address. The counter-asset amount is discovered from the
// transaction's internal transfers, in decreasing order of confidence:
// transfers touching the learned abstracted account, then any positive
// stablecoin-contract transfer, then the largest wrapped-native transfer.
func (n *Normalizer) fromRelayedTransfers(ev *domain.RawEvent, wallet string, rc *RunContext) *domain.RawLeg {
	known, knownOutgoing := n.walletSide(ev, wallet)
	if known == nil {
		return nil
	}

	counter := n.discoverCounter(ev, wallet, known, rc)
	if counter == nil {
		n.logger.Debug("no counter-asset transfer discovered",
			slog.String("event", ev.ID),
			slog.String("wallet", wallet),
		)
		return nil
	}

	leg := &domain.RawLeg{Event: ev, Discovered: true}
	if knownOutgoing {
		leg.Out = known.Asset()
		leg.OutTransfer = known
		leg.In = counter.Asset()
		leg.InTransfer = counter
	} else {
		leg.In = known.Asset()
		leg.InTransfer = known
		leg.Out = counter.Asset()
		leg.OutTransfer = counter
	}
	return leg
}

// walletSide finds the single wallet-touching transfer of a relayed swap.
// Returns nil when the wallet touches zero transfers or both directions
// (the plain two-transfer path already covers the latter).
func (n *Normalizer) walletSide(ev *domain.RawEvent, wallet string) (*domain.TokenTransfer, bool) {
	var found *domain.TokenTransfer
	var outgoing bool
	for i := range ev.Transfers {
		t := &ev.Transfers[i]
		if t.Amount <= 0 {
			continue
		}
		isOut := t.From == wallet && t.To != wallet
		isIn := t.To == wallet && t.From != wallet
		if !isOut && !isIn {
			continue
		}
		if found != nil {
			// Prefer the largest transfer on the same side; bail on
			// mixed directions.
			if outgoing != isOut {
				return nil, false
			}
			if t.Amount > found.Amount {
				found = t
			}
			continue
		}
		found = t
		outgoing = isOut
	}
	return found, outgoing
}

func (n *Normalizer) discoverCounter(ev *domain.RawEvent, wallet string, known *domain.TokenTransfer, rc *RunContext) *domain.TokenTransfer {
	var viaAccount, viaStable, viaWrapped *domain.TokenTransfer

	for i := range ev.Transfers {
		t := &ev.Transfers[i]
		if t == known || t.Amount <= 0 {
			continue
		}
		if t.From == wallet || t.To == wallet {
			continue
		}
		if t.Asset().Key() == known.Asset().Key() {
			continue
		}

		if rc.AbstractedAccount != "" &&
			(t.From == rc.AbstractedAccount || t.To == rc.AbstractedAccount) &&
			(n.params.IsBase(t.Symbol) || n.params.IsStablecoinContract(t.ContractID)) {
			if viaAccount == nil || t.Amount > viaAccount.Amount {
				viaAccount = t
			}
		}
		if n.params.IsStablecoinContract(t.ContractID) || n.params.IsStablecoin(t.Symbol) {
			if viaStable == nil || t.Amount > viaStable.Amount {
				viaStable = t
			}
		}
		if n.params.IsWrappedNative(t.Symbol) {
			if viaWrapped == nil || t.Amount > viaWrapped.Amount {
				viaWrapped = t
			}
		}
	}

	switch {
	case viaAccount != nil:
		return viaAccount
	case viaStable != nil:
		return viaStable
	case viaWrapped != nil:
		return viaWrapped
	}
	return nil
}

// resolveSymbols applies the fallback chain: a symbol carried by the swap
// leg or transfer wins; otherwise the placeholder is used and metadata
// enrichment corrects it later, keyed by contract id.
func (n *Normalizer) resolveSymbols(leg *domain.RawLeg) {
	if leg.In.Symbol == "" {
		if leg.InTransfer != nil && leg.InTransfer.Symbol != "" {
			leg.In.Symbol = leg.InTransfer.Symbol
		} else {
			leg.In.Symbol = domain.UnknownSymbol
		}
	}
	if leg.Out.Symbol == "" {
		if leg.OutTransfer != nil && leg.OutTransfer.Symbol != "" {
			leg.Out.Symbol = leg.OutTransfer.Symbol
		} else {
			leg.Out.Symbol = domain.UnknownSymbol
		}
	}
}

// applyUnknownAmountHeuristic assumes the small side of an Unknown/Unknown
// leg is the native coin when the two amounts fall on opposite sides of the
// configured ceiling. Native amounts are small; token amounts are large.
func (n *Normalizer) applyUnknownAmountHeuristic(leg *domain.RawLeg) {
	if !leg.In.IsUnknown() || !leg.Out.IsUnknown() {
		return
	}
	ceiling := n.params.NativeAmountCeiling
	if ceiling <= 0 {
		return
	}

	switch {
	case leg.In.Amount < ceiling && leg.Out.Amount >= ceiling:
		leg.In.Symbol = n.params.NativeSymbol
		leg.In.ContractID = ""
	case leg.Out.Amount < ceiling && leg.In.Amount >= ceiling:
		leg.Out.Symbol = n.params.NativeSymbol
		leg.Out.ContractID = ""
	}
}

func (n *Normalizer) nativeAmount(amount float64) domain.AssetAmount {
	return domain.AssetAmount{
		Symbol: n.params.NativeSymbol,
		Amount: amount,
	}
}
