package engine

import (
	"log/slog"
	"strings"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// Outcome tags a classification rule's verdict.
type Outcome int

const (
	// OutcomeUndetermined means the rule has no opinion; the next rule in
	// the chain runs.
	OutcomeUndetermined Outcome = iota
	// OutcomeDetermined means the rule decided a direction.
	OutcomeDetermined
	// OutcomeRejected means the leg is not a position trade at all and must
	// be dropped without consulting further rules.
	OutcomeRejected
)

// Determination is a rule's tagged verdict.
type Determination struct {
	Outcome   Outcome
	Direction domain.Direction
	Rule      string
}

func determined(rule string, dir domain.Direction) Determination {
	return Determination{Outcome: OutcomeDetermined, Direction: dir, Rule: rule}
}

func undetermined() Determination {
	return Determination{Outcome: OutcomeUndetermined}
}

func rejected(rule string) Determination {
	return Determination{Outcome: OutcomeRejected, Rule: rule}
}

// classifyRule is one pure signal in the classification chain.
type classifyRule struct {
	name  string
	apply func(leg *domain.RawLeg, wallet string) Determination
}

// DirectionClassifier decides whether a normalized leg is a buy or a sell of
// the non-base asset. Rules run in a fixed order and each is pure; the first
// determined or rejected verdict wins. A leg no rule can decide is dropped,
// since a wrongly signed trade corrupts downstream P&L irreversibly.
type DirectionClassifier struct {
	params *Params
	rules  []classifyRule
	logger *slog.Logger
}

// NewDirectionClassifier builds the rule chain. The description override
// runs before transfer heuristics because exchange descriptions come from an
// execution log and outrank inferred transfer directions when present.
func NewDirectionClassifier(params *Params, logger *slog.Logger) *DirectionClassifier {
	params.normalize()
	c := &DirectionClassifier{
		params: params,
		logger: logger.With(slog.String("component", "classifier")),
	}
	c.rules = []classifyRule{
		{"base_to_base", c.ruleBaseToBase},
		{"description", c.ruleDescription},
		{"base_membership", c.ruleBaseMembership},
		{"counterparty", c.ruleCounterparty},
	}
	return c
}

// Classify runs the chain and returns the first decisive verdict.
func (c *DirectionClassifier) Classify(leg *domain.RawLeg, wallet string) Determination {
	for _, r := range c.rules {
		d := r.apply(leg, wallet)
		if d.Outcome == OutcomeUndetermined {
			continue
		}
		if d.Outcome == OutcomeRejected {
			c.logger.Debug("leg rejected",
				slog.String("rule", d.Rule),
				slog.String("event", leg.Event.ID),
			)
		}
		return d
	}
	c.logger.Debug("no rule determined a direction",
		slog.String("event", leg.Event.ID),
		slog.String("in", leg.In.Symbol),
		slog.String("out", leg.Out.Symbol),
	)
	return undetermined()
}

// ruleBaseToBase rejects swaps where both sides are money. Moving between
// base currencies is not a position trade.
func (c *DirectionClassifier) ruleBaseToBase(leg *domain.RawLeg, _ string) Determination {
	if c.params.IsBase(leg.In.Symbol) && c.params.IsBase(leg.Out.Symbol) {
		return rejected("base_to_base")
	}
	return undetermined()
}

// ruleDescription reads the indexer's natural-language summary. Sale and
// purchase vocabulary decide directly; a "swapped X for Y" phrase is decided
// by whether the non-base symbol sits before or after the word "for".
func (c *DirectionClassifier) ruleDescription(leg *domain.RawLeg, _ string) Determination {
	desc := strings.ToLower(leg.Event.Description)
	if desc == "" {
		return undetermined()
	}

	if containsWord(desc, "sold") || containsWord(desc, "sell") {
		return determined("description", domain.DirectionSell)
	}
	if containsWord(desc, "bought") || containsWord(desc, "buy") {
		return determined("description", domain.DirectionBuy)
	}

	if containsWord(desc, "swapped") || containsWord(desc, "swap") {
		if d, ok := c.parseSwapPhrase(desc, leg); ok {
			return determined("description", d)
		}
	}

	return undetermined()
}

// parseSwapPhrase decides "swapped X for Y": non-base symbol before "for"
// with a base symbol after means the wallet gave the token away (sell), the
// mirrored arrangement means a buy.
func (c *DirectionClassifier) parseSwapPhrase(desc string, leg *domain.RawLeg) (domain.Direction, bool) {
	nonBase := c.nonBaseSymbol(leg)
	if nonBase == "" {
		return "", false
	}

	forIdx := wordIndex(desc, "for")
	tokenIdx := wordIndex(desc, strings.ToLower(nonBase))
	if forIdx < 0 || tokenIdx < 0 {
		return "", false
	}

	baseAfter := c.baseSymbolAt(desc, forIdx+len("for"))
	baseBefore := c.baseSymbolIn(desc[:forIdx])

	switch {
	case tokenIdx < forIdx && baseAfter:
		return domain.DirectionSell, true
	case tokenIdx > forIdx && baseBefore:
		return domain.DirectionBuy, true
	}
	return "", false
}

// ruleBaseMembership decides from which side the money sits on. Spending a
// base currency for a non-base asset is a buy; the mirror is a sell.
func (c *DirectionClassifier) ruleBaseMembership(leg *domain.RawLeg, _ string) Determination {
	inBase := c.params.IsBase(leg.In.Symbol)
	outBase := c.params.IsBase(leg.Out.Symbol)

	switch {
	case outBase && !inBase:
		return determined("base_membership", domain.DirectionBuy)
	case inBase && !outBase:
		return determined("base_membership", domain.DirectionSell)
	}
	return undetermined()
}

// ruleCounterparty decides from the resolved transfers' from/to fields. Used
// on relayer chains where membership could not settle the question, usually
// because the counter-asset symbol is unresolved.
func (c *DirectionClassifier) ruleCounterparty(leg *domain.RawLeg, wallet string) Determination {
	inBase := c.params.IsBase(leg.In.Symbol)
	outBase := c.params.IsBase(leg.Out.Symbol)

	if leg.OutTransfer != nil && leg.OutTransfer.From == wallet {
		if outBase {
			return determined("counterparty", domain.DirectionBuy)
		}
		if !inBase {
			return determined("counterparty", domain.DirectionSell)
		}
	}
	if leg.InTransfer != nil && leg.InTransfer.To == wallet {
		if inBase {
			return determined("counterparty", domain.DirectionSell)
		}
		if !outBase {
			return determined("counterparty", domain.DirectionBuy)
		}
	}
	return undetermined()
}

// nonBaseSymbol returns the tracked asset's symbol, or "" when both sides
// are base currencies or both are not.
func (c *DirectionClassifier) nonBaseSymbol(leg *domain.RawLeg) string {
	inBase := c.params.IsBase(leg.In.Symbol)
	outBase := c.params.IsBase(leg.Out.Symbol)
	switch {
	case outBase && !inBase:
		return leg.In.Symbol
	case inBase && !outBase:
		return leg.Out.Symbol
	}
	return ""
}

// BaseCounterparty returns the address on the other end of the base-asset
// transfer, when the leg was resolved from transfers. On relayer chains this
// is the abstracted settlement account, learned after the first confident
// buy.
func BaseCounterparty(leg *domain.RawLeg, dir domain.Direction, wallet string) string {
	var t *domain.TokenTransfer
	if dir == domain.DirectionBuy {
		t = leg.OutTransfer
	} else {
		t = leg.InTransfer
	}
	if t == nil {
		return ""
	}
	if t.From == wallet {
		return t.To
	}
	if t.To == wallet {
		return t.From
	}
	// The base leg never touched the wallet directly: on a buy the base
	// asset left the settlement account, on a sell it arrived there.
	if dir == domain.DirectionBuy {
		return t.From
	}
	return t.To
}

func (c *DirectionClassifier) baseSymbolAt(desc string, from int) bool {
	if from >= len(desc) {
		return false
	}
	return c.baseSymbolIn(desc[from:])
}

func (c *DirectionClassifier) baseSymbolIn(fragment string) bool {
	for _, f := range strings.Fields(fragment) {
		if c.params.IsBase(strings.Trim(f, ".,!?")) {
			return true
		}
	}
	return false
}

func containsWord(s, word string) bool {
	return wordIndex(s, word) >= 0
}

// wordIndex locates word in s on word boundaries, so "sell" never matches
// inside "seller" and a symbol never matches inside a longer symbol.
func wordIndex(s, word string) int {
	for from := 0; from < len(s); {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(word)
		leftOK := i == 0 || !isWordChar(s[i-1])
		rightOK := end == len(s) || !isWordChar(s[end])
		if leftOK && rightOK {
			return i
		}
		from = i + 1
	}
	return -1
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
