package indexer

import "encoding/json"

const lamportsPerNative = 1_000_000_000

// enrichedTransaction is one record of the enriched-transaction feed.
type enrichedTransaction struct {
	Signature        string           `json:"signature"`
	Timestamp        int64            `json:"timestamp"`
	Description      string           `json:"description"`
	Source           string           `json:"source"`
	Type             string           `json:"type"`
	TransactionError *json.RawMessage `json:"transactionError"`
	TokenTransfers   []tokenTransfer  `json:"tokenTransfers"`
	Events           txEvents         `json:"events"`
}

type tokenTransfer struct {
	FromUserAccount string  `json:"fromUserAccount"`
	ToUserAccount   string  `json:"toUserAccount"`
	Mint            string  `json:"mint"`
	TokenSymbol     string  `json:"tokenSymbol"`
	TokenName       string  `json:"tokenName"`
	Decimals        int     `json:"decimals"`
	TokenAmount     float64 `json:"tokenAmount"`
}

type txEvents struct {
	Swap *swapEvent `json:"swap"`
}

// swapEvent is the decoded swap summary. Native amounts are in the chain's
// smallest unit; token amounts carry their own decimals.
type swapEvent struct {
	NativeInput  *nativeAmount `json:"nativeInput"`
	NativeOutput *nativeAmount `json:"nativeOutput"`
	TokenInputs  []swapLeg     `json:"tokenInputs"`
	TokenOutputs []swapLeg     `json:"tokenOutputs"`
}

type nativeAmount struct {
	Account string `json:"account"`
	// Amount is a string in some feed versions and a number in others.
	Amount json.Number `json:"amount"`
}

type swapLeg struct {
	Mint           string         `json:"mint"`
	TokenSymbol    string         `json:"tokenSymbol"`
	RawTokenAmount rawTokenAmount `json:"rawTokenAmount"`
}

type rawTokenAmount struct {
	TokenAmount json.Number `json:"tokenAmount"`
	Decimals    int         `json:"decimals"`
}
