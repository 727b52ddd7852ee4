package wallet

import (
	"context"
	"encoding/json"
	"strconv"
)

// Call is one on-chain function call the pipeline wants executed: receiver
// contract, method, JSON args, gas in gas units and attached deposit in
// yoctoNEAR (decimal string).
type Call struct {
	Receiver string          `json:"receiver"`
	Method   string          `json:"method"`
	Args     json.RawMessage `json:"args"`
	Gas      uint64          `json:"gas"`
	Deposit  string          `json:"deposit"`
}

// FunctionCall mirrors the wallet-API action params shape. Gas and deposit
// travel as decimal strings.
type FunctionCall struct {
	MethodName string          `json:"methodName"`
	Args       json.RawMessage `json:"args"`
	Gas        string          `json:"gas"`
	Deposit    string          `json:"deposit"`
}

type Action struct {
	Type   string       `json:"type"`
	Params FunctionCall `json:"params"`
}

type Transaction struct {
	SignerID   string   `json:"signerId"`
	ReceiverID string   `json:"receiverId"`
	Actions    []Action `json:"actions"`
}

type Result struct {
	TransactionHash string `json:"transactionHash"`
	ReceiverID      string `json:"receiverId"`
}

// Signer is the wallet-signing capability. One SignAndSend call covers the
// whole batch; the wallet executes outside this process and there is no
// cancellation once dispatched.
type Signer interface {
	SignAndSend(ctx context.Context, txs []Transaction) ([]Result, error)
}

// GroupCalls packs an ordered call sequence into wallet transactions,
// merging consecutive calls to the same receiver into one multi-action
// transaction. Call order is preserved.
func GroupCalls(signerID string, calls []Call) []Transaction {
	var txs []Transaction
	for _, call := range calls {
		action := Action{
			Type: "FunctionCall",
			Params: FunctionCall{
				MethodName: call.Method,
				Args:       call.Args,
				Gas:        strconv.FormatUint(call.Gas, 10),
				Deposit:    call.Deposit,
			},
		}
		if n := len(txs); n > 0 && txs[n-1].ReceiverID == call.Receiver {
			txs[n-1].Actions = append(txs[n-1].Actions, action)
			continue
		}
		txs = append(txs, Transaction{
			SignerID:   signerID,
			ReceiverID: call.Receiver,
			Actions:    []Action{action},
		})
	}
	return txs
}
