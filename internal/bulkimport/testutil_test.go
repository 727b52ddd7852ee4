package bulkimport

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/NEAR-DevHub/near-treasury-sub001/internal/wallet"
)

// fakeViewer answers the view methods the pipeline uses, with switchable
// failure modes.
type fakeViewer struct {
	mu sync.Mutex

	ftMetadata   map[string]string          // token id -> ft_metadata JSON
	registered   map[string]map[string]bool // token id -> recipient -> registered
	failBalance  map[string]bool            // recipients whose balance query errors
	proposalBond string
	lastID       uint64
	lastIDErr    error

	balanceCalls int
}

func newFakeViewer() *fakeViewer {
	return &fakeViewer{
		ftMetadata:   map[string]string{},
		registered:   map[string]map[string]bool{},
		failBalance:  map[string]bool{},
		proposalBond: "100000000000000000000000",
	}
}

func (f *fakeViewer) View(_ context.Context, accountID, method string, args any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch method {
	case "ft_metadata":
		meta, ok := f.ftMetadata[accountID]
		if !ok {
			return nil, fmt.Errorf("no such token contract: %s", accountID)
		}
		return json.RawMessage(meta), nil

	case "storage_balance_of":
		f.balanceCalls++
		argMap, ok := args.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected args type %T", args)
		}
		recipient, _ := argMap["account_id"].(string)
		if f.failBalance[recipient] {
			return nil, fmt.Errorf("rpc unavailable")
		}
		if f.registered[accountID][recipient] {
			return json.RawMessage(`{"total":"12500000000000000000000","available":"0"}`), nil
		}
		return json.RawMessage(`null`), nil

	case "get_policy":
		return json.RawMessage(`{"proposal_bond":"` + f.proposalBond + `"}`), nil
	}
	return nil, fmt.Errorf("unexpected view call %s.%s", accountID, method)
}

func (f *fakeViewer) LastProposalID(context.Context, string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastIDErr != nil {
		return 0, f.lastIDErr
	}
	return f.lastID, nil
}

func (f *fakeViewer) setLastID(id uint64) {
	f.mu.Lock()
	f.lastID = id
	f.mu.Unlock()
}

func (f *fakeViewer) setLastIDErr(err error) {
	f.mu.Lock()
	f.lastIDErr = err
	f.mu.Unlock()
}

// fakeSigner records the signed batch and can be told to reject it.
type fakeSigner struct {
	mu   sync.Mutex
	txs  [][]wallet.Transaction
	err  error
	then func() // runs after a successful signing call
}

func (f *fakeSigner) SignAndSend(_ context.Context, txs []wallet.Transaction) ([]wallet.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.txs = append(f.txs, txs)
	if f.then != nil {
		f.then()
	}
	results := make([]wallet.Result, len(txs))
	for i, tx := range txs {
		results[i] = wallet.Result{
			TransactionHash: "hash-" + strconv.Itoa(i),
			ReceiverID:      tx.ReceiverID,
		}
	}
	return results, nil
}

func (f *fakeSigner) signedCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, txs := range f.txs {
		for _, tx := range txs {
			n += len(tx.Actions)
		}
	}
	return n
}

// fakeCredits is a fixed-quota credits service.
type fakeCredits struct {
	remaining int
	err       error
}

func (f *fakeCredits) Remaining(context.Context, string) (int, error) {
	return f.remaining, f.err
}
