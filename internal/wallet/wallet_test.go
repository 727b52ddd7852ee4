package wallet

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupCalls(t *testing.T) {
	args := json.RawMessage(`{}`)
	calls := []Call{
		{Receiver: "usdt.near", Method: "storage_deposit", Args: args, Gas: 100, Deposit: "1"},
		{Receiver: "usdt.near", Method: "storage_deposit", Args: args, Gas: 100, Deposit: "1"},
		{Receiver: "dao.near", Method: "add_proposal", Args: args, Gas: 200, Deposit: "2"},
		{Receiver: "dao.near", Method: "add_proposal", Args: args, Gas: 200, Deposit: "2"},
		{Receiver: "usdt.near", Method: "storage_deposit", Args: args, Gas: 100, Deposit: "1"},
	}

	txs := GroupCalls("treasury.near", calls)
	require.Len(t, txs, 3)

	assert.Equal(t, "usdt.near", txs[0].ReceiverID)
	assert.Len(t, txs[0].Actions, 2)
	assert.Equal(t, "dao.near", txs[1].ReceiverID)
	assert.Len(t, txs[1].Actions, 2)
	assert.Equal(t, "usdt.near", txs[2].ReceiverID)
	assert.Len(t, txs[2].Actions, 1)

	for _, tx := range txs {
		assert.Equal(t, "treasury.near", tx.SignerID)
		for _, a := range tx.Actions {
			assert.Equal(t, "FunctionCall", a.Type)
		}
	}
	assert.Equal(t, "100", txs[0].Actions[0].Params.Gas)
}

func TestGroupCalls_Empty(t *testing.T) {
	assert.Empty(t, GroupCalls("treasury.near", nil))
}
