package bulkimport

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRow(recipient, tokenID, amount string) *RecipientRow {
	return &RecipientRow{
		Title:          "Payment to " + recipient,
		Recipient:      recipient,
		RequestedToken: tokenID,
		FundingAsk:     amount,
		Valid:          true,
		Registration:   RegistrationUnknown,
	}
}

func TestToSmallestUnit(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int
		want     string
		wantErr  bool
	}{
		{"2", 8, "200000000", false},
		{"0.12345678", 8, "12345678", false},
		{"1", 24, "1000000000000000000000000", false},
		{"0.000001", 6, "1", false},
		{"2500.50", 6, "2500500000", false},
		// Excess fractional digits truncate toward zero.
		{"0.123456789", 8, "12345678", false},
		{"1.0000000001", 6, "1000000", false},
		// Amounts below the smallest unit are rejected.
		{"0.0000001", 6, "", true},
		{"0", 8, "", true},
		{"-1", 8, "", true},
		{"abc", 8, "", true},
		{"", 8, "", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s@%d", tt.amount, tt.decimals), func(t *testing.T) {
			got, err := ToSmallestUnit(tt.amount, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildBatch_OrderingInvariant(t *testing.T) {
	// Rows 2 and 4 (1-based) need storage deposits: every deposit call
	// must precede every proposal call, and proposals keep row order.
	rows := []*RecipientRow{
		validRow("a1.near", "usdt.tether-token.near", "1"),
		validRow("a2.near", "usdt.tether-token.near", "2"),
		validRow("a3.near", "usdt.tether-token.near", "3"),
		validRow("a4.near", "usdt.tether-token.near", "4"),
		validRow("a5.near", "usdt.tether-token.near", "5"),
	}
	rows[1].Registration = RegistrationMissing
	rows[3].Registration = RegistrationMissing
	for _, r := range rows {
		if r.Registration == RegistrationUnknown {
			r.Registration = RegistrationRegistered
		}
	}

	payFor := map[string]bool{"a2.near": true, "a4.near": true}

	calls, err := BuildBatch("dao.near", rows, payFor, testMeta, Policy{ProposalBond: "1000"})
	require.NoError(t, err)
	require.Len(t, calls, 7)

	assert.Equal(t, "storage_deposit", calls[0].Method)
	assert.Equal(t, "storage_deposit", calls[1].Method)
	for i, call := range calls[2:] {
		assert.Equal(t, "add_proposal", call.Method)
		assert.Equal(t, "dao.near", call.Receiver)

		var args struct {
			Proposal struct {
				Kind struct {
					Transfer struct {
						ReceiverID string `json:"receiver_id"`
					} `json:"Transfer"`
				} `json:"kind"`
			} `json:"proposal"`
		}
		require.NoError(t, json.Unmarshal(call.Args, &args))
		assert.Equal(t, fmt.Sprintf("a%d.near", i+1), args.Proposal.Kind.Transfer.ReceiverID)
	}

	var depositArgs struct {
		AccountID        string `json:"account_id"`
		RegistrationOnly bool   `json:"registration_only"`
	}
	require.NoError(t, json.Unmarshal(calls[0].Args, &depositArgs))
	assert.Equal(t, "a2.near", depositArgs.AccountID)
	assert.True(t, depositArgs.RegistrationOnly)
	assert.Equal(t, "usdt.tether-token.near", calls[0].Receiver)
	assert.Equal(t, StorageDepositYocto, calls[0].Deposit)
	assert.Equal(t, GasStorageDeposit, calls[0].Gas)
}

func TestBuildBatch_NativeTransfer(t *testing.T) {
	rows := []*RecipientRow{validRow("alice.near", "NEAR", "2")}

	calls, err := BuildBatch("dao.near", rows, nil, testMeta, Policy{ProposalBond: "100000000000000000000000"})
	require.NoError(t, err)
	require.Len(t, calls, 1)

	call := calls[0]
	assert.Equal(t, "add_proposal", call.Method)
	assert.Equal(t, GasAddProposal, call.Gas)
	assert.Equal(t, "100000000000000000000000", call.Deposit)

	var args struct {
		Proposal struct {
			Description string `json:"description"`
			Kind        struct {
				Transfer struct {
					TokenID    string `json:"token_id"`
					ReceiverID string `json:"receiver_id"`
					Amount     string `json:"amount"`
				} `json:"Transfer"`
			} `json:"kind"`
		} `json:"proposal"`
	}
	require.NoError(t, json.Unmarshal(call.Args, &args))
	assert.Equal(t, "", args.Proposal.Kind.Transfer.TokenID)
	assert.Equal(t, "alice.near", args.Proposal.Kind.Transfer.ReceiverID)
	assert.Equal(t, "2000000000000000000000000", args.Proposal.Kind.Transfer.Amount)
	assert.Contains(t, args.Proposal.Description, "Payment to alice.near")
}

func TestBuildBatch_DeduplicatesDeposits(t *testing.T) {
	// Two rows paying the same recipient in the same token need only one
	// registration.
	rows := []*RecipientRow{
		validRow("alice.near", "usdt.tether-token.near", "1"),
		validRow("alice.near", "usdt.tether-token.near", "2"),
	}
	rows[0].Registration = RegistrationMissing
	rows[1].Registration = RegistrationMissing

	calls, err := BuildBatch("dao.near", rows, map[string]bool{"alice.near": true}, testMeta, Policy{ProposalBond: "1"})
	require.NoError(t, err)
	require.Len(t, calls, 3)
	assert.Equal(t, "storage_deposit", calls[0].Method)
	assert.Equal(t, "add_proposal", calls[1].Method)
	assert.Equal(t, "add_proposal", calls[2].Method)
}

func TestBuildBatch_SkipsDepositWithoutOptIn(t *testing.T) {
	rows := []*RecipientRow{validRow("alice.near", "usdt.tether-token.near", "1")}
	rows[0].Registration = RegistrationMissing

	calls, err := BuildBatch("dao.near", rows, nil, testMeta, Policy{ProposalBond: "1"})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "add_proposal", calls[0].Method)
}

func TestBuildBatch_RejectsInvalidRow(t *testing.T) {
	rows := []*RecipientRow{
		{Recipient: "alice.near", RequestedToken: "NEAR", FundingAsk: "1", Valid: false, ErrorMessage: msgInvalidAmount},
	}
	_, err := BuildBatch("dao.near", rows, nil, testMeta, Policy{ProposalBond: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid")
}

func TestProposalDescription(t *testing.T) {
	row := &RecipientRow{Title: "Dev grant", Summary: "Q3 work", Notes: "tranche 1"}
	assert.Equal(t, "* Title: Dev grant <br>* Summary: Q3 work <br>* Notes: tranche 1", proposalDescription(row))

	row = &RecipientRow{Title: "Dev grant"}
	assert.Equal(t, "* Title: Dev grant", proposalDescription(row))
}
