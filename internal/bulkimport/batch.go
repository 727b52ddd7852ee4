package bulkimport

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/NEAR-DevHub/near-treasury-sub001/internal/token"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/wallet"
)

const (
	// GasStorageDeposit is attached to storage_deposit calls (100 Tgas).
	GasStorageDeposit uint64 = 100_000_000_000_000

	// GasAddProposal is attached to add_proposal calls (270 Tgas).
	GasAddProposal uint64 = 270_000_000_000_000

	// StorageDepositYocto is 0.0125 NEAR in yocto.
	StorageDepositYocto = "12500000000000000000000"
)

// Policy carries the source wallet's bond requirements for proposal
// creation, read from the DAO policy.
type Policy struct {
	ProposalBond string `json:"proposalBond"`
}

// BuildBatch turns the selected valid rows into the ordered on-chain call
// sequence: one storage_deposit per opted-in unregistered recipient first,
// then one add_proposal per row, original row order preserved within each
// group. It only builds descriptors and executes nothing.
func BuildBatch(daoID string, rows []*RecipientRow, payFor map[string]bool, meta map[string]token.Metadata, policy Policy) ([]wallet.Call, error) {
	var deposits []wallet.Call
	var proposals []wallet.Call

	type depositKey struct{ token, recipient string }
	seenDeposits := map[depositKey]struct{}{}

	for i, row := range rows {
		if !row.Valid {
			return nil, fmt.Errorf("bulkimport: row %d is not valid: %s", i, row.ErrorMessage)
		}

		tokenMeta := token.Native()
		if !token.IsNative(row.RequestedToken) {
			m, ok := meta[row.RequestedToken]
			if !ok {
				return nil, fmt.Errorf("bulkimport: no metadata for token %s", row.RequestedToken)
			}
			tokenMeta = m
		}

		if tokenMeta.ID != "" && row.Registration == RegistrationMissing && payFor[row.Recipient] {
			key := depositKey{token: tokenMeta.ID, recipient: row.Recipient}
			if _, ok := seenDeposits[key]; !ok {
				seenDeposits[key] = struct{}{}
				args, err := json.Marshal(map[string]any{
					"account_id":        row.Recipient,
					"registration_only": true,
				})
				if err != nil {
					return nil, fmt.Errorf("bulkimport: failed to marshal storage_deposit args: %w", err)
				}
				deposits = append(deposits, wallet.Call{
					Receiver: tokenMeta.ID,
					Method:   "storage_deposit",
					Args:     args,
					Gas:      GasStorageDeposit,
					Deposit:  StorageDepositYocto,
				})
			}
		}

		amount, err := ToSmallestUnit(row.FundingAsk, tokenMeta.Decimals)
		if err != nil {
			return nil, fmt.Errorf("bulkimport: row %d: %w", i, err)
		}

		args, err := json.Marshal(map[string]any{
			"proposal": map[string]any{
				"description": proposalDescription(row),
				"kind": map[string]any{
					"Transfer": map[string]any{
						"token_id":    tokenMeta.ID,
						"receiver_id": row.Recipient,
						"amount":      amount,
					},
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("bulkimport: failed to marshal add_proposal args: %w", err)
		}
		proposals = append(proposals, wallet.Call{
			Receiver: daoID,
			Method:   "add_proposal",
			Args:     args,
			Gas:      GasAddProposal,
			Deposit:  policy.ProposalBond,
		})
	}

	return append(deposits, proposals...), nil
}

// ToSmallestUnit converts a human-readable decimal amount to the token's
// smallest unit. Fractional digits beyond the token's precision are
// truncated toward zero; an amount that truncates to zero is rejected.
// Arbitrary-precision arithmetic throughout, never floating point.
func ToSmallestUnit(amount string, decimals int) (string, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.Sign() <= 0 {
		return "", fmt.Errorf("amount must be greater than 0, got %q", amount)
	}

	scaled := d.Shift(int32(decimals)).Truncate(0)
	if scaled.Sign() <= 0 {
		return "", fmt.Errorf("amount %q is below the smallest unit at %d decimals", amount, decimals)
	}
	return scaled.String(), nil
}

func proposalDescription(row *RecipientRow) string {
	parts := []string{"* Title: " + row.Title}
	if row.Summary != "" {
		parts = append(parts, "* Summary: "+row.Summary)
	}
	if row.Notes != "" {
		parts = append(parts, "* Notes: "+row.Notes)
	}
	return strings.Join(parts, " <br>")
}
