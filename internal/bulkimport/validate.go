package bulkimport

import (
	"github.com/shopspring/decimal"

	"github.com/NEAR-DevHub/near-treasury-sub001/internal/chainaddr"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/token"
)

// Row validation messages. The first failing rule wins.
const (
	msgRecipientRequired = "Recipient is required"
	msgUnknownToken      = "Unknown requested token"
	msgInvalidRecipient  = "Invalid recipient address"
	msgAmountRequired    = "Amount is required"
	msgInvalidAmount     = "Invalid amount"
	msgAmountNotPositive = "Amount must be greater than 0"
)

// ValidateRows assigns Valid/ErrorMessage to every row. meta maps token
// contract ids to their metadata; native sentinels need no entry. Purely
// syntactic, no network calls, and idempotent: re-running on an already
// validated row yields the same result.
func ValidateRows(rows []*RecipientRow, meta map[string]token.Metadata) {
	for _, row := range rows {
		ValidateRow(row, meta)
	}
}

// ValidateRow applies the per-row rules in precedence order.
func ValidateRow(row *RecipientRow, meta map[string]token.Metadata) {
	row.Valid = false

	if row.Recipient == "" {
		row.ErrorMessage = msgRecipientRequired
		return
	}

	chain := chainaddr.Near
	if !token.IsNative(row.RequestedToken) {
		m, ok := meta[row.RequestedToken]
		if !ok {
			row.ErrorMessage = msgUnknownToken
			return
		}
		chain = m.Blockchain
	}

	if !chainaddr.Valid(chain, row.Recipient) {
		row.ErrorMessage = msgInvalidRecipient
		return
	}

	if row.FundingAsk == "" {
		row.ErrorMessage = msgAmountRequired
		return
	}

	amount, err := decimal.NewFromString(row.FundingAsk)
	if err != nil {
		row.ErrorMessage = msgInvalidAmount
		return
	}
	if amount.Sign() <= 0 {
		row.ErrorMessage = msgAmountNotPositive
		return
	}

	row.Valid = true
	row.ErrorMessage = ""
}
