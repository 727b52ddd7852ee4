package bulkimport

import "fmt"

// QuotaResult gates submission on the externally supplied credit count. It
// never alters rows: an over-quota session stays editable so the user can
// trim it back under the limit.
type QuotaResult struct {
	WithinQuota      bool   `json:"withinQuota"`
	CreditsAvailable int    `json:"creditsAvailable"`
	CreditsUsed      int    `json:"creditsUsed"`
	Message          string `json:"message,omitempty"`
}

// CheckQuota compares the row count against the remaining credits.
func CheckQuota(creditsAvailable, rowCount int) QuotaResult {
	result := QuotaResult{
		CreditsAvailable: creditsAvailable,
		CreditsUsed:      rowCount,
	}

	if rowCount <= creditsAvailable {
		result.WithinQuota = true
		return result
	}

	if creditsAvailable == 0 {
		result.Message = "You've used all available recipient slots. Contact us to upgrade."
	} else {
		result.Message = fmt.Sprintf("Recipient limit reached: you can add up to %d recipients.", creditsAvailable)
	}
	return result
}
