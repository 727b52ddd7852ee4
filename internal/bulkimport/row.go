package bulkimport

// Registration is the tri-state storage-registration status of a row's
// recipient on the requested token contract. Only meaningful for non-native
// tokens.
type Registration string

const (
	RegistrationUnknown    Registration = "unknown"
	RegistrationRegistered Registration = "registered"
	RegistrationMissing    Registration = "unregistered"
)

// RecipientRow is one payment candidate from the pasted import text. Parser
// fills the input fields, the validator sets Valid/ErrorMessage, the
// registration checker sets Registration.
type RecipientRow struct {
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	Notes          string `json:"notes"`
	Recipient      string `json:"recipient"`
	RequestedToken string `json:"requestedToken"`
	FundingAsk     string `json:"fundingAsk"`

	Valid        bool         `json:"isValid"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	Registration Registration `json:"registration"`
}

// RowEdit carries a partial row update from the preview table. Nil fields
// are left unchanged.
type RowEdit struct {
	Title          *string `json:"title,omitempty"`
	Summary        *string `json:"summary,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	Recipient      *string `json:"recipient,omitempty"`
	RequestedToken *string `json:"requestedToken,omitempty"`
	FundingAsk     *string `json:"fundingAsk,omitempty"`
}

func (r *RecipientRow) apply(edit RowEdit) {
	if edit.Title != nil {
		r.Title = *edit.Title
	}
	if edit.Summary != nil {
		r.Summary = *edit.Summary
	}
	if edit.Notes != nil {
		r.Notes = *edit.Notes
	}
	if edit.Recipient != nil {
		r.Recipient = *edit.Recipient
		r.Registration = RegistrationUnknown
	}
	if edit.RequestedToken != nil {
		r.RequestedToken = *edit.RequestedToken
		r.Registration = RegistrationUnknown
	}
	if edit.FundingAsk != nil {
		r.FundingAsk = *edit.FundingAsk
	}
}
