package bulkimport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NEAR-DevHub/near-treasury-sub001/internal/token"
)

// State is the submission coordinator's state machine position.
type State string

const (
	StateIdle                  State = "idle"
	StatePreviewing            State = "previewing"
	StateStorageDepositConfirm State = "storage_deposit_confirm"
	StateSubmitting            State = "submitting"
	StatePolling               State = "polling"
	StateDone                  State = "done"
	StateUnconfirmed           State = "unconfirmed"
)

// Session is one open bulk-import: the parsed rows, their selection, quota
// verdict and registration results. It is owned by the UI session that
// created it; all access goes through the mutex because HTTP handlers and
// the polling loop touch it concurrently.
type Session struct {
	mu sync.Mutex

	ID           string
	DAO          string
	SignerID     string
	DefaultToken string
	Org          string

	Rows     []*RecipientRow
	Selected []bool
	Meta     map[string]token.Metadata
	Quota    QuotaResult
	Policy   Policy

	State         State
	Registrations []*RegistrationReport
	LastError     string

	createdAt     time.Time
	cancelPolling context.CancelFunc
}

// SessionView is the JSON snapshot handed to UI callers.
type SessionView struct {
	ID            string                `json:"id"`
	DAO           string                `json:"dao"`
	SignerID      string                `json:"signerId"`
	DefaultToken  string                `json:"defaultToken"`
	State         State                 `json:"state"`
	Rows          []RecipientRow        `json:"rows"`
	Selected      []bool                `json:"selected"`
	InvalidCount  int                   `json:"invalidCount"`
	Quota         QuotaResult           `json:"quota"`
	Registrations []*RegistrationReport `json:"registrations,omitempty"`
	LastError     string                `json:"lastError,omitempty"`
}

// Snapshot returns a copy safe to serialize while the session keeps moving.
func (s *Session) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]RecipientRow, len(s.Rows))
	invalid := 0
	for i, row := range s.Rows {
		rows[i] = *row
		if !row.Valid {
			invalid++
		}
	}
	selected := make([]bool, len(s.Selected))
	copy(selected, s.Selected)

	return SessionView{
		ID:            s.ID,
		DAO:           s.DAO,
		SignerID:      s.SignerID,
		DefaultToken:  s.DefaultToken,
		State:         s.State,
		Rows:          rows,
		Selected:      selected,
		InvalidCount:  invalid,
		Quota:         s.Quota,
		Registrations: s.Registrations,
		LastError:     s.LastError,
	}
}

// EditRow applies a partial update and re-validates the edited row. The
// quota verdict is unchanged since the row count stays the same.
func (s *Session) EditRow(index int, edit RowEdit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEditable(index); err != nil {
		return err
	}

	row := s.Rows[index]
	row.apply(edit)
	ValidateRow(row, s.Meta)
	if !row.Valid {
		s.Selected[index] = false
	}
	return nil
}

// DeleteRow removes a row from the preview and recomputes the quota.
func (s *Session) DeleteRow(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEditable(index); err != nil {
		return err
	}

	s.Rows = append(s.Rows[:index], s.Rows[index+1:]...)
	s.Selected = append(s.Selected[:index], s.Selected[index+1:]...)
	s.Quota = CheckQuota(s.Quota.CreditsAvailable, len(s.Rows))
	return nil
}

// SetSelected toggles a row's inclusion in the submission. Invalid rows
// cannot be selected.
func (s *Session) SetSelected(index int, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEditable(index); err != nil {
		return err
	}
	if selected && !s.Rows[index].Valid {
		return fmt.Errorf("bulkimport: row %d is invalid and cannot be selected", index)
	}
	s.Selected[index] = selected
	return nil
}

func (s *Session) checkEditable(index int) error {
	if s.State == StateSubmitting || s.State == StatePolling {
		return ErrSubmissionInProgress
	}
	if index < 0 || index >= len(s.Rows) {
		return fmt.Errorf("bulkimport: row index %d out of range", index)
	}
	return nil
}

// applyRegistrations merges checker reports into the rows by recipient id.
func (s *Session) applyRegistrations(reports []*RegistrationReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unregistered := map[string]map[string]bool{}
	for _, report := range reports {
		set := map[string]bool{}
		for _, r := range report.Unregistered {
			set[r] = true
		}
		unregistered[report.TokenID] = set
	}

	for _, row := range s.Rows {
		meta, ok := s.Meta[row.RequestedToken]
		if !ok || meta.ID == "" {
			continue
		}
		set, checked := unregistered[meta.ID]
		if !checked {
			continue
		}
		if set[row.Recipient] {
			row.Registration = RegistrationMissing
		} else {
			row.Registration = RegistrationRegistered
		}
	}
	s.Registrations = reports
}

// Close tears down any polling loop the session still owns. Called when the
// import is cancelled or completed.
func (s *Session) Close() {
	s.mu.Lock()
	cancel := s.cancelPolling
	s.cancelPolling = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
