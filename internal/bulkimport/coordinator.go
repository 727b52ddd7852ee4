package bulkimport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NEAR-DevHub/near-treasury-sub001/internal/nearrpc"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/token"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/wallet"
)

var (
	ErrSubmissionInProgress    = errors.New("bulkimport: submission already in progress")
	ErrNoRowsSelected          = errors.New("bulkimport: no rows selected")
	ErrQuotaExceeded           = errors.New("bulkimport: recipient quota exceeded")
	ErrInvalidRows             = errors.New("bulkimport: invalid rows must be fixed or removed before submitting")
	ErrAcknowledgementRequired = errors.New("bulkimport: unregistered recipients require explicit acknowledgement")
)

// SubmitRequest is the user's final word before signing: which recipients
// to pay storage deposits for, and whether they acknowledged submitting
// rows whose recipients stay unregistered.
type SubmitRequest struct {
	PayFor       []string `json:"payFor"`
	Acknowledged bool     `json:"acknowledged"`
}

// SubmissionResult reports what happened after the signing call.
type SubmissionResult struct {
	Status          State           `json:"status"`
	DepositCalls    int             `json:"depositCalls"`
	ProposalCalls   int             `json:"proposalCalls"`
	ProposalsBefore uint64          `json:"proposalsBefore"`
	ProposalsAfter  uint64          `json:"proposalsAfter,omitempty"`
	Results         []wallet.Result `json:"results,omitempty"`
}

// Coordinator drives a session from preview through signing to completion
// polling. Submission is at-least-once: one wallet-signing call carries the
// whole batch, and the chain's execution of it is outside this component's
// control, so completion is reconciled by watching the DAO's proposal
// counter advance.
type Coordinator struct {
	logger          *logrus.Logger
	rpc             nearrpc.Viewer
	signer          wallet.Signer
	pollInterval    time.Duration
	maxPollAttempts int
}

func NewCoordinator(logger *logrus.Logger, rpc nearrpc.Viewer, signer wallet.Signer) *Coordinator {
	return &Coordinator{
		logger:          logger.WithField("pkg", "bulkimport.Coordinator").Logger,
		rpc:             rpc,
		signer:          signer,
		pollInterval:    time.Second,
		maxPollAttempts: 60,
	}
}

// WithPolling overrides the completion-polling cadence; used by tests and
// deployments with slow RPC endpoints.
func (c *Coordinator) WithPolling(interval time.Duration, maxAttempts int) *Coordinator {
	c.pollInterval = interval
	c.maxPollAttempts = maxAttempts
	return c
}

// Submit runs the preview-to-done flow. On a signing failure the session
// returns to previewing with its selections intact and the error is
// reported to the caller; nothing is discarded.
func (c *Coordinator) Submit(ctx context.Context, s *Session, req SubmitRequest) (*SubmissionResult, error) {
	payFor := make(map[string]bool, len(req.PayFor))
	for _, r := range req.PayFor {
		payFor[r] = true
	}

	calls, selectedCount, err := c.prepare(s, payFor, req.Acknowledged)
	if err != nil {
		return nil, err
	}

	depositCalls := len(calls) - selectedCount

	before, err := c.rpc.LastProposalID(ctx, s.DAO)
	if err != nil {
		c.failBack(s, err)
		return nil, fmt.Errorf("failed to read proposal counter: %w", err)
	}

	txs := wallet.GroupCalls(s.SignerID, calls)
	c.logger.WithFields(logrus.Fields{
		"session":      s.ID,
		"dao":          s.DAO,
		"transactions": len(txs),
		"deposits":     depositCalls,
		"proposals":    selectedCount,
	}).Info("submitting bulk import")

	results, err := c.signer.SignAndSend(ctx, txs)
	if err != nil {
		c.failBack(s, err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	result := &SubmissionResult{
		DepositCalls:    depositCalls,
		ProposalCalls:   selectedCount,
		ProposalsBefore: before,
		Results:         results,
	}

	s.mu.Lock()
	s.State = StatePolling
	pollCtx, cancel := context.WithCancel(ctx)
	s.cancelPolling = cancel
	s.mu.Unlock()
	defer s.Close()

	after, confirmed := c.waitForProposals(pollCtx, s.DAO, before)
	s.mu.Lock()
	if confirmed {
		s.State = StateDone
		result.Status = StateDone
		result.ProposalsAfter = after
	} else {
		// The submission may still land; this is informational, not an
		// error.
		s.State = StateUnconfirmed
		result.Status = StateUnconfirmed
	}
	s.mu.Unlock()

	return result, nil
}

// prepare checks the submit guards under the session lock and builds the
// call batch from the current selection.
func (c *Coordinator) prepare(s *Session, payFor map[string]bool, acknowledged bool) ([]wallet.Call, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State == StateSubmitting || s.State == StatePolling {
		return nil, 0, ErrSubmissionInProgress
	}
	if !s.Quota.WithinQuota {
		return nil, 0, ErrQuotaExceeded
	}

	// Rows stay editable while invalid, but none of them may linger in
	// the preview at submission time: the user fixes or removes them.
	var selected []*RecipientRow
	for i, row := range s.Rows {
		if !row.Valid {
			return nil, 0, ErrInvalidRows
		}
		if s.Selected[i] {
			selected = append(selected, row)
		}
	}
	if len(selected) == 0 {
		return nil, 0, ErrNoRowsSelected
	}

	if c.hasUnresolved(s, selected, payFor) && !acknowledged {
		s.State = StateStorageDepositConfirm
		return nil, 0, ErrAcknowledgementRequired
	}

	calls, err := BuildBatch(s.DAO, selected, payFor, s.Meta, s.Policy)
	if err != nil {
		return nil, 0, err
	}

	s.State = StateSubmitting
	s.LastError = ""
	return calls, len(selected), nil
}

// hasUnresolved reports whether any selected row transfers a fungible token
// to a recipient that is not registered and not being paid for. Such rows
// are expected to fail on-chain, so submission needs an explicit
// acknowledgement first.
func (c *Coordinator) hasUnresolved(s *Session, selected []*RecipientRow, payFor map[string]bool) bool {
	for _, row := range selected {
		if token.IsNative(row.RequestedToken) {
			continue
		}
		meta, ok := s.Meta[row.RequestedToken]
		if !ok || meta.ID == "" {
			continue
		}
		if row.Registration != RegistrationRegistered && !payFor[row.Recipient] {
			return true
		}
	}
	return false
}

func (c *Coordinator) failBack(s *Session, err error) {
	s.mu.Lock()
	s.State = StatePreviewing
	s.LastError = err.Error()
	s.mu.Unlock()
}

// waitForProposals polls the DAO's proposal counter until it advances past
// its pre-submission value or the attempt budget runs out.
func (c *Coordinator) waitForProposals(ctx context.Context, daoID string, before uint64) (uint64, bool) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return 0, false
		case <-ticker.C:
			after, err := c.rpc.LastProposalID(ctx, daoID)
			if err != nil {
				c.logger.WithError(err).Warn("proposal counter poll failed")
				continue
			}
			if after > before {
				return after, true
			}
		}
	}

	c.logger.WithFields(logrus.Fields{
		"dao":      daoID,
		"attempts": c.maxPollAttempts,
	}).Warn("submission confirmation taking longer than expected")
	return 0, false
}
