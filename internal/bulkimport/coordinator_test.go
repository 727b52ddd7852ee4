package bulkimport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(rows []*RecipientRow, credits int) *Session {
	selected := make([]bool, len(rows))
	for i, row := range rows {
		selected[i] = row.Valid
	}
	return &Session{
		ID:       "test-session",
		DAO:      "dao.near",
		SignerID: "treasury.near",
		Rows:     rows,
		Selected: selected,
		Meta:     testMeta,
		Quota:    CheckQuota(credits, len(rows)),
		Policy:   Policy{ProposalBond: "100000000000000000000000"},
		State:    StatePreviewing,
	}
}

func fastCoordinator(viewer *fakeViewer, signer *fakeSigner) *Coordinator {
	return NewCoordinator(logrus.New(), viewer, signer).
		WithPolling(time.Millisecond, 20)
}

func TestCoordinator_Submit_Success(t *testing.T) {
	viewer := newFakeViewer()
	viewer.setLastID(5)
	signer := &fakeSigner{}
	signer.then = func() { viewer.setLastID(6) }

	rows := []*RecipientRow{
		validRow("alice.near", "NEAR", "1"),
		validRow("bob.near", "NEAR", "2"),
	}
	session := newTestSession(rows, 100)

	result, err := fastCoordinator(viewer, signer).Submit(context.Background(), session, SubmitRequest{})
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.Status)
	assert.Equal(t, uint64(5), result.ProposalsBefore)
	assert.Equal(t, uint64(6), result.ProposalsAfter)
	assert.Equal(t, 0, result.DepositCalls)
	assert.Equal(t, 2, result.ProposalCalls)
	assert.Equal(t, 2, signer.signedCalls())
	assert.Equal(t, StateDone, session.Snapshot().State)
}

func TestCoordinator_Submit_Guards(t *testing.T) {
	viewer := newFakeViewer()
	signer := &fakeSigner{}
	coordinator := fastCoordinator(viewer, signer)
	ctx := context.Background()

	t.Run("no rows selected", func(t *testing.T) {
		session := newTestSession([]*RecipientRow{validRow("alice.near", "NEAR", "1")}, 100)
		session.Selected[0] = false

		_, err := coordinator.Submit(ctx, session, SubmitRequest{})
		assert.ErrorIs(t, err, ErrNoRowsSelected)
	})

	t.Run("quota exceeded", func(t *testing.T) {
		session := newTestSession([]*RecipientRow{
			validRow("alice.near", "NEAR", "1"),
			validRow("bob.near", "NEAR", "2"),
		}, 1)

		_, err := coordinator.Submit(ctx, session, SubmitRequest{})
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	})

	t.Run("invalid rows present", func(t *testing.T) {
		bad := &RecipientRow{Recipient: "", RequestedToken: "NEAR", ErrorMessage: msgRecipientRequired}
		session := newTestSession([]*RecipientRow{validRow("alice.near", "NEAR", "1"), bad}, 100)

		_, err := coordinator.Submit(ctx, session, SubmitRequest{})
		assert.ErrorIs(t, err, ErrInvalidRows)
	})

	t.Run("already in flight", func(t *testing.T) {
		session := newTestSession([]*RecipientRow{validRow("alice.near", "NEAR", "1")}, 100)
		session.State = StatePolling

		_, err := coordinator.Submit(ctx, session, SubmitRequest{})
		assert.ErrorIs(t, err, ErrSubmissionInProgress)
	})

	assert.Zero(t, signer.signedCalls(), "no guard failure may reach the wallet")
}

func TestCoordinator_Submit_AcknowledgementRequired(t *testing.T) {
	viewer := newFakeViewer()
	viewer.setLastID(1)
	signer := &fakeSigner{}
	signer.then = func() { viewer.setLastID(2) }
	coordinator := fastCoordinator(viewer, signer)

	rows := []*RecipientRow{validRow("alice.near", "usdt.tether-token.near", "1")}
	rows[0].Registration = RegistrationMissing
	session := newTestSession(rows, 100)

	// Unregistered recipient, not paid for, not acknowledged: blocked.
	_, err := coordinator.Submit(context.Background(), session, SubmitRequest{})
	assert.ErrorIs(t, err, ErrAcknowledgementRequired)
	assert.Equal(t, StateStorageDepositConfirm, session.Snapshot().State)

	// Acknowledged: proceeds at the user's own risk, no deposit call.
	result, err := coordinator.Submit(context.Background(), session, SubmitRequest{Acknowledged: true})
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.Status)
	assert.Equal(t, 0, result.DepositCalls)
}

func TestCoordinator_Submit_PayForSkipsAcknowledgement(t *testing.T) {
	viewer := newFakeViewer()
	viewer.setLastID(1)
	signer := &fakeSigner{}
	signer.then = func() { viewer.setLastID(2) }

	rows := []*RecipientRow{validRow("alice.near", "usdt.tether-token.near", "1")}
	rows[0].Registration = RegistrationMissing
	session := newTestSession(rows, 100)

	result, err := fastCoordinator(viewer, signer).Submit(context.Background(), session,
		SubmitRequest{PayFor: []string{"alice.near"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.DepositCalls)
	assert.Equal(t, 1, result.ProposalCalls)
}

func TestCoordinator_Submit_SigningFailurePreservesSession(t *testing.T) {
	viewer := newFakeViewer()
	viewer.setLastID(1)
	signer := &fakeSigner{err: errors.New("user rejected in wallet")}

	rows := []*RecipientRow{
		validRow("alice.near", "NEAR", "1"),
		validRow("bob.near", "NEAR", "2"),
	}
	session := newTestSession(rows, 100)
	session.Selected[1] = false

	_, err := fastCoordinator(viewer, signer).Submit(context.Background(), session, SubmitRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create request")

	view := session.Snapshot()
	assert.Equal(t, StatePreviewing, view.State)
	assert.Contains(t, view.LastError, "user rejected")
	// Selections survive the failure so the user can retry.
	assert.Equal(t, []bool{true, false}, view.Selected)
}

func TestCoordinator_Submit_PollingTimeout(t *testing.T) {
	viewer := newFakeViewer()
	viewer.setLastID(7)
	signer := &fakeSigner{} // counter never advances

	session := newTestSession([]*RecipientRow{validRow("alice.near", "NEAR", "1")}, 100)

	result, err := fastCoordinator(viewer, signer).Submit(context.Background(), session, SubmitRequest{})
	require.NoError(t, err)

	// Informational, not an error: the submission may still land.
	assert.Equal(t, StateUnconfirmed, result.Status)
	assert.Equal(t, StateUnconfirmed, session.Snapshot().State)
}

func TestCoordinator_Submit_PollSurvivesTransientErrors(t *testing.T) {
	viewer := newFakeViewer()
	viewer.setLastID(3)
	signer := &fakeSigner{}
	signer.then = func() {
		viewer.setLastIDErr(errors.New("rpc flake"))
		go func() {
			time.Sleep(5 * time.Millisecond)
			viewer.setLastIDErr(nil)
			viewer.setLastID(4)
		}()
	}

	session := newTestSession([]*RecipientRow{validRow("alice.near", "NEAR", "1")}, 100)

	result, err := fastCoordinator(viewer, signer).WithPolling(time.Millisecond, 100).
		Submit(context.Background(), session, SubmitRequest{})
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.Status)
}
