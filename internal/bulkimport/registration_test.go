package bulkimport

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_CheckRegistrations(t *testing.T) {
	viewer := newFakeViewer()
	viewer.registered["usdt.tether-token.near"] = map[string]bool{
		"alice.near": true,
		"carol.near": true,
	}

	checker := NewChecker(logrus.New(), viewer)

	report, err := checker.CheckRegistrations(context.Background(), "usdt.tether-token.near",
		[]string{"alice.near", "bob.near", "carol.near", "dave.near"})
	require.NoError(t, err)

	assert.Equal(t, []string{"bob.near", "dave.near"}, report.Unregistered)
	assert.Equal(t, "0.0125", report.PerRecipientCost)
	assert.Equal(t, "0.0250", report.TotalCost)
}

func TestChecker_DeduplicatesRecipients(t *testing.T) {
	viewer := newFakeViewer()
	checker := NewChecker(logrus.New(), viewer)

	report, err := checker.CheckRegistrations(context.Background(), "usdt.tether-token.near",
		[]string{"bob.near", "bob.near", "bob.near"})
	require.NoError(t, err)

	assert.Equal(t, []string{"bob.near"}, report.Unregistered)
	assert.Equal(t, 1, viewer.balanceCalls)
}

func TestChecker_QueryFailureIsUnregistered(t *testing.T) {
	viewer := newFakeViewer()
	viewer.registered["usdt.tether-token.near"] = map[string]bool{
		"alice.near": true,
		"bob.near":   true,
	}
	viewer.failBalance["bob.near"] = true

	checker := NewChecker(logrus.New(), viewer)

	report, err := checker.CheckRegistrations(context.Background(), "usdt.tether-token.near",
		[]string{"alice.near", "bob.near"})
	require.NoError(t, err)

	// bob.near is actually registered, but its query failed so it is
	// reported conservatively.
	assert.Equal(t, []string{"bob.near"}, report.Unregistered)
}

func TestChecker_OrderIndependentOfCompletion(t *testing.T) {
	viewer := newFakeViewer()
	checker := NewChecker(logrus.New(), viewer)

	recipients := make([]string, 40)
	for i := range recipients {
		recipients[i] = fmt.Sprintf("user-%02d.near", i)
	}

	report, err := checker.CheckRegistrations(context.Background(), "usdt.tether-token.near", recipients)
	require.NoError(t, err)

	// Queries run concurrently but results merge by recipient id, so the
	// output keeps the input order.
	assert.Equal(t, recipients, report.Unregistered)
	assert.Equal(t, "0.5000", report.TotalCost)
}

func TestChecker_TenUnregisteredTotal(t *testing.T) {
	viewer := newFakeViewer()
	viewer.registered["usdt.tether-token.near"] = map[string]bool{}
	for i := 0; i < 4; i++ {
		viewer.registered["usdt.tether-token.near"][fmt.Sprintf("reg-%d.near", i)] = true
	}

	recipients := make([]string, 0, 14)
	for i := 0; i < 4; i++ {
		recipients = append(recipients, fmt.Sprintf("reg-%d.near", i))
	}
	for i := 0; i < 10; i++ {
		recipients = append(recipients, fmt.Sprintf("unreg-%d.near", i))
	}

	checker := NewChecker(logrus.New(), viewer)
	report, err := checker.CheckRegistrations(context.Background(), "usdt.tether-token.near", recipients)
	require.NoError(t, err)

	assert.Len(t, report.Unregistered, 10)
	assert.Equal(t, "0.1250", report.TotalCost)
}

func TestChecker_EmptyRecipientList(t *testing.T) {
	checker := NewChecker(logrus.New(), newFakeViewer())

	report, err := checker.CheckRegistrations(context.Background(), "usdt.tether-token.near", nil)
	require.NoError(t, err)
	assert.Empty(t, report.Unregistered)
	assert.Equal(t, "0.0000", report.TotalCost)
}
