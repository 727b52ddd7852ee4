package bulkimport

import (
	"bytes"
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/NEAR-DevHub/near-treasury-sub001/internal/nearrpc"
)

// storageDepositNear is the fixed per-recipient registration deposit.
var storageDepositNear = decimal.RequireFromString("0.0125")

// RegistrationReport aggregates the unregistered subset of recipients for a
// fungible token, with the deposit cost of registering them.
type RegistrationReport struct {
	TokenID          string   `json:"tokenId"`
	Unregistered     []string `json:"unregistered"`
	PerRecipientCost string   `json:"perRecipientCost"`
	TotalCost        string   `json:"totalCost"`
}

// Checker queries storage registration of recipients on a token contract.
type Checker struct {
	logger      *logrus.Logger
	rpc         nearrpc.Viewer
	concurrency int
}

func NewChecker(logger *logrus.Logger, rpc nearrpc.Viewer) *Checker {
	return &Checker{
		logger:      logger.WithField("pkg", "bulkimport.Checker").Logger,
		rpc:         rpc,
		concurrency: 8,
	}
}

// CheckRegistrations issues one storage_balance_of query per distinct
// recipient, concurrently. A null balance means unregistered; a failed query
// is treated conservatively as unregistered so the user is not surprised by
// an on-chain failure later. Results are merged by recipient id, so the
// unregistered list keeps the caller's order regardless of completion order.
func (c *Checker) CheckRegistrations(ctx context.Context, tokenID string, recipients []string) (*RegistrationReport, error) {
	distinct := dedupe(recipients)

	registered := make(map[string]bool, len(distinct))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, recipient := range distinct {
		g.Go(func() error {
			isRegistered, err := c.isRegistered(gctx, tokenID, recipient)
			if err != nil {
				c.logger.WithError(err).WithFields(logrus.Fields{
					"token":     tokenID,
					"recipient": recipient,
				}).Warn("storage balance query failed, treating recipient as unregistered")
				isRegistered = false
			}
			mu.Lock()
			registered[recipient] = isRegistered
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var unregistered []string
	for _, recipient := range distinct {
		if !registered[recipient] {
			unregistered = append(unregistered, recipient)
		}
	}

	total := storageDepositNear.Mul(decimal.NewFromInt(int64(len(unregistered))))
	return &RegistrationReport{
		TokenID:          tokenID,
		Unregistered:     unregistered,
		PerRecipientCost: storageDepositNear.String(),
		TotalCost:        total.StringFixed(4),
	}, nil
}

func (c *Checker) isRegistered(ctx context.Context, tokenID, recipient string) (bool, error) {
	raw, err := c.rpc.View(ctx, tokenID, "storage_balance_of", map[string]any{
		"account_id": recipient,
	})
	if err != nil {
		return false, err
	}
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")), nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
