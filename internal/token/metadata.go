package token

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/NEAR-DevHub/near-treasury-sub001/internal/chainaddr"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/nearrpc"
)

const (
	// NativeSymbol is the sentinel users paste for the base currency.
	NativeSymbol = "NEAR"

	// NativeDecimals is fixed by the protocol (yoctoNEAR).
	NativeDecimals = 24
)

// IsNative checks if the token identifier represents the native token.
func IsNative(tokenID string) bool {
	return tokenID == "" || strings.EqualFold(tokenID, NativeSymbol)
}

// Metadata describes a transferable asset as the pipeline needs it.
type Metadata struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Decimals   int             `json:"decimals"`
	Blockchain chainaddr.Chain `json:"blockchain"`
}

// Native is the metadata for the base currency. Its on-chain token_id is the
// empty string.
func Native() Metadata {
	return Metadata{
		ID:         "",
		Symbol:     NativeSymbol,
		Decimals:   NativeDecimals,
		Blockchain: chainaddr.Near,
	}
}

// Service fetches and caches fungible token metadata from token contracts.
type Service struct {
	logger *logrus.Logger
	rpc    nearrpc.Viewer

	// chains maps token contract ids to the blockchain their recipient
	// addresses live on, for assets bridged from other chains. Tokens not
	// listed here are plain NEP-141 tokens with NEAR recipients.
	chains map[string]chainaddr.Chain

	mu    sync.Mutex
	cache map[string]Metadata
}

func NewService(logger *logrus.Logger, rpc nearrpc.Viewer, chains map[string]chainaddr.Chain) *Service {
	if chains == nil {
		chains = map[string]chainaddr.Chain{}
	}
	return &Service{
		logger: logger.WithField("pkg", "token.Service").Logger,
		rpc:    rpc,
		chains: chains,
		cache:  map[string]Metadata{},
	}
}

// Metadata resolves a token identifier to its metadata. Results are cached
// for the process lifetime since token decimals never change.
func (s *Service) Metadata(ctx context.Context, tokenID string) (Metadata, error) {
	if IsNative(tokenID) {
		return Native(), nil
	}

	s.mu.Lock()
	cached, ok := s.cache[tokenID]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	raw, err := s.rpc.View(ctx, tokenID, "ft_metadata", nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("token: failed to fetch ft_metadata for %s: %w", tokenID, err)
	}

	var ftMeta struct {
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
	}
	if err := json.Unmarshal(raw, &ftMeta); err != nil {
		return Metadata{}, fmt.Errorf("token: failed to decode ft_metadata for %s: %w", tokenID, err)
	}
	if ftMeta.Decimals < 0 || ftMeta.Decimals > 38 {
		return Metadata{}, fmt.Errorf("token: implausible decimals %d for %s", ftMeta.Decimals, tokenID)
	}

	chain := chainaddr.Near
	if c, ok := s.chains[tokenID]; ok {
		chain = c
	}

	meta := Metadata{
		ID:         tokenID,
		Symbol:     ftMeta.Symbol,
		Decimals:   ftMeta.Decimals,
		Blockchain: chain,
	}

	s.mu.Lock()
	s.cache[tokenID] = meta
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"token":    tokenID,
		"symbol":   meta.Symbol,
		"decimals": meta.Decimals,
	}).Debug("fetched token metadata")

	return meta, nil
}
