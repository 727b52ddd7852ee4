package bulkimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/NEAR-DevHub/near-treasury-sub001/internal/chainaddr"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/credits"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/nearrpc"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/token"
)

var ErrSessionNotFound = errors.New("bulkimport: session not found")

// CreateRequest opens a new import session from pasted text.
type CreateRequest struct {
	DAO          string `json:"dao"`
	SignerID     string `json:"signerId"`
	DefaultToken string `json:"defaultToken"`
	Org          string `json:"org"`
	Text         string `json:"text"`
}

// Manager owns the open import sessions and wires the pipeline stages
// together: parse, validate, quota, registration check, submit.
type Manager struct {
	logger      *logrus.Logger
	rpc         nearrpc.Viewer
	tokens      *token.Service
	credits     credits.Service
	checker     *Checker
	coordinator *Coordinator

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(
	logger *logrus.Logger,
	rpc nearrpc.Viewer,
	tokens *token.Service,
	creditsService credits.Service,
	checker *Checker,
	coordinator *Coordinator,
) *Manager {
	return &Manager{
		logger:      logger.WithField("pkg", "bulkimport.Manager").Logger,
		rpc:         rpc,
		tokens:      tokens,
		credits:     creditsService,
		checker:     checker,
		coordinator: coordinator,
		sessions:    map[string]*Session{},
	}
}

// Create parses the pasted text, resolves token metadata, validates every
// row and applies the quota. All valid rows start selected.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	if req.DAO == "" || req.SignerID == "" {
		return nil, fmt.Errorf("bulkimport: dao and signer are required")
	}

	rows := ParseRows(req.Text)
	if len(rows) == 0 {
		return nil, fmt.Errorf("bulkimport: no rows found in pasted text")
	}

	for _, row := range rows {
		if row.RequestedToken == "" {
			row.RequestedToken = req.DefaultToken
		}
	}

	meta := m.resolveMetadata(ctx, rows)
	ValidateRows(rows, meta)

	remaining, err := m.credits.Remaining(ctx, req.Org)
	if err != nil {
		return nil, fmt.Errorf("bulkimport: failed to fetch remaining credits: %w", err)
	}

	bond, err := m.proposalBond(ctx, req.DAO)
	if err != nil {
		return nil, err
	}

	selected := make([]bool, len(rows))
	for i, row := range rows {
		selected[i] = row.Valid
	}

	session := &Session{
		ID:           uuid.NewString(),
		DAO:          req.DAO,
		SignerID:     req.SignerID,
		DefaultToken: req.DefaultToken,
		Org:          req.Org,
		Rows:         rows,
		Selected:     selected,
		Meta:         meta,
		Quota:        CheckQuota(remaining, len(rows)),
		Policy:       Policy{ProposalBond: bond},
		State:        StatePreviewing,
		createdAt:    time.Now(),
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"session": session.ID,
		"dao":     req.DAO,
		"rows":    len(rows),
	}).Info("import session created")

	return session, nil
}

// Get returns an open session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Cancel discards a session and tears down any polling it owns.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

// CheckRegistrations runs the storage-registration check for every fungible
// token appearing in the session's valid rows and merges the results into
// the rows.
func (m *Manager) CheckRegistrations(ctx context.Context, id string) ([]*RegistrationReport, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	recipientsByToken := map[string][]string{}
	s.mu.Lock()
	for _, row := range s.Rows {
		if !row.Valid {
			continue
		}
		meta, ok := s.Meta[row.RequestedToken]
		if !ok || meta.ID == "" || meta.Blockchain != chainaddr.Near {
			continue
		}
		recipientsByToken[meta.ID] = append(recipientsByToken[meta.ID], row.Recipient)
	}
	s.mu.Unlock()

	var reports []*RegistrationReport
	for tokenID, recipients := range recipientsByToken {
		report, err := m.checker.CheckRegistrations(ctx, tokenID, recipients)
		if err != nil {
			return nil, fmt.Errorf("bulkimport: registration check for %s: %w", tokenID, err)
		}
		reports = append(reports, report)
	}

	s.applyRegistrations(reports)
	return reports, nil
}

// Submit drives the coordinator for the session. A completed import is
// discarded; a failed or unconfirmed one stays open.
func (m *Manager) Submit(ctx context.Context, id string, req SubmitRequest) (*SubmissionResult, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	result, err := m.coordinator.Submit(ctx, s, req)
	if err != nil {
		return nil, err
	}

	if result.Status == StateDone {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
	}
	return result, nil
}

// resolveMetadata fetches metadata for each distinct non-native token in
// the rows. A token that cannot be resolved is left out of the map, which
// flags its rows as invalid rather than failing the whole import.
func (m *Manager) resolveMetadata(ctx context.Context, rows []*RecipientRow) map[string]token.Metadata {
	meta := map[string]token.Metadata{}
	for _, row := range rows {
		id := row.RequestedToken
		if token.IsNative(id) {
			continue
		}
		if _, ok := meta[id]; ok {
			continue
		}
		resolved, err := m.tokens.Metadata(ctx, id)
		if err != nil {
			m.logger.WithError(err).WithField("token", id).Warn("failed to resolve token metadata")
			continue
		}
		meta[id] = resolved
	}
	return meta
}

// proposalBond reads the deposit the DAO requires on add_proposal.
func (m *Manager) proposalBond(ctx context.Context, daoID string) (string, error) {
	raw, err := m.rpc.View(ctx, daoID, "get_policy", nil)
	if err != nil {
		return "", fmt.Errorf("bulkimport: failed to fetch DAO policy: %w", err)
	}

	var policy struct {
		ProposalBond string `json:"proposal_bond"`
	}
	if err := json.Unmarshal(raw, &policy); err != nil {
		return "", fmt.Errorf("bulkimport: failed to decode DAO policy: %w", err)
	}
	if policy.ProposalBond == "" {
		return "", fmt.Errorf("bulkimport: DAO policy has no proposal bond")
	}
	return policy.ProposalBond, nil
}
