package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryInstallationStore keeps installations in process memory. Each Store
// writes a user-scoped record and overwrites the workspace's latest bot
// record, so user lookups resolve the installing user's credentials while
// bare workspace lookups resolve the most recent install.
type MemoryInstallationStore struct {
	mu      sync.Mutex
	entries map[string]Installation
}

func NewMemoryInstallationStore() *MemoryInstallationStore {
	return &MemoryInstallationStore{
		entries: map[string]Installation{},
	}
}

func (s *MemoryInstallationStore) Store(_ context.Context, installation Installation) error {
	if s == nil {
		return fmt.Errorf("core: installation store is not configured")
	}
	if err := installation.Validate(); err != nil {
		return err
	}
	query := installation.Query()
	enterpriseID, teamID := workspaceKey(query)
	cloned := cloneInstallation(installation)

	s.mu.Lock()
	s.entries[installationKey(enterpriseID, teamID, "")] = cloned
	if strings.TrimSpace(query.UserID) != "" {
		s.entries[installationKey(enterpriseID, teamID, query.UserID)] = cloned
	}
	s.mu.Unlock()

	return nil
}

func (s *MemoryInstallationStore) Fetch(_ context.Context, query InstallQuery) (Installation, error) {
	if s == nil {
		return Installation{}, fmt.Errorf("core: installation store is not configured")
	}
	if err := query.Validate(); err != nil {
		return Installation{}, err
	}
	enterpriseID, teamID := workspaceKey(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	if userID := strings.TrimSpace(query.UserID); userID != "" {
		if installation, ok := s.entries[installationKey(enterpriseID, teamID, userID)]; ok {
			return cloneInstallation(installation), nil
		}
	}
	if installation, ok := s.entries[installationKey(enterpriseID, teamID, "")]; ok {
		return cloneInstallation(installation), nil
	}
	return Installation{}, ErrInstallationNotFound
}

func (s *MemoryInstallationStore) Delete(_ context.Context, query InstallQuery) error {
	if s == nil {
		return fmt.Errorf("core: installation store is not configured")
	}
	if err := query.Validate(); err != nil {
		return err
	}
	enterpriseID, teamID := workspaceKey(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	if userID := strings.TrimSpace(query.UserID); userID != "" {
		delete(s.entries, installationKey(enterpriseID, teamID, userID))
		return nil
	}
	prefix := installationKey(enterpriseID, teamID, "")
	for key := range s.entries {
		if key == prefix || strings.HasPrefix(key, prefix+"::") {
			delete(s.entries, key)
		}
	}
	return nil
}

// workspaceKey normalizes the lookup scope: enterprise-wide installs are
// addressed by enterprise alone, everything else by enterprise plus team.
func workspaceKey(query InstallQuery) (string, string) {
	enterpriseID := strings.TrimSpace(query.EnterpriseID)
	teamID := strings.TrimSpace(query.TeamID)
	if query.IsEnterpriseInstall && enterpriseID != "" {
		return enterpriseID, ""
	}
	return enterpriseID, teamID
}

func installationKey(enterpriseID, teamID, userID string) string {
	key := strings.TrimSpace(enterpriseID) + "::" + strings.TrimSpace(teamID)
	if userID = strings.TrimSpace(userID); userID != "" {
		key += "::" + userID
	}
	return key
}
