package rbac

import (
	"context"
	"sort"
	"strings"
)

// Service resolves the permissions granted to a role.
type Service struct {
	policy map[string][]string
}

// NewService constructs a Service from policy. A nil policy uses DefaultPolicy.
func NewService(policy map[string][]string) *Service {
	if policy == nil {
		policy = DefaultPolicy()
	}
	normalized := make(map[string][]string, len(policy))
	for role, perms := range policy {
		normalized[strings.ToLower(strings.TrimSpace(role))] = normalizePermissions(perms)
	}
	return &Service{policy: normalized}
}

// EffectivePermissions returns the sorted permissions of role. Unknown roles get none.
func (s *Service) EffectivePermissions(_ context.Context, role string) ([]string, error) {
	perms := append([]string(nil), s.policy[strings.ToLower(strings.TrimSpace(role))]...)
	sort.Strings(perms)
	return perms, nil
}

// Roles lists configured roles.
func (s *Service) Roles() []string {
	roles := make([]string, 0, len(s.policy))
	for role := range s.policy {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}
