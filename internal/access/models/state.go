package models

import "namemint/pkg/domain"

// State is a point-in-time snapshot of the access-control ledger, used by the
// migration manager at upgrade boundaries.
type State struct {
	AdminAssigned bool                      `json:"admin_assigned"`
	Roles         map[domain.Principal]Role `json:"roles"`
}

// Clone returns a deep copy so migration transformers never alias live state.
func (s State) Clone() State {
	out := State{AdminAssigned: s.AdminAssigned, Roles: make(map[domain.Principal]Role, len(s.Roles))}
	for p, r := range s.Roles {
		out.Roles[p] = r
	}
	return out
}
