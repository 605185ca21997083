package api

import "context"

// =============================================================================
// AUTHORIZATION COLLABORATOR - The engine treats this as external policy
// =============================================================================

// StaticAuthorizer privileges a fixed set of actors. The surrounding
// application decides the policy; the engine only honors the yes/no.
type StaticAuthorizer struct {
	Privileged map[string]bool
}

func (a *StaticAuthorizer) CanViewAttribution(_ context.Context, actor string) bool {
	return a.Privileged[actor]
}

// AllowAll privileges every actor. Development default.
type AllowAll struct{}

func (AllowAll) CanViewAttribution(context.Context, string) bool { return true }
