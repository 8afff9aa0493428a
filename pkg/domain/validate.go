package domain

import "regexp"

// nameShape matches §3/§8: 3-50 chars, lowercase alphanumerics and hyphens.
var nameShape = regexp.MustCompile(`^[a-z0-9-]{3,50}$`)

// CreateRequest is the validated body of POST /api/stores (§6).
type CreateRequest struct {
	Name   string
	Engine Engine
}

// Validate enforces the request-body rules in §3/§6/§8: the name shape
// and the engine value, rejecting the reserved "medusa" engine and any
// unknown engine. Cap enforcement lives in the orchestrator's admission
// checks (§4.8).
func (r CreateRequest) Validate() error {
	if !nameShape.MatchString(r.Name) {
		return NewValidation("name must be 3-50 lowercase alphanumerics and hyphens")
	}
	if r.Engine != EngineWoocommerce {
		if r.Engine == EngineMedusa {
			return NewValidation("engine \"medusa\" is reserved and not yet supported")
		}
		return NewValidation("unknown engine")
	}
	return nil
}
