package auth

// Actor is the operator behind a request together with whatever credentials
// the request carried.
type Actor struct {
	ID string
	// Secret is the close secret typed into the close dialog, if any.
	Secret     string
	EditGrants map[string]bool
}

func (a Actor) Authenticated() bool {
	return a.ID != ""
}

func (a Actor) HasEditGrant(registerID string) bool {
	return a.EditGrants[registerID]
}

// WithEditGrant returns a copy of the actor that may edit registerID.
func (a Actor) WithEditGrant(registerID string) Actor {
	grants := make(map[string]bool, len(a.EditGrants)+1)
	for id, ok := range a.EditGrants {
		grants[id] = ok
	}
	grants[registerID] = true
	a.EditGrants = grants
	return a
}

// AuthorizationPolicy decides who may close a register and who may edit a
// closed one. Swap the implementation to plug in real credential checks.
type AuthorizationPolicy interface {
	CanClose(actor Actor) bool
	CanEditClosed(actor Actor, registerID string) bool
	ConfirmEdit(secret string) bool
}

// SecretGate compares operator input against two shared secrets. It is a
// confirmation step for the cashier desk, not an access-control boundary:
// anyone who knows the secret passes, and grants live only as long as the
// client keeps its edit-grant token.
type SecretGate struct {
	closeHash string
	editHash  string
}

func NewSecretGate(closeSecret, editSecret string) (*SecretGate, error) {
	closeHash, err := HashPassword(closeSecret)
	if err != nil {
		return nil, err
	}
	editHash, err := HashPassword(editSecret)
	if err != nil {
		return nil, err
	}
	return &SecretGate{closeHash: closeHash, editHash: editHash}, nil
}

func (g *SecretGate) CanClose(actor Actor) bool {
	if actor.Secret == "" {
		return false
	}
	return CheckPassword(g.closeHash, actor.Secret)
}

func (g *SecretGate) CanEditClosed(actor Actor, registerID string) bool {
	return actor.HasEditGrant(registerID)
}

func (g *SecretGate) ConfirmEdit(secret string) bool {
	if secret == "" {
		return false
	}
	return CheckPassword(g.editHash, secret)
}
