package userservice

import (
	"context"
	"fmt"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// GatewayClaim is the identity the gateway asserts through signed headers.
type GatewayClaim struct {
	UserID          string
	Email           string
	Username        string
	Role            string
	TimestampMillis int64
	Signature       string
}

// PrincipalResolver turns asserted identities into live principals backed by
// the user store.
type PrincipalResolver struct {
	users    UserStore
	verifier *SignatureVerifier
	logger   Logger
}

// NewPrincipalResolver wires the resolver to its store and verifier.
func NewPrincipalResolver(users UserStore, verifier *SignatureVerifier, logger Logger) *PrincipalResolver {
	if logger == nil {
		logger = defLogger{prefix: "RESOLVER"}
	}
	return &PrincipalResolver{
		users:    users,
		verifier: verifier,
		logger:   logger,
	}
}

// ResolveGateway verifies the signed claim and loads the account. Signature
// and account failures are terminal. A malformed user id is reported as
// ErrMalformedGatewayUserID so the caller can fall through to the token path.
func (r *PrincipalResolver) ResolveGateway(ctx context.Context, claim GatewayClaim) (*Principal, error) {
	if !r.verifier.Verify(claim.UserID, claim.Email, claim.Role, claim.TimestampMillis, claim.Signature) {
		return nil, ErrInvalidGatewaySignature
	}

	id, err := uuid.Parse(claim.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGatewayUserID, err)
	}

	user, err := r.users.FindByID(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	// Enablement comes from the store row loaded now, not from the
	// X-User-Status header the gateway saw at signing time.
	if !user.Enabled() {
		return nil, ErrAccountDisabled
	}

	return NewPrincipalFromUser(user, PrincipalSourceGateway), nil
}

// ResolveToken loads the account behind validated bearer claims. Unknown or
// disabled accounts resolve to no principal without error, the request
// proceeds unauthenticated.
func (r *PrincipalResolver) ResolveToken(ctx context.Context, claims *AuthClaims) (*Principal, error) {
	if claims == nil || claims.Email == "" {
		return nil, nil
	}

	user, err := r.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	if !user.Enabled() {
		r.logger.Debug("token principal %s skipped, account not enabled", claims.Email)
		return nil, nil
	}

	return NewPrincipalFromUser(user, PrincipalSourceToken), nil
}
