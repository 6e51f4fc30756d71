package userservice_test

import (
	"context"
	"testing"

	userservice "github.com/goliatone/user-service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalContextRoundTrip(t *testing.T) {
	principal := &userservice.Principal{
		ID:    uuid.New(),
		Email: "alice@example.com",
	}

	ctx := userservice.WithPrincipal(context.Background(), principal)

	found, ok := userservice.PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, principal, found)
}

func TestPrincipalFromContextMissing(t *testing.T) {
	_, ok := userservice.PrincipalFromContext(context.Background())
	assert.False(t, ok)

	_, ok = userservice.PrincipalFromContext(nil)
	assert.False(t, ok)
}

func TestWithPrincipalNilIsNoOp(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, userservice.WithPrincipal(ctx, nil))
}
