package gatewayware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	userservice "github.com/goliatone/user-service"
	"github.com/goliatone/user-service/middleware/gatewayware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// stubResolver scripts the resolver outcomes per test.
type stubResolver struct {
	gatewayPrincipal *userservice.Principal
	gatewayErr       error
	tokenPrincipal   *userservice.Principal
	tokenErr         error

	gatewayClaim *userservice.GatewayClaim
	tokenClaims  *userservice.AuthClaims
}

func (s *stubResolver) ResolveGateway(_ context.Context, claim userservice.GatewayClaim) (*userservice.Principal, error) {
	s.gatewayClaim = &claim
	return s.gatewayPrincipal, s.gatewayErr
}

func (s *stubResolver) ResolveToken(_ context.Context, claims *userservice.AuthClaims) (*userservice.Principal, error) {
	s.tokenClaims = claims
	return s.tokenPrincipal, s.tokenErr
}

// stubValidator scripts bearer token validation.
type stubValidator struct {
	claims *userservice.AuthClaims
	err    error
	raw    string
}

func (s *stubValidator) Validate(token string) (*userservice.AuthClaims, error) {
	s.raw = token
	return s.claims, s.err
}

func newHandler(cfg gatewayware.Config) router.HandlerFunc {
	mw := gatewayware.New(cfg)
	return mw(func(ctx router.Context) error { return nil })
}

func stubRequestLine(mc *MockContext, method, path string) {
	mc.On("Method").Return(method)
	mc.On("Path").Return(path)
}

func stubHeaders(mc *MockContext, headers map[string]string) {
	for key, val := range headers {
		mc.On("Header", key).Return(val)
	}
	mc.On("Header", mock.Anything).Return("")
}

func validGatewayHeaders(userID string) map[string]string {
	return map[string]string{
		gatewayware.HeaderGatewayValidated: "true",
		gatewayware.HeaderUserID:           userID,
		gatewayware.HeaderUserEmail:        "alice@example.com",
		gatewayware.HeaderGatewayTimestamp: "1740830400000",
		gatewayware.HeaderGatewaySignature: "c2lnbmF0dXJl",
	}
}

func forbiddenBody(message string) any {
	return mock.MatchedBy(func(val any) bool {
		body, ok := val.(map[string]string)
		return ok && body["error"] == "Forbidden" && body["message"] == message
	})
}

func TestMiddlewareSkipsOptionsRequests(t *testing.T) {
	resolver := &stubResolver{}
	handler := newHandler(gatewayware.Config{Resolver: resolver})

	mc := &MockContext{}
	stubRequestLine(mc, "OPTIONS", "/api/v1/users/me")

	require.NoError(t, handler(mc))
	assert.True(t, mc.NextCalled)
	assert.Nil(t, resolver.gatewayClaim)
}

func TestMiddlewareSkipsPublicPaths(t *testing.T) {
	paths := []string{
		"/api/v1/auth/login",
		"/api/v1/auth/register",
		"/api/v1/auth/refresh",
		"/api/v1/public/novels",
		"/health",
		"/error",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			resolver := &stubResolver{}
			handler := newHandler(gatewayware.Config{Resolver: resolver})

			mc := &MockContext{}
			stubRequestLine(mc, "GET", path)

			require.NoError(t, handler(mc))
			assert.True(t, mc.NextCalled)
			assert.Nil(t, resolver.gatewayClaim)
		})
	}
}

func TestMiddlewareNoCredentialsProceedsUnauthenticated(t *testing.T) {
	resolver := &stubResolver{}
	handler := newHandler(gatewayware.Config{Resolver: resolver})

	mc := &MockContext{}
	stubRequestLine(mc, "GET", "/api/v1/users/me")
	stubHeaders(mc, nil)

	require.NoError(t, handler(mc))
	assert.True(t, mc.NextCalled)
	assert.Nil(t, resolver.gatewayClaim)
	mc.AssertNotCalled(t, "Locals", mock.Anything, mock.Anything)
}

func TestMiddlewareMissingGatewayHeaders(t *testing.T) {
	resolver := &stubResolver{}
	handler := newHandler(gatewayware.Config{Resolver: resolver})

	mc := &MockContext{}
	stubRequestLine(mc, "GET", "/api/v1/users/me")
	stubHeaders(mc, map[string]string{
		gatewayware.HeaderGatewayValidated: "true",
		gatewayware.HeaderUserID:           uuid.New().String(),
	})
	mc.On("JSON", router.StatusForbidden, forbiddenBody("Invalid gateway headers")).Return(nil)

	require.NoError(t, handler(mc))
	assert.False(t, mc.NextCalled)
	mc.AssertExpectations(t)
}

func TestMiddlewareInvalidTimestampFormat(t *testing.T) {
	resolver := &stubResolver{}
	handler := newHandler(gatewayware.Config{Resolver: resolver})

	headers := validGatewayHeaders(uuid.New().String())
	headers[gatewayware.HeaderGatewayTimestamp] = "2025-03-01T12:00:00Z"

	mc := &MockContext{}
	stubRequestLine(mc, "GET", "/api/v1/users/me")
	stubHeaders(mc, headers)
	mc.On("JSON", router.StatusForbidden, forbiddenBody("Invalid timestamp format")).Return(nil)

	require.NoError(t, handler(mc))
	assert.False(t, mc.NextCalled)
	assert.Nil(t, resolver.gatewayClaim)
	mc.AssertExpectations(t)
}

func TestMiddlewareTerminalResolverErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		message string
	}{
		{"bad signature", userservice.ErrInvalidGatewaySignature, "Invalid gateway signature"},
		{"unknown account", userservice.ErrAccountNotFound, "User account not found"},
		{"disabled account", userservice.ErrAccountDisabled, "User account is disabled or suspended"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := &stubResolver{gatewayErr: tc.err}
			handler := newHandler(gatewayware.Config{Resolver: resolver})

			mc := &MockContext{}
			stubRequestLine(mc, "GET", "/api/v1/users/me")
			stubHeaders(mc, validGatewayHeaders(uuid.New().String()))
			mc.On("Context").Return(context.Background())
			mc.On("JSON", router.StatusForbidden, forbiddenBody(tc.message)).Return(nil)

			require.NoError(t, handler(mc))
			assert.False(t, mc.NextCalled)
			mc.AssertExpectations(t)
		})
	}
}

func TestMiddlewareGatewayHappyPath(t *testing.T) {
	userID := uuid.New()
	principal := &userservice.Principal{
		ID:      userID,
		Email:   "alice@example.com",
		Roles:   []userservice.Role{userservice.RoleUser},
		Enabled: true,
		Source:  userservice.PrincipalSourceGateway,
	}

	resolver := &stubResolver{gatewayPrincipal: principal}
	handler := newHandler(gatewayware.Config{Resolver: resolver})

	mc := &MockContext{}
	stubRequestLine(mc, "GET", "/api/v1/users/me")
	stubHeaders(mc, validGatewayHeaders(userID.String()))
	mc.On("Context").Return(context.Background())
	mc.On("Locals", "principal", principal).Return(nil)
	mc.On("SetContext", mock.Anything)

	require.NoError(t, handler(mc))
	assert.True(t, mc.NextCalled)

	require.NotNil(t, resolver.gatewayClaim)
	assert.Equal(t, userID.String(), resolver.gatewayClaim.UserID)
	assert.Equal(t, "alice@example.com", resolver.gatewayClaim.Email)
	assert.Equal(t, int64(1740830400000), resolver.gatewayClaim.TimestampMillis)
	mc.AssertExpectations(t)
}

func TestMiddlewareGatewayTakesPrecedenceOverBearer(t *testing.T) {
	userID := uuid.New()
	gatewayPrincipal := &userservice.Principal{
		ID:     userID,
		Source: userservice.PrincipalSourceGateway,
	}

	resolver := &stubResolver{gatewayPrincipal: gatewayPrincipal}
	validator := &stubValidator{claims: &userservice.AuthClaims{Email: "alice@example.com"}}
	handler := newHandler(gatewayware.Config{Resolver: resolver, TokenValidator: validator})

	headers := validGatewayHeaders(userID.String())
	headers[router.HeaderAuthorization] = "Bearer also.valid.token"

	mc := &MockContext{}
	stubRequestLine(mc, "GET", "/api/v1/users/me")
	stubHeaders(mc, headers)
	mc.On("Context").Return(context.Background())
	mc.On("Locals", "principal", gatewayPrincipal).Return(nil)
	mc.On("SetContext", mock.Anything)

	require.NoError(t, handler(mc))
	assert.True(t, mc.NextCalled)

	// the bearer path must not run once the gateway established a principal
	assert.Empty(t, validator.raw)
	assert.Nil(t, resolver.tokenClaims)
}

func TestMiddlewareNonTerminalGatewayErrorFallsThrough(t *testing.T) {
	// a malformed user id behind a valid signature falls through to the
	// bearer path instead of ending the request
	resolver := &stubResolver{
		gatewayErr:     userservice.ErrMalformedGatewayUserID,
		tokenPrincipal: &userservice.Principal{ID: uuid.New(), Source: userservice.PrincipalSourceToken},
	}
	validator := &stubValidator{claims: &userservice.AuthClaims{Email: "alice@example.com"}}
	handler := newHandler(gatewayware.Config{Resolver: resolver, TokenValidator: validator})

	headers := validGatewayHeaders("not-a-uuid")
	headers[router.HeaderAuthorization] = "Bearer some.jwt.token"

	mc := &MockContext{}
	stubRequestLine(mc, "GET", "/api/v1/users/me")
	stubHeaders(mc, headers)
	mc.On("Context").Return(context.Background())
	mc.On("Locals", "principal", resolver.tokenPrincipal).Return(nil)
	mc.On("SetContext", mock.Anything)

	require.NoError(t, handler(mc))
	assert.True(t, mc.NextCalled)
	assert.Equal(t, "some.jwt.token", validator.raw)
}

func TestMiddlewareBearerFallbackHappyPath(t *testing.T) {
	principal := &userservice.Principal{
		ID:     uuid.New(),
		Email:  "bob@example.com",
		Source: userservice.PrincipalSourceToken,
	}
	resolver := &stubResolver{tokenPrincipal: principal}
	validator := &stubValidator{claims: &userservice.AuthClaims{
		Email:   "bob@example.com",
		Expires: time.Now().Add(time.Hour),
	}}
	handler := newHandler(gatewayware.Config{Resolver: resolver, TokenValidator: validator})

	mc := &MockContext{}
	stubRequestLine(mc, "GET", "/api/v1/users/me")
	stubHeaders(mc, map[string]string{
		router.HeaderAuthorization: "Bearer valid.jwt.token",
	})
	mc.On("Context").Return(context.Background())
	mc.On("Locals", "principal", principal).Return(nil)
	mc.On("SetContext", mock.Anything)

	require.NoError(t, handler(mc))
	assert.True(t, mc.NextCalled)
	require.NotNil(t, resolver.tokenClaims)
	assert.Equal(t, "bob@example.com", resolver.tokenClaims.Email)
}

func TestMiddlewareBearerFailuresAreSilent(t *testing.T) {
	cases := []struct {
		name      string
		validator *stubValidator
		resolver  *stubResolver
	}{
		{
			name:      "expired token",
			validator: &stubValidator{err: userservice.ErrTokenExpired},
			resolver:  &stubResolver{},
		},
		{
			name:      "malformed token",
			validator: &stubValidator{err: userservice.ErrTokenMalformed},
			resolver:  &stubResolver{},
		},
		{
			name:      "resolver failure",
			validator: &stubValidator{claims: &userservice.AuthClaims{Email: "x@example.com"}},
			resolver:  &stubResolver{tokenErr: errors.New("db timeout")},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newHandler(gatewayware.Config{Resolver: tc.resolver, TokenValidator: tc.validator})

			mc := &MockContext{}
			stubRequestLine(mc, "GET", "/api/v1/users/me")
			stubHeaders(mc, map[string]string{
				router.HeaderAuthorization: "Bearer some.jwt.token",
			})
			mc.On("Context").Return(context.Background())

			require.NoError(t, handler(mc))
			assert.True(t, mc.NextCalled)
			mc.AssertNotCalled(t, "Locals", mock.Anything, mock.Anything)
		})
	}
}

func TestMiddlewareWrongAuthSchemeIgnored(t *testing.T) {
	validator := &stubValidator{claims: &userservice.AuthClaims{Email: "x@example.com"}}
	resolver := &stubResolver{}
	handler := newHandler(gatewayware.Config{Resolver: resolver, TokenValidator: validator})

	mc := &MockContext{}
	stubRequestLine(mc, "GET", "/api/v1/users/me")
	stubHeaders(mc, map[string]string{
		router.HeaderAuthorization: "Basic dXNlcjpwYXNz",
	})

	require.NoError(t, handler(mc))
	assert.True(t, mc.NextCalled)
	assert.Empty(t, validator.raw)
}

func TestMiddlewareCustomSkipPaths(t *testing.T) {
	resolver := &stubResolver{}
	handler := newHandler(gatewayware.Config{
		Resolver:  resolver,
		SkipPaths: []string{"/custom/"},
	})

	mc := &MockContext{}
	stubRequestLine(mc, "GET", "/custom/thing")

	require.NoError(t, handler(mc))
	assert.True(t, mc.NextCalled)

	// default prefixes are replaced, not merged
	mc2 := &MockContext{}
	stubRequestLine(mc2, "GET", "/health")
	stubHeaders(mc2, nil)

	require.NoError(t, handler(mc2))
	assert.True(t, mc2.NextCalled)
	assert.Nil(t, resolver.gatewayClaim)
}
