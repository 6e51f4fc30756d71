package gatewayware

import (
	"context"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	userservice "github.com/goliatone/user-service"
)

// Headers the gateway stamps on validated requests.
const (
	HeaderGatewayValidated = "X-Gateway-Validated"
	HeaderUserID           = "X-User-Id"
	HeaderUserEmail        = "X-User-Email"
	HeaderUserUsername     = "X-User-Username"
	HeaderUserRole         = "X-User-Role"
	HeaderUserStatus       = "X-User-Status"
	HeaderGatewayTimestamp = "X-Gateway-Timestamp"
	HeaderGatewaySignature = "X-Gateway-Signature"
)

// PrincipalResolver turns asserted identities into live principals. It
// mirrors userservice.PrincipalResolver without an import cycle on config.
type PrincipalResolver interface {
	ResolveGateway(ctx context.Context, claim userservice.GatewayClaim) (*userservice.Principal, error)
	ResolveToken(ctx context.Context, claims *userservice.AuthClaims) (*userservice.Principal, error)
}

type Config struct {
	// Resolver is required.
	Resolver PrincipalResolver
	// TokenValidator enables the bearer fallback path. Optional.
	TokenValidator userservice.TokenValidator
	// Filter skips the middleware entirely when it returns true.
	Filter func(router.Context) bool
	// SkipPaths are prefix matched against the request path.
	SkipPaths []string
	// SkipExactPaths are matched verbatim.
	SkipExactPaths []string
	ContextKey     string
	AuthScheme     string
	ErrorHandler   router.ErrorHandler
	SuccessHandler router.HandlerFunc
	Logger         userservice.Logger
}

// defaultSkipPaths never require authentication. Login, registration, and
// refresh cannot demand credentials; health probes have none to offer.
var defaultSkipPaths = []string{
	"/api/v1/auth/login",
	"/api/v1/auth/register",
	"/api/v1/auth/refresh",
	"/api/v1/public/",
	"/health",
}

var defaultSkipExactPaths = []string{
	"/error",
}

// New builds the dual path authentication middleware. Requests marked
// X-Gateway-Validated carry signed identity headers and must verify or die
// with a 403; everything else may present a bearer token, and failures there
// simply leave the request unauthenticated.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			if cfg.shouldSkip(ctx) {
				return ctx.Next()
			}

			principal, err := cfg.resolveGatewayPrincipal(ctx)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if principal == nil {
				principal = cfg.resolveTokenPrincipal(ctx)
			}

			if principal != nil {
				ctx.Locals(cfg.ContextKey, principal)
				ctx.SetContext(userservice.WithPrincipal(ctx.Context(), principal))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

func (cfg *Config) shouldSkip(ctx router.Context) bool {
	if strings.EqualFold(ctx.Method(), "OPTIONS") {
		return true
	}

	path := ctx.Path()
	for _, prefix := range cfg.SkipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	for _, exact := range cfg.SkipExactPaths {
		if path == exact {
			return true
		}
	}

	return false
}

// resolveGatewayPrincipal handles the trusted header path. A returned error
// is terminal; (nil, nil) means fall through to the bearer token path.
func (cfg *Config) resolveGatewayPrincipal(ctx router.Context) (*userservice.Principal, error) {
	if ctx.Header(HeaderGatewayValidated) != "true" {
		return nil, nil
	}

	userID := ctx.Header(HeaderUserID)
	email := ctx.Header(HeaderUserEmail)
	timestamp := ctx.Header(HeaderGatewayTimestamp)
	signature := ctx.Header(HeaderGatewaySignature)

	if userID == "" || email == "" || timestamp == "" || signature == "" {
		return nil, userservice.ErrInvalidGatewayHeaders
	}

	timestampMillis, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, userservice.ErrInvalidTimestampFormat
	}

	claim := userservice.GatewayClaim{
		UserID:          userID,
		Email:           email,
		Username:        ctx.Header(HeaderUserUsername),
		Role:            ctx.Header(HeaderUserRole),
		TimestampMillis: timestampMillis,
		Signature:       signature,
	}

	principal, err := cfg.Resolver.ResolveGateway(ctx.Context(), claim)
	if err != nil {
		if userservice.IsTerminalAuthError(err) {
			return nil, err
		}
		// malformed ids and store hiccups fall through so the bearer
		// path gets its chance
		cfg.Logger.Warn("gateway principal resolution failed: %v", err)
		return nil, nil
	}

	return principal, nil
}

// resolveTokenPrincipal handles the bearer fallback. Every failure is silent,
// the request simply proceeds unauthenticated.
func (cfg *Config) resolveTokenPrincipal(ctx router.Context) *userservice.Principal {
	if cfg.TokenValidator == nil {
		return nil
	}

	raw := extractBearerToken(ctx, cfg.AuthScheme)
	if raw == "" {
		return nil
	}

	claims, err := cfg.TokenValidator.Validate(raw)
	if err != nil {
		cfg.Logger.Debug("bearer token rejected: %v", err)
		return nil
	}

	principal, err := cfg.Resolver.ResolveToken(ctx.Context(), claims)
	if err != nil {
		cfg.Logger.Debug("token principal resolution failed: %v", err)
		return nil
	}

	return principal
}

func extractBearerToken(ctx router.Context, scheme string) string {
	header := ctx.Header(router.HeaderAuthorization)
	if header == "" {
		return ""
	}

	if scheme == "" {
		return header
	}

	prefix := scheme + " "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(header[len(prefix):])
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Resolver == nil {
		panic("AUTH: gateway middleware configuration: Resolver is required.")
	}

	if cfg.SkipPaths == nil {
		cfg.SkipPaths = defaultSkipPaths
	}

	if cfg.SkipExactPaths == nil {
		cfg.SkipExactPaths = defaultSkipExactPaths
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "principal"
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.Logger == nil {
		cfg.Logger = userservice.DefaultLogger("GATEWAY")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			message := "Forbidden"
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				message = richErr.Message
			}
			return c.JSON(router.StatusForbidden, map[string]string{
				"error":   "Forbidden",
				"message": message,
			})
		}
	}

	return cfg
}
