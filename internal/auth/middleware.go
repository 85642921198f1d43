package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/civicworks/issue-service/internal/domain"
	"github.com/civicworks/issue-service/internal/repository"
	"github.com/civicworks/issue-service/pkg/util"
)

const identityKey = "auth_identity"

// Middleware validates bearer tokens and resolves the stored user into an
// explicit Identity value handed to every engine operation.
type Middleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return util.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return util.NewUnauthenticated("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return util.NewUnauthenticated("invalid token")
	}

	user, err := m.users.GetByEmail(c.Context(), claims.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewUnauthenticated("user not found")
		}
		return util.MapError(err)
	}
	if user.IsBlocked {
		return util.NewForbidden("account blocked")
	}

	c.Locals(identityKey, domain.Identity{
		Email:    user.Email,
		Role:     user.Role,
		District: user.District,
	})
	return c.Next()
}

// IdentityFromContext retrieves the verified caller.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return domain.Identity{}, false
	}
	identity, ok := val.(domain.Identity)
	return identity, ok
}
