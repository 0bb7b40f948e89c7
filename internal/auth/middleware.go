package auth

import (
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. The auth collaborator is
// trusted to have verified the identity; claims are not re-checked against a
// user store here.
type Principal struct {
	SubjectType domain.SubjectType
	SubjectID   string
	Role        *domain.StaffRole
	Department  *domain.Department
}

// IsAdmin reports whether the principal carries the admin staff role.
func (p *Principal) IsAdmin() bool {
	return p.SubjectType == domain.SubjectTypeStaff && p.Role != nil && *p.Role == domain.StaffRoleAdmin
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	principal, err := m.principalFromToken(parts[1])
	if err != nil {
		return err
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// HandleWebsocket authenticates the upgrade request. Browsers cannot set
// headers on websocket handshakes, so a token query parameter is accepted
// alongside the Authorization header.
func (m *AuthMiddleware) HandleWebsocket(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		authHeader := c.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		return apperrors.NewUnauthorized("missing token")
	}

	principal, err := m.principalFromToken(token)
	if err != nil {
		return err
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

func (m *AuthMiddleware) principalFromToken(token string) (*Principal, error) {
	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	switch claims.Subject {
	case domain.SubjectTypePetitioner, domain.SubjectTypeStaff:
	default:
		return nil, apperrors.NewUnauthorized("unknown subject")
	}

	return &Principal{
		SubjectType: claims.Subject,
		SubjectID:   claims.SubjectID,
		Role:        claims.Role,
		Department:  claims.Department,
	}, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// PrincipalFromSocket retrieves the authenticated entity on an upgraded
// websocket connection.
func PrincipalFromSocket(c *websocket.Conn) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
