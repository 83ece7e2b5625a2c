package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-rubric-api/internal/utils"
)

// Role groups accepted by Authorize.
const (
	AuthRoleAny = "any"
	// AuthRoleAuthor covers staff who maintain rubrics.
	AuthRoleAuthor = "author"
	// AuthRoleAssessor covers everyone who may fill an assessment tray, including peer reviewers.
	AuthRoleAssessor = "assessor"
	// AuthRoleAdmin is matched exactly; it is not a group.
	AuthRoleAdmin = "admin"
)

var roleGroups = map[string]map[string]struct{}{
	AuthRoleAuthor:   {"admin": {}, "teacher": {}},
	AuthRoleAssessor: {"admin": {}, "teacher": {}, "student": {}},
}

// AuthOptions configures Authorize.
type AuthOptions struct {
	Role           string
	AllowAnonymous bool
}

// Authorize guards a route group. A user id set by JWTProtected is required unless AllowAnonymous
// is set, and the caller's role must belong to the requested group. A Role that names no group is
// compared against the caller's role directly.
func Authorize(opts AuthOptions) fiber.Handler {
	group := strings.ToLower(strings.TrimSpace(opts.Role))
	if group == "" {
		group = AuthRoleAny
	}

	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(uint)
		if userID == 0 && !opts.AllowAnonymous {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		if group == AuthRoleAny {
			return c.Next()
		}

		currentRole := normalizeRoleValue(c.Locals("user_role"))
		allowed, known := roleGroups[group]
		if !known {
			if currentRole != group {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
			}
			return c.Next()
		}
		if _, ok := allowed[currentRole]; !ok {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}

		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", v)))
	}
}
