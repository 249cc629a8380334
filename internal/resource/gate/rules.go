package gate

import (
	"strings"

	"github.com/carbonatlas/geoauth/pkg/ssotoken"
)

// Rule names the permissions and roles a route prefix requires. Rules
// are ordered; the first matching prefix decides. A path with no
// matching rule is public.
type Rule struct {
	// Prefix is matched against the request path.
	Prefix string

	// Permissions the claim set must carry, all of them.
	Permissions []ssotoken.Permission

	// Roles of which the claim set must carry one. Empty means any role.
	Roles []ssotoken.Role
}

// match returns the first rule whose prefix matches the path, or nil.
func match(rules []Rule, path string) *Rule {
	for i := range rules {
		if strings.HasPrefix(path, rules[i].Prefix) {
			return &rules[i]
		}
	}
	return nil
}

// allows reports whether the verified claims satisfy the rule.
func (r *Rule) allows(c *ssotoken.Claims) bool {
	for _, p := range r.Permissions {
		if !c.HasPermission(p) {
			return false
		}
	}

	if len(r.Roles) == 0 {
		return true
	}
	for _, role := range r.Roles {
		if c.Role == role {
			return true
		}
	}
	return false
}

// DefaultRules mirror the resource app's protected surface: form editing
// requires edit permission, the admin area requires the admin role.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "/api/admin", Roles: []ssotoken.Role{ssotoken.RoleAdmin}},
		{Prefix: "/admin", Roles: []ssotoken.Role{ssotoken.RoleAdmin}},
		{Prefix: "/api/plant-form", Permissions: []ssotoken.Permission{ssotoken.PermissionEdit}},
		{Prefix: "/plant-form", Permissions: []ssotoken.Permission{ssotoken.PermissionEdit}},
		{Prefix: "/port-form", Permissions: []ssotoken.Permission{ssotoken.PermissionEdit}},
		{Prefix: "/dashboard", Permissions: []ssotoken.Permission{ssotoken.PermissionRead}},
	}
}
