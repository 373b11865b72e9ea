package auth

import (
	"fmt"
	"os/user"
	"slices"
	"sort"

	"github.com/dpbroker/dpb/pkg/config"
	"github.com/dpbroker/dpb/pkg/util"
)

// Checker validates user permissions against one network's authorization
// policy.
type Checker struct {
	network     *config.NetworkConfig
	currentUser string
}

// NewChecker creates a permission checker.
func NewChecker(network *config.NetworkConfig) *Checker {
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}

	return &Checker{
		network:     network,
		currentUser: username,
	}
}

// SetUser overrides the current user (for testing or sudo).
func (c *Checker) SetUser(username string) {
	c.currentUser = username
}

// CurrentUser returns the current username.
func (c *Checker) CurrentUser() string {
	return c.currentUser
}

// Check verifies if the current user has a permission.
func (c *Checker) Check(permission Permission, ctx *Context) error {
	return c.CheckUser(c.currentUser, permission, ctx)
}

// CheckUser verifies if a specific user has a permission.
func (c *Checker) CheckUser(username string, permission Permission, ctx *Context) error {
	if c.isSuperUser(username) {
		return nil
	}

	if ctx != nil && ctx.Service != "" {
		if svc, ok := c.network.Services[ctx.Service]; ok {
			if allowed := c.checkServicePermission(username, permission, svc); allowed {
				return nil
			}
		}
	}

	if c.checkGlobalPermission(username, permission) {
		return nil
	}

	return &PermissionError{
		User:       username,
		Permission: permission,
		Context:    ctx,
	}
}

// IsSuperUser returns true if the current user is a superuser.
func (c *Checker) IsSuperUser() bool {
	return c.isSuperUser(c.currentUser)
}

func (c *Checker) isSuperUser(username string) bool {
	return slices.Contains(c.network.SuperUsers, username)
}

func (c *Checker) checkServicePermission(username string, permission Permission, svc *config.ServiceConfig) bool {
	if svc.Permissions == nil {
		return false
	}
	return c.checkPermissionMap(username, permission, svc.Permissions)
}

func (c *Checker) checkGlobalPermission(username string, permission Permission) bool {
	return c.checkPermissionMap(username, permission, c.network.Permissions)
}

// checkPermissionMap checks whether username has the given permission in
// permMap. It first checks the "all" wildcard key, then the specific
// permission key.
func (c *Checker) checkPermissionMap(username string, permission Permission, permMap map[string][]string) bool {
	if groups, ok := permMap["all"]; ok {
		if c.userInGroups(username, groups) {
			return true
		}
	}

	groups, ok := permMap[string(permission)]
	if !ok {
		return false
	}

	return c.userInGroups(username, groups)
}

func (c *Checker) userInGroups(username string, allowedGroups []string) bool {
	for _, group := range allowedGroups {
		if group == username {
			return true
		}
		if members, ok := c.network.UserGroups[group]; ok {
			if slices.Contains(members, username) {
				return true
			}
		}
	}
	return false
}

// ListPermissions returns every permission the current user holds: PermAll
// alone for a superuser, otherwise the union of every global and
// per-service permission granted through their group memberships.
// Grants made under the "all" action key are not listed.
func (c *Checker) ListPermissions() []Permission {
	username := c.currentUser
	if c.isSuperUser(username) {
		return []Permission{PermAll}
	}

	granted := make(map[Permission]bool)
	c.collectGrantedPermissions(username, c.network.Permissions, granted)
	for _, svc := range c.network.Services {
		c.collectGrantedPermissions(username, svc.Permissions, granted)
	}

	out := make([]Permission, 0, len(granted))
	for p := range granted {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *Checker) collectGrantedPermissions(username string, permMap map[string][]string, granted map[Permission]bool) {
	for action, groups := range permMap {
		if action == "all" {
			continue
		}
		if c.userInGroups(username, groups) {
			granted[Permission(action)] = true
		}
	}
}

// GetUserGroups returns every group username belongs to.
func (c *Checker) GetUserGroups(username string) []string {
	var groups []string
	for group, members := range c.network.UserGroups {
		if slices.Contains(members, username) {
			groups = append(groups, group)
		}
	}
	sort.Strings(groups)
	return groups
}

// PermissionError represents a permission denial.
type PermissionError struct {
	User       string
	Permission Permission
	Context    *Context
}

func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("permission denied: user '%s' does not have '%s' permission", e.User, e.Permission)
	if e.Context != nil {
		if e.Context.Service != "" {
			msg += fmt.Sprintf(" for service '%s'", e.Context.Service)
		}
		if e.Context.Trunk != "" {
			msg += fmt.Sprintf(" on trunk '%s'", e.Context.Trunk)
		}
	}
	return msg
}

func (e *PermissionError) Unwrap() error {
	return util.ErrUnprivileged
}
