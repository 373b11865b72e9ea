// Package auth provides permission-based access control.
package auth

// Permission defines an action that can be controlled.
type Permission string

// Standard permissions. Control permissions mutate broker state and
// require the caller to hold whatever lock the operation needs (a trunk's
// or service's own mutex, ultimately); Management permissions only read.
const (
	PermTrunkCommission   Permission = "trunk.commission"
	PermTrunkDecommission Permission = "trunk.decommission"
	PermTrunkProvide      Permission = "trunk.provide"
	PermTrunkWithdraw     Permission = "trunk.withdraw"
	PermTrunkView         Permission = "trunk.view"

	PermTerminalAdd    Permission = "terminal.add"
	PermTerminalRemove Permission = "terminal.remove"
	PermTerminalView   Permission = "terminal.view"

	PermServiceDefine     Permission = "service.define"
	PermServiceActivate   Permission = "service.activate"
	PermServiceDeactivate Permission = "service.deactivate"
	PermServiceRelease    Permission = "service.release"
	PermServiceView       Permission = "service.view"

	PermTopologyPlan Permission = "topology.plan"

	PermAuditView Permission = "audit.view"

	PermAll Permission = "all" // superuser - allows everything
)

// PermissionCategory groups related permissions.
type PermissionCategory struct {
	Name        string
	Description string
	Permissions []Permission
}

// StandardCategories defines standard permission categories.
var StandardCategories = []PermissionCategory{
	{
		Name:        "trunk",
		Description: "Trunk commissioning and capacity management",
		Permissions: []Permission{PermTrunkCommission, PermTrunkDecommission, PermTrunkProvide, PermTrunkWithdraw, PermTrunkView},
	},
	{
		Name:        "terminal",
		Description: "Terminal registration",
		Permissions: []Permission{PermTerminalAdd, PermTerminalRemove, PermTerminalView},
	},
	{
		Name:        "service",
		Description: "Service lifecycle",
		Permissions: []Permission{PermServiceDefine, PermServiceActivate, PermServiceDeactivate, PermServiceRelease, PermServiceView},
	},
	{
		Name:        "topology",
		Description: "Tree planning",
		Permissions: []Permission{PermTopologyPlan},
	},
	{
		Name:        "audit",
		Description: "Audit log access",
		Permissions: []Permission{PermAuditView},
	},
}

// Context provides context for permission checks.
type Context struct {
	Trunk    string
	Service  string
	Terminal string
	Resource string
}

// NewContext creates a new permission context.
func NewContext() *Context {
	return &Context{}
}

// WithTrunk sets the trunk context.
func (c *Context) WithTrunk(trunk string) *Context {
	c.Trunk = trunk
	return c
}

// WithService sets the service context.
func (c *Context) WithService(service string) *Context {
	c.Service = service
	return c
}

// WithTerminal sets the terminal context.
func (c *Context) WithTerminal(terminal string) *Context {
	c.Terminal = terminal
	return c
}

// WithResource sets a generic resource context.
func (c *Context) WithResource(resource string) *Context {
	c.Resource = resource
	return c
}

// IsReadOnly returns true if the permission is read-only.
func (p Permission) IsReadOnly() bool {
	switch p {
	case PermTrunkView, PermTerminalView, PermServiceView, PermAuditView:
		return true
	}
	return false
}

// IsWriteOperation returns true if the permission involves modification.
func (p Permission) IsWriteOperation() bool {
	return !p.IsReadOnly() && p != PermAll
}

// RequiresLock returns true if the permission requires holding the
// mutated resource's lock.
func (p Permission) RequiresLock() bool {
	return p.IsWriteOperation()
}
