package auth

import (
	"errors"
	"testing"

	"github.com/dpbroker/dpb/pkg/config"
	"github.com/dpbroker/dpb/pkg/util"
)

func TestContext_Chaining(t *testing.T) {
	ctx := NewContext().
		WithTrunk("trunk-ny-nj").
		WithService("customer-l3").
		WithTerminal("term0").
		WithResource("label100")

	if ctx.Trunk != "trunk-ny-nj" {
		t.Errorf("Trunk = %q", ctx.Trunk)
	}
	if ctx.Service != "customer-l3" {
		t.Errorf("Service = %q", ctx.Service)
	}
	if ctx.Terminal != "term0" {
		t.Errorf("Terminal = %q", ctx.Terminal)
	}
	if ctx.Resource != "label100" {
		t.Errorf("Resource = %q", ctx.Resource)
	}
}

func createTestNetworkConfig() *config.NetworkConfig {
	return &config.NetworkConfig{
		SuperUsers: []string{"admin", "root"},
		UserGroups: map[string][]string{
			"neteng": {"alice", "bob"},
			"netops": {"charlie", "diana"},
			"viewer": {"eve"},
		},
		Permissions: map[string][]string{
			"all":             {"neteng"},
			"service.define":  {"neteng", "netops"},
			"service.release": {"neteng", "netops", "viewer"},
			"trunk.commission": {"neteng"},
			"topology.plan":   {"neteng", "netops", "viewer"},
		},
		Services: map[string]*config.ServiceConfig{
			"customer-l3": {
				Description: "Customer L3",
				Permissions: map[string][]string{
					"service.define": {"netops"}, // more restrictive
				},
			},
			"transit": {
				Description: "Transit service",
				Permissions: map[string][]string{
					"all": {"neteng"}, // only neteng
				},
			},
		},
	}
}

func TestChecker_SuperUser(t *testing.T) {
	network := createTestNetworkConfig()
	checker := NewChecker(network)
	checker.SetUser("admin")

	if err := checker.Check(PermServiceDefine, nil); err != nil {
		t.Errorf("Superuser should be allowed: %v", err)
	}
	if err := checker.Check(PermTopologyPlan, nil); err != nil {
		t.Errorf("Superuser should be allowed: %v", err)
	}

	if !checker.IsSuperUser() {
		t.Error("admin should be superuser")
	}
}

func TestChecker_GlobalPermissions(t *testing.T) {
	network := createTestNetworkConfig()
	checker := NewChecker(network)

	t.Run("user in allowed group", func(t *testing.T) {
		checker.SetUser("alice") // in neteng
		if err := checker.Check(PermServiceDefine, nil); err != nil {
			t.Errorf("alice (neteng) should have service.define: %v", err)
		}
	})

	t.Run("user with 'all' permission", func(t *testing.T) {
		checker.SetUser("bob") // in neteng, which has 'all'
		if err := checker.Check(PermTrunkCommission, nil); err != nil {
			t.Errorf("bob (neteng with 'all') should have trunk.commission: %v", err)
		}
	})

	t.Run("user without permission", func(t *testing.T) {
		checker.SetUser("eve") // in viewer only
		if err := checker.Check(PermServiceDefine, nil); err == nil {
			t.Error("eve (viewer) should not have service.define")
		}
	})
}

func TestChecker_ServicePermissions(t *testing.T) {
	network := createTestNetworkConfig()
	checker := NewChecker(network)

	t.Run("service-specific override", func(t *testing.T) {
		checker.SetUser("charlie") // in netops
		ctx := NewContext().WithService("customer-l3")

		if err := checker.Check(PermServiceDefine, ctx); err != nil {
			t.Errorf("charlie should have permission via service override: %v", err)
		}
	})

	t.Run("service with 'all' permission", func(t *testing.T) {
		checker.SetUser("alice") // in neteng
		ctx := NewContext().WithService("transit")

		if err := checker.Check(PermServiceDefine, ctx); err != nil {
			t.Errorf("alice should have permission via service 'all': %v", err)
		}
	})

	t.Run("no service permission falls back to global", func(t *testing.T) {
		checker.SetUser("diana") // in netops
		ctx := NewContext().WithService("transit")

		// diana is netops; transit has no netops permission, but global does
		if err := checker.Check(PermServiceDefine, ctx); err != nil {
			t.Errorf("diana should have permission via global fallback: %v", err)
		}
	})
}

func TestChecker_PermissionError(t *testing.T) {
	network := createTestNetworkConfig()
	checker := NewChecker(network)
	checker.SetUser("eve")

	ctx := NewContext().WithService("customer-l3").WithTrunk("trunk-ny-nj")
	err := checker.Check(PermServiceDefine, ctx)

	if err == nil {
		t.Fatal("Expected error")
	}

	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("Expected PermissionError, got %T", err)
	}

	if permErr.User != "eve" {
		t.Errorf("User = %q", permErr.User)
	}
	if permErr.Permission != PermServiceDefine {
		t.Errorf("Permission = %q", permErr.Permission)
	}

	msg := err.Error()
	if msg == "" {
		t.Error("Error message should not be empty")
	}

	if !errors.Is(err, util.ErrUnprivileged) {
		t.Error("Should unwrap to ErrUnprivileged")
	}
}

func TestChecker_ListPermissions(t *testing.T) {
	network := createTestNetworkConfig()
	checker := NewChecker(network)

	t.Run("superuser", func(t *testing.T) {
		checker.SetUser("admin")
		perms := checker.ListPermissions()
		if len(perms) != 1 || perms[0] != PermAll {
			t.Errorf("Superuser should have PermAll only, got %v", perms)
		}
	})

	t.Run("regular user", func(t *testing.T) {
		checker.SetUser("eve") // in viewer
		perms := checker.ListPermissions()

		permMap := make(map[Permission]bool)
		for _, p := range perms {
			permMap[p] = true
		}

		if !permMap[PermServiceRelease] {
			t.Error("eve should have service.release")
		}
		if !permMap[PermTopologyPlan] {
			t.Error("eve should have topology.plan")
		}
		if permMap[PermServiceDefine] {
			t.Error("eve should not have service.define")
		}
	})
}

func TestChecker_GetUserGroups(t *testing.T) {
	network := createTestNetworkConfig()
	checker := NewChecker(network)

	groups := checker.GetUserGroups("alice")
	if len(groups) != 1 || groups[0] != "neteng" {
		t.Errorf("alice groups = %v, want [neteng]", groups)
	}

	groups = checker.GetUserGroups("unknown")
	if len(groups) != 0 {
		t.Errorf("unknown user should have no groups, got %v", groups)
	}
}

func TestChecker_DirectUserPermission(t *testing.T) {
	network := &config.NetworkConfig{
		Permissions: map[string][]string{
			"service.define": {"direct-user"}, // direct user, not a group
		},
	}
	checker := NewChecker(network)
	checker.SetUser("direct-user")

	if err := checker.Check(PermServiceDefine, nil); err != nil {
		t.Errorf("Direct user permission should work: %v", err)
	}
}

func TestChecker_CurrentUser(t *testing.T) {
	network := createTestNetworkConfig()
	checker := NewChecker(network)

	if checker.CurrentUser() == "" {
		t.Error("CurrentUser should not be empty after NewChecker")
	}

	checker.SetUser("test-user")
	if checker.CurrentUser() != "test-user" {
		t.Errorf("CurrentUser() = %q, want %q", checker.CurrentUser(), "test-user")
	}
}

func TestChecker_ServiceWithNilPermissions(t *testing.T) {
	network := &config.NetworkConfig{
		SuperUsers: []string{},
		UserGroups: map[string][]string{
			"neteng": {"alice"},
		},
		Permissions: map[string][]string{
			"service.define": {"neteng"},
		},
		Services: map[string]*config.ServiceConfig{
			"no-perms-service": {
				Description: "Service with nil permissions",
				Permissions: nil,
			},
		},
	}
	checker := NewChecker(network)
	checker.SetUser("alice")

	ctx := NewContext().WithService("no-perms-service")
	if err := checker.Check(PermServiceDefine, ctx); err != nil {
		t.Errorf("Should fall back to global permission: %v", err)
	}
}

func TestChecker_GlobalPermissionNotFound(t *testing.T) {
	network := &config.NetworkConfig{
		SuperUsers:  []string{},
		UserGroups:  map[string][]string{},
		Permissions: map[string][]string{},
	}
	checker := NewChecker(network)
	checker.SetUser("anyone")

	err := checker.Check(PermServiceDefine, nil)
	if err == nil {
		t.Error("Should be denied when no permissions defined")
	}
}

func TestChecker_GlobalAllPermissionNotGranted(t *testing.T) {
	network := &config.NetworkConfig{
		SuperUsers: []string{},
		UserGroups: map[string][]string{
			"admins": {"admin-user"},
			"users":  {"normal-user"},
		},
		Permissions: map[string][]string{
			"all": {"admins"},
		},
	}
	checker := NewChecker(network)
	checker.SetUser("normal-user")

	err := checker.Check(PermServiceDefine, nil)
	if err == nil {
		t.Error("normal-user should not have permission via 'all'")
	}
}

func TestChecker_ServiceAllPermissionNotGranted(t *testing.T) {
	network := &config.NetworkConfig{
		SuperUsers: []string{},
		UserGroups: map[string][]string{
			"admins": {"admin-user"},
			"users":  {"normal-user"},
		},
		Permissions: map[string][]string{},
		Services: map[string]*config.ServiceConfig{
			"restricted": {
				Description: "Restricted service",
				Permissions: map[string][]string{
					"all": {"admins"},
				},
			},
		},
	}
	checker := NewChecker(network)
	checker.SetUser("normal-user")

	ctx := NewContext().WithService("restricted")
	err := checker.Check(PermServiceDefine, ctx)
	if err == nil {
		t.Error("normal-user should not have permission via service 'all'")
	}
}

func TestPermissionError_ContextVariations(t *testing.T) {
	t.Run("nil context", func(t *testing.T) {
		err := &PermissionError{
			User:       "alice",
			Permission: PermServiceDefine,
			Context:    nil,
		}
		msg := err.Error()
		if msg == "" {
			t.Error("Error message should not be empty")
		}
		if contains(msg, "for service") || contains(msg, "on trunk") {
			t.Error("Should not mention 'for service'/'on trunk' when context is nil")
		}
	})

	t.Run("context with service only", func(t *testing.T) {
		err := &PermissionError{
			User:       "alice",
			Permission: PermServiceDefine,
			Context:    &Context{Service: "test-svc"},
		}
		msg := err.Error()
		if !contains(msg, "test-svc") {
			t.Error("Should mention service name")
		}
	})

	t.Run("context with trunk only", func(t *testing.T) {
		err := &PermissionError{
			User:       "alice",
			Permission: PermServiceDefine,
			Context:    &Context{Trunk: "trunk1"},
		}
		msg := err.Error()
		if !contains(msg, "trunk1") {
			t.Error("Should mention trunk name")
		}
	})

	t.Run("context with both service and trunk", func(t *testing.T) {
		err := &PermissionError{
			User:       "alice",
			Permission: PermServiceDefine,
			Context:    &Context{Service: "svc1", Trunk: "trunk1"},
		}
		msg := err.Error()
		if !contains(msg, "svc1") || !contains(msg, "trunk1") {
			t.Error("Should mention both service and trunk")
		}
	})
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(s) > 0 && containsHelper(s, substr))
}

func containsHelper(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
