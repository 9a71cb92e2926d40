package services

import (
	"slices"
)

// rolePermissions maps each built-in role to the permissions it grants.
var rolePermissions = map[string][]string{
	"admin": {
		"users.manage",
		"inventory.read", "inventory.write",
		"orders.read", "orders.write",
		"reports.read",
	},
	"manager": {
		"inventory.read", "inventory.write",
		"orders.read", "orders.write",
		"reports.read",
	},
	"sales": {
		"inventory.read",
		"orders.read", "orders.write",
	},
	"auditor": {
		"inventory.read",
		"orders.read",
		"reports.read",
	},
}

// PermissionsFor returns the sorted union of the permissions granted by
// roles. Unknown roles grant nothing.
func PermissionsFor(roles []string) []string {
	out := []string{}
	for _, r := range roles {
		for _, p := range rolePermissions[r] {
			if !slices.Contains(out, p) {
				out = append(out, p)
			}
		}
	}
	slices.Sort(out)
	return out
}
