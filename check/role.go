package check

import (
	"strings"

	"github.com/optimode/verimail/internal/datasets"
	"github.com/optimode/verimail/types"
)

// RoleChecker detects role-based local parts (admin@, support@, ...).
// A local part matches a role prefix exactly, or as "<prefix>." /
// "<prefix>-" / "<prefix>_" followed by digits (admin.01, support-2).
type RoleChecker struct{}

func NewRoleChecker() *RoleChecker {
	return &RoleChecker{}
}

func (c *RoleChecker) Check(local string) types.RoleCheck {
	l := strings.ToLower(local)

	if _, ok := datasets.RolePrefixes[l]; ok {
		return types.RoleCheck{IsRoleBased: true, Role: l}
	}

	for _, sep := range []string{".", "-", "_"} {
		idx := strings.Index(l, sep)
		if idx <= 0 {
			continue
		}
		prefix, rest := l[:idx], l[idx+1:]
		if _, ok := datasets.RolePrefixes[prefix]; !ok {
			continue
		}
		if rest != "" && allDigits(rest) {
			return types.RoleCheck{IsRoleBased: true, Role: prefix}
		}
	}

	return types.RoleCheck{IsRoleBased: false}
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
