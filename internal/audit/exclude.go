// exclude.go implements the exclusion filter: the pure predicate that decides
// whether a request is audit-worthy at all. It runs before classification so
// excluded traffic pays no pipeline cost.
package audit

import (
	"net/http"
	"strings"
)

// excludedPrefixes lists path prefixes that are never audited: operational
// endpoints, static assets, high-frequency polling, the audit-viewing API
// itself (auditing reads of the audit log would feed back on itself), the
// role-assignment listing, idle heartbeats, and token refresh. GET requests
// are excluded unconditionally which already covers most of these; the
// explicit entries are kept so the exclusion set is readable in one place and
// survives a method change on any of them.
var excludedPrefixes = []string{
	"/health",
	"/ready",
	"/version",
	"/metrics",
	"/favicon",
	"/static/",
	"/assets/",
	"/api/admin/audit-logs",
	"/api/roles/assignments",
	"/api/idle",
	"/api/auth/refresh",
}

// excludedSubstrings lists path fragments excluded regardless of position or
// method. The picker heartbeat fires every few seconds per logged-in picker
// and would dominate the audit table.
var excludedSubstrings = []string{
	"/picker-status",
}

// ShouldExclude reports whether the request must bypass the audit pipeline.
// Reads are never audited, so every GET is excluded.
func ShouldExclude(method, path string) bool {
	for _, s := range excludedSubstrings {
		if strings.Contains(path, s) {
			return true
		}
	}
	if method == http.MethodGet {
		return true
	}
	for _, p := range excludedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
