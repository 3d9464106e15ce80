package services

import "strings"

// ParseRoles splits a comma separated role list, trimming each entry and
// dropping empty ones. The result is never nil.
func ParseRoles(s string) []string {
	roles := make([]string, 0)
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// cleanRoles applies the same trimming to an already split list.
func cleanRoles(in []string) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
