// AngelaMos | 2026
// permissions.go

package rbac

import (
	"sort"
)

// Wildcard grants every permission.
const Wildcard = "*"

const (
	LeadsView    = "leads.view"
	LeadsCreate  = "leads.create"
	LeadsUpdate  = "leads.update"
	LeadsDelete  = "leads.delete"
	LeadsConvert = "leads.convert"

	ContactsView   = "contacts.view"
	ContactsCreate = "contacts.create"
	ContactsUpdate = "contacts.update"
	ContactsDelete = "contacts.delete"

	UsersView   = "users.view"
	UsersCreate = "users.create"
	UsersUpdate = "users.update"
	UsersDelete = "users.delete"

	RolesView      = "roles.view"
	ActivitiesView = "activities.view"
	AdminSystem    = "admin.system"
)

// Set is a resolved permission set.
type Set map[string]struct{}

func NewSet(perms ...string) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		if p != "" {
			s[p] = struct{}{}
		}
	}
	return s
}

// Has reports whether requested is granted, either directly or through the
// wildcard. Other strings, including ones ending in ".*", are opaque.
func Has(set Set, requested string) bool {
	if _, ok := set[Wildcard]; ok {
		return true
	}
	_, ok := set[requested]
	return ok
}

func (s Set) Has(requested string) bool {
	return Has(s, requested)
}

func (s Set) List() []string {
	if _, ok := s[Wildcard]; ok {
		return []string{Wildcard}
	}
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
