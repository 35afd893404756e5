// internal/app/system/rbac/permissions.go
package rbac

// Page names gate navigation.
const (
	PageHome          = "home"
	PageDashboard     = "dashboard"
	PageOrganizations = "organizations"
	PageMembers       = "members"
	PageInvitations   = "invitations"
	PageDocuments     = "documents"
	PageBilling       = "billing"
	PageAnnouncements = "announcements"
	PageSettings      = "settings"
	PageAdmin         = "admin"
)

// Action names gate operations.
const (
	ActionCreateOrganization    = "create_organization"
	ActionEditOrganization      = "edit_organization"
	ActionDeleteOrganization    = "delete_organization"
	ActionInviteMembers         = "invite_members"
	ActionRemoveMembers         = "remove_members"
	ActionChangeRoles           = "change_roles"
	ActionShareDocuments        = "share_documents"
	ActionManageBilling         = "manage_billing"
	ActionPostAnnouncements     = "post_announcements"
	ActionManageRolePermissions = "manage_role_permissions"
)

// AllPages and AllActions list every known name.
var (
	AllPages = []string{
		PageHome, PageDashboard, PageOrganizations, PageMembers, PageInvitations,
		PageDocuments, PageBilling, PageAnnouncements, PageSettings, PageAdmin,
	}
	AllActions = []string{
		ActionCreateOrganization, ActionEditOrganization, ActionDeleteOrganization,
		ActionInviteMembers, ActionRemoveMembers, ActionChangeRoles,
		ActionShareDocuments, ActionManageBilling, ActionPostAnnouncements,
		ActionManageRolePermissions,
	}
)

// PermissionSet maps page and action names to allowed flags.
// A missing key is a deny.
type PermissionSet struct {
	Pages   map[string]bool `json:"pages"`
	Actions map[string]bool `json:"actions"`
}

// CanAccessPage reports whether the page is explicitly allowed.
func (p PermissionSet) CanAccessPage(name string) bool {
	return p.Pages[name]
}

// CanPerformAction reports whether the action is explicitly allowed.
func (p PermissionSet) CanPerformAction(name string) bool {
	return p.Actions[name]
}

// Clone returns a deep copy so callers can never mutate a table entry.
func (p PermissionSet) Clone() PermissionSet {
	out := PermissionSet{
		Pages:   make(map[string]bool, len(p.Pages)),
		Actions: make(map[string]bool, len(p.Actions)),
	}
	for k, v := range p.Pages {
		out.Pages[k] = v
	}
	for k, v := range p.Actions {
		out.Actions[k] = v
	}
	return out
}

// Equal reports whether both sets allow exactly the same names.
func (p PermissionSet) Equal(o PermissionSet) bool {
	return sameAllowed(p.Pages, o.Pages) && sameAllowed(p.Actions, o.Actions)
}

func sameAllowed(a, b map[string]bool) bool {
	for k, v := range a {
		if v != b[k] {
			return false
		}
	}
	for k, v := range b {
		if v != a[k] {
			return false
		}
	}
	return true
}

func allow(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// DefaultTable returns the built-in role table.
func DefaultTable() map[Role]PermissionSet {
	return map[Role]PermissionSet{
		RoleUser: {
			Pages:   allow(PageHome, PageDashboard, PageOrganizations, PageDocuments, PageAnnouncements),
			Actions: allow(ActionCreateOrganization),
		},
		RoleSubAccountOwner: {
			Pages: allow(PageHome, PageDashboard, PageOrganizations, PageMembers, PageInvitations,
				PageDocuments, PageAnnouncements),
			Actions: allow(ActionCreateOrganization, ActionInviteMembers, ActionShareDocuments,
				ActionPostAnnouncements),
		},
		RoleAccountOwner: {
			Pages: allow(PageHome, PageDashboard, PageOrganizations, PageMembers, PageInvitations,
				PageDocuments, PageBilling, PageAnnouncements, PageSettings),
			Actions: allow(ActionCreateOrganization, ActionEditOrganization, ActionDeleteOrganization,
				ActionInviteMembers, ActionRemoveMembers, ActionChangeRoles, ActionShareDocuments,
				ActionManageBilling, ActionPostAnnouncements),
		},
		RoleAdmin: {
			Pages:   allow(AllPages...),
			Actions: allow(AllActions...),
		},
	}
}
