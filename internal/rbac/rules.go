package rbac

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Policy names used by the router.
const (
	ContentView   = "content:view"
	ContentAuthor = "content:author"
	TestRun       = "test:run"
	ResultsOwn    = "results:own"
	AccountSelf   = "account:self"
	UsersManage   = "users:manage"
)

// Policies maps a policy to the roles allowed to use it. An empty set means
// any authenticated caller with a profile.
var Policies = map[string][]string{
	ContentView:   {},
	TestRun:       {},
	ResultsOwn:    {},
	AccountSelf:   {},
	ContentAuthor: {RoleTeacher, RoleAdmin},
	UsersManage:   {RoleAdmin},
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// CanAuthor reports whether p may see and edit answer keys.
func CanAuthor(p Principal) bool {
	return Check(p, Policies[ContentAuthor]) == Allow
}
