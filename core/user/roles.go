package user

// Roles
const (
	RoleObserver   = "observer"
	RoleCoach      = "coach"
	RoleLeadership = "leadership"
	RoleAdmin      = "admin"
)

var (
	AllRoles = []string{RoleObserver, RoleCoach, RoleLeadership, RoleAdmin}

	Roles = []Role{
		{Name: "Observer", Value: RoleObserver},
		{Name: "Coach", Value: RoleCoach},
		{Name: "Leadership", Value: RoleLeadership},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Operation names a capability gated by role. Route middleware consults the
// capability table below through User.Can; handlers never compare role strings.
type Operation string

const (
	OpWalkthroughWrite Operation = "walkthrough:write" // create/edit own walkthroughs
	OpLessonPlanWrite  Operation = "lessonplan:write"  // create/edit own lesson plans
	OpReviewAct        Operation = "review:act"        // review queue + state transitions
	OpAnalyticsRead    Operation = "analytics:read"    // aggregated read-only analytics
	OpUserManage       Operation = "user:manage"       // user CRUD
	OpTeacherManage    Operation = "teacher:manage"    // teacher CRUD
	OpLocationManage   Operation = "location:manage"   // location CRUD
	OpAssistUse        Operation = "assist:use"        // AI helpers
)

// capabilities is the role -> allowed-operation table. Admin is handled as a
// superset in RoleCan rather than enumerated here.
var capabilities = map[string][]Operation{
	RoleObserver:   {OpWalkthroughWrite, OpLessonPlanWrite, OpAssistUse},
	RoleCoach:      {OpReviewAct, OpAssistUse},
	RoleLeadership: {OpAnalyticsRead},
}

func RoleCan(role string, op Operation) bool {
	if role == RoleAdmin {
		return true
	}
	for _, allowed := range capabilities[role] {
		if allowed == op {
			return true
		}
	}
	return false
}

func KnownRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) Can(op Operation) bool { return RoleCan(u.Role, op) }

func (u *User) IsObserver() bool   { return u.Role == RoleObserver }
func (u *User) IsCoach() bool      { return u.Role == RoleCoach }
func (u *User) IsLeadership() bool { return u.Role == RoleLeadership }
func (u *User) IsAdmin() bool      { return u.Role == RoleAdmin }

// CanReview reports whether the user may be assigned as a walkthrough reviewer.
func (u *User) CanReview() bool { return u.IsCoach() || u.IsAdmin() }
