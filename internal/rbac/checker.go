package rbac

import "context"

// Principal is the caller as seen by the gate.
type Principal struct {
	Authenticated bool
	UserID        int64
	Role          string // empty when the account has no profile
}

type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyNoProfile
	DenyForbidden
)

const (
	LoginPath = "/auth/login"
	IndexPath = "/"
)

// Signal is the machine-readable reason of a denial.
func (d Decision) Signal() string {
	switch d {
	case Allow:
		return ""
	case DenyUnauthenticated:
		return "unauthenticated"
	case DenyNoProfile:
		return "profile not found"
	default:
		return "forbidden"
	}
}

// Message is shown to the user next to the redirect.
func (d Decision) Message() string {
	switch d {
	case Allow:
		return ""
	case DenyUnauthenticated:
		return "Please log in to continue."
	case DenyNoProfile:
		return "User profile not found. Please log in again."
	default:
		return "You do not have permission to access this page."
	}
}

// Redirect is where a denied caller is sent.
func (d Decision) Redirect() string {
	switch d {
	case DenyUnauthenticated, DenyNoProfile:
		return LoginPath
	case DenyForbidden:
		return IndexPath
	default:
		return ""
	}
}

// Check decides whether p may run an operation that requires one of roles.
// An empty roles set admits any authenticated caller with a profile.
func Check(p Principal, roles []string) Decision {
	if !p.Authenticated {
		return DenyUnauthenticated
	}
	if p.Role == "" {
		return DenyNoProfile
	}
	if len(roles) == 0 {
		return Allow
	}
	for _, r := range roles {
		if r == p.Role {
			return Allow
		}
	}
	return DenyForbidden
}

type Checker struct {
	Policies map[string][]string
}

func NewChecker(p map[string][]string) *Checker {
	if p == nil {
		p = Policies
	}
	return &Checker{Policies: p}
}

// Decide resolves policy to its role set and checks p against it.
// Unknown policies are denied.
func (c *Checker) Decide(p Principal, policy string) Decision {
	roles, ok := c.Policies[policy]
	if !ok {
		if d := Check(p, nil); d != Allow {
			return d
		}
		return DenyForbidden
	}
	return Check(p, roles)
}

// ---- principal in context ----

type ctxKey struct{}

var ctxKeyPrincipal = ctxKey{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the caller, or an unauthenticated principal
// when nothing was attached.
func PrincipalFromContext(ctx context.Context) Principal {
	if v := ctx.Value(ctxKeyPrincipal); v != nil {
		if p, ok := v.(Principal); ok {
			return p
		}
	}
	return Principal{}
}
