package authz

// Decision is the outcome of a navigation check: allow, or redirect.
type Decision struct {
	Redirect string
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.Redirect == "" }

// Allow lets the request through.
var Allow = Decision{}

// RedirectTo sends the request elsewhere.
func RedirectTo(target string) Decision { return Decision{Redirect: target} }

// Guard decides navigation requests from session claims alone.
type Guard struct {
	PublicEntry string   // login / landing screen
	Forbidden   string   // shown when claims do not cover a page
	PublicPages []string // reachable without a session, matched like allowed pages
}

// Decide evaluates path for the given claims; nil claims means no session.
func (g Guard) Decide(path string, claims *Claims) Decision {
	p := Normalize(path)

	if p == Normalize(g.PublicEntry) {
		if claims == nil {
			return Allow
		}
		landing := claims.DefaultLandingPage()
		if Normalize(landing) == p {
			return Allow
		}
		return RedirectTo(landing)
	}

	if p == Normalize(g.Forbidden) || IsAllowed(p, g.PublicPages) {
		return Allow
	}

	if claims == nil {
		return RedirectTo(g.PublicEntry)
	}
	if !claims.CanNavigate(p) {
		return RedirectTo(g.Forbidden)
	}
	return Allow
}
