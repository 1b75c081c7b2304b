// Package gate decides whether a requested view may render, must wait for
// the session to finish loading, or must send the user to the login view.
package gate

import (
	"strings"

	"taskboard/internal/api"
)

// LoginPath is where anonymous visitors of protected views are sent.
const LoginPath = "/login"

// Decision is the outcome of a gate check.
type Decision int

const (
	// Loading means the session has not bootstrapped yet. Neither the
	// view nor a redirect should be shown.
	Loading Decision = iota
	Render
	Redirect
	NotFound
)

func (d Decision) String() string {
	switch d {
	case Loading:
		return "loading"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Access classifies a route.
type Access int

const (
	Public Access = iota
	Protected
	Alias // always redirects to Route.Target
)

// Route is one entry of the view table. Pattern segments starting with ':'
// capture a path parameter.
type Route struct {
	Pattern string
	View    string
	Access  Access
	Target  string
}

// Routes is the client's view table.
var Routes = []Route{
	{Pattern: "/", Access: Alias, Target: "/dashboard"},
	{Pattern: "/login", View: "login", Access: Public},
	{Pattern: "/register", View: "register", Access: Public},
	{Pattern: "/dashboard", View: "dashboard", Access: Protected},
	{Pattern: "/projects", View: "projects", Access: Protected},
	{Pattern: "/projects/:projectId/tasks", View: "tasks", Access: Protected},
	{Pattern: "/profile", View: "profile", Access: Protected},
}

// State is what the gate reads from the session store.
type State interface {
	Ready() bool
	Current() *api.Identity
}

// Result carries the decision plus the matched route and its parameters.
type Result struct {
	Decision Decision
	Target   string // set for Redirect
	Route    Route
	Params   map[string]string
}

// Decide is a pure function of session state and path.
func Decide(s State, path string) Result {
	route, params, ok := Match(path)
	if !ok {
		return Result{Decision: NotFound}
	}

	res := Result{Route: route, Params: params}
	switch route.Access {
	case Alias:
		res.Decision = Redirect
		res.Target = route.Target
	case Public:
		res.Decision = Render
	case Protected:
		switch {
		case !s.Ready():
			res.Decision = Loading
		case s.Current() == nil:
			res.Decision = Redirect
			res.Target = LoginPath
		default:
			res.Decision = Render
		}
	}
	return res
}

// Match finds the route for path. A trailing slash is ignored.
func Match(path string) (Route, map[string]string, bool) {
	segs := split(path)
	for _, r := range Routes {
		if params, ok := matchSegments(split(r.Pattern), segs); ok {
			return r, params, true
		}
	}
	return Route{}, nil, false
}

func matchSegments(pattern, path []string) (map[string]string, bool) {
	if len(pattern) != len(path) {
		return nil, false
	}
	var params map[string]string
	for i, p := range pattern {
		if name, ok := strings.CutPrefix(p, ":"); ok {
			if path[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = path[i]
			continue
		}
		if p != path[i] {
			return nil, false
		}
	}
	return params, true
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
