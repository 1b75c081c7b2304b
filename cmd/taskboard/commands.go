package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"text/tabwriter"
	"time"

	"taskboard/internal/api"
	"taskboard/internal/controller"
	"taskboard/internal/gate"
)

var (
	errUsage       = errors.New("usage")
	errNotLoggedIn = errors.New("not logged in: run 'taskboard login' first")
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"login", "sign in with -email and -password", cmdLogin},
		{"register", "create an account (-name -email -password [-role])", cmdRegister},
		{"logout", "forget the stored session", cmdLogout},
		{"whoami", "show the signed-in user", cmdWhoami},
		{"dashboard", "task stats, recent projects and tasks", cmdDashboard},
		{"projects", "list projects", cmdProjects},
		{"project-create", "create a project (-title [-description])", cmdProjectCreate},
		{"project-update", "update a project (-id -title [-description])", cmdProjectUpdate},
		{"project-delete", "delete a project and its tasks (-id)", cmdProjectDelete},
		{"tasks", "list a project's tasks (-project)", cmdTasks},
		{"task-create", "create a task (-project -title [-status -priority -due -assign])", cmdTaskCreate},
		{"task-status", "change a task's status (-id -status [-project])", cmdTaskStatus},
		{"task-delete", "delete a task (-project -id)", cmdTaskDelete},
		{"profile", "show the profile", cmdProfile},
		{"profile-update", "update the profile (-name -email [-password])", cmdProfileUpdate},
		{"serve", "run the local view server", cmdServe},
		{"migrate", "manage the postgres session schema (up|down|version)", cmdMigrate},
	}
}

// run dispatches args[0] to its command. Every command except serve waits
// for the session to be restored first.
func run(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		usage(a.out)
		return errUsage
	}
	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		if c.name != "serve" && c.name != "migrate" {
			a.bootstrap(ctx)
		}
		return c.run(ctx, a, args[1:])
	}
	usage(a.out)
	return fmt.Errorf("unknown command %q", args[0])
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: taskboard <command> [flags]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(tw, "  %s\t%s\n", c.name, c.summary)
	}
	tw.Flush()
}

func newFlags(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// requireView runs the gate for path the way the view server would.
func requireView(a *app, path string) error {
	switch res := gate.Decide(a.sess, path); res.Decision {
	case gate.Render:
		return nil
	case gate.Redirect:
		if res.Target == gate.LoginPath {
			return errNotLoggedIn
		}
		return fmt.Errorf("%s redirects to %s", path, res.Target)
	case gate.Loading:
		return errors.New("session is still loading")
	default:
		return fmt.Errorf("no view at %s", path)
	}
}

// mountFor loads a view a mutation is about to run on. A failed load that
// left the session intact does not stop the mutation.
func mountFor(ctx context.Context, v interface{ Mount(context.Context) error }) error {
	err := v.Mount(ctx)
	if err != nil && controller.MutationsAllowed(err) {
		log.Printf("failed to load view, continuing: %v", err)
		return nil
	}
	return err
}

func required(fs *flag.FlagSet, names ...string) error {
	var missing []string
	for _, n := range names {
		if f := fs.Lookup(n); f == nil || f.Value.String() == "" {
			missing = append(missing, "-"+n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ---- session ----

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "email", "password"); err != nil {
		return err
	}

	id, err := a.sess.Login(ctx, api.LoginRequest{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", id.Name, id.Role)
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	role := fs.String("role", string(api.RoleUser), "user or admin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "name", "email", "password"); err != nil {
		return err
	}
	if r := api.Role(*role); !r.Valid() {
		return fmt.Errorf("invalid role %q", *role)
	}

	id, err := a.sess.Register(ctx, api.RegisterRequest{Name: *name, Email: *email, Password: *password, Role: api.Role(*role)})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered and logged in as %s (%s)\n", id.Name, id.Role)
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.sess.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func cmdWhoami(_ context.Context, a *app, _ []string) error {
	id := a.sess.Current()
	if id == nil {
		return errNotLoggedIn
	}
	fmt.Fprintf(a.out, "%s <%s> (%s)\n", id.Name, id.Email, id.Role)
	return nil
}

// ---- views ----

func cmdDashboard(ctx context.Context, a *app, _ []string) error {
	if err := requireView(a, "/dashboard"); err != nil {
		return err
	}
	d := controller.NewDashboard(a.client, a.sess)
	defer d.Unmount()
	if err := d.Mount(ctx); err != nil {
		return err
	}
	printDashboard(a.out, d.Snapshot().Data)
	return nil
}

func cmdProjects(ctx context.Context, a *app, _ []string) error {
	if err := requireView(a, "/projects"); err != nil {
		return err
	}
	p := controller.NewProjects(a.client, a.sess)
	defer p.Unmount()
	if err := p.Mount(ctx); err != nil {
		return err
	}
	printProjects(a.out, p.Snapshot().Data, a.sess.Current().IsAdmin())
	return nil
}

// withProjects mounts the projects view, runs op, and prints the refreshed
// list.
func withProjects(ctx context.Context, a *app, op func(ctx context.Context, p *controller.Projects) error) error {
	if err := requireView(a, "/projects"); err != nil {
		return err
	}
	p := controller.NewProjects(a.client, a.sess)
	defer p.Unmount()
	if err := mountFor(ctx, p); err != nil {
		return err
	}
	if err := op(ctx, p); err != nil {
		return err
	}
	printProjects(a.out, p.Snapshot().Data, a.sess.Current().IsAdmin())
	return nil
}

func cmdProjectCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "project-create")
	title := fs.String("title", "", "project title")
	desc := fs.String("description", "", "project description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withProjects(ctx, a, func(ctx context.Context, p *controller.Projects) error {
		return p.Create(ctx, api.ProjectRequest{Title: *title, Description: *desc})
	})
}

func cmdProjectUpdate(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "project-update")
	id := fs.String("id", "", "project id")
	title := fs.String("title", "", "new title")
	desc := fs.String("description", "", "new description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "id"); err != nil {
		return err
	}
	return withProjects(ctx, a, func(ctx context.Context, p *controller.Projects) error {
		return p.Update(ctx, *id, api.ProjectRequest{Title: *title, Description: *desc})
	})
}

func cmdProjectDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "project-delete")
	id := fs.String("id", "", "project id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "id"); err != nil {
		return err
	}
	return withProjects(ctx, a, func(ctx context.Context, p *controller.Projects) error {
		return p.Delete(ctx, *id)
	})
}

// withTasks mounts the task view of projectID, runs op (if any), and
// prints the refreshed tasks.
func withTasks(ctx context.Context, a *app, projectID string, op func(ctx context.Context, t *controller.Tasks) error) error {
	if err := requireView(a, "/projects/"+projectID+"/tasks"); err != nil {
		return err
	}
	t := controller.NewTasks(a.client, a.sess, projectID)
	defer t.Unmount()
	mount := t.Mount
	if op != nil {
		mount = func(ctx context.Context) error { return mountFor(ctx, t) }
	}
	if err := mount(ctx); err != nil {
		return err
	}
	if op != nil {
		if err := op(ctx, t); err != nil {
			return err
		}
	}
	printTasks(a.out, t.Snapshot().Data)
	return nil
}

func cmdTasks(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "tasks")
	project := fs.String("project", "", "project id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "project"); err != nil {
		return err
	}
	return withTasks(ctx, a, *project, nil)
}

func cmdTaskCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "task-create")
	project := fs.String("project", "", "project id")
	title := fs.String("title", "", "task title")
	desc := fs.String("description", "", "task description")
	status := fs.String("status", string(api.StatusTodo), "Todo, In Progress or Done")
	priority := fs.String("priority", string(api.PriorityMedium), "Low, Medium or High")
	due := fs.String("due", "", "due date (YYYY-MM-DD)")
	assign := fs.String("assign", "", "assignee user id (admins only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "project"); err != nil {
		return err
	}
	if *due != "" {
		if _, err := time.Parse("2006-01-02", *due); err != nil {
			return fmt.Errorf("invalid -due %q: want YYYY-MM-DD", *due)
		}
	}
	return withTasks(ctx, a, *project, func(ctx context.Context, t *controller.Tasks) error {
		return t.Create(ctx, api.CreateTaskRequest{
			Title:       *title,
			Description: *desc,
			Status:      api.Status(*status),
			Priority:    api.Priority(*priority),
			DueDate:     *due,
			AssignedTo:  *assign,
		})
	})
}

func cmdTaskStatus(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "task-status")
	project := fs.String("project", "", "project id (omit to act from the dashboard)")
	id := fs.String("id", "", "task id")
	status := fs.String("status", "", "Todo, In Progress or Done")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "id", "status"); err != nil {
		return err
	}

	if *project != "" {
		return withTasks(ctx, a, *project, func(ctx context.Context, t *controller.Tasks) error {
			return t.ChangeStatus(ctx, *id, api.Status(*status))
		})
	}

	if err := requireView(a, "/dashboard"); err != nil {
		return err
	}
	d := controller.NewDashboard(a.client, a.sess)
	defer d.Unmount()
	if err := mountFor(ctx, d); err != nil {
		return err
	}
	if err := d.ChangeStatus(ctx, *id, api.Status(*status)); err != nil {
		return err
	}
	printDashboard(a.out, d.Snapshot().Data)
	return nil
}

func cmdTaskDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "task-delete")
	project := fs.String("project", "", "project id")
	id := fs.String("id", "", "task id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "project", "id"); err != nil {
		return err
	}
	return withTasks(ctx, a, *project, func(ctx context.Context, t *controller.Tasks) error {
		return t.Delete(ctx, *id)
	})
}

func cmdProfile(ctx context.Context, a *app, _ []string) error {
	if err := requireView(a, "/profile"); err != nil {
		return err
	}
	p := controller.NewProfile(a.client, a.sess)
	defer p.Unmount()
	if err := p.Mount(ctx); err != nil {
		return err
	}
	printProfile(a.out, p.Snapshot().Data)
	return nil
}

func cmdProfileUpdate(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "profile-update")
	name := fs.String("name", "", "display name (default: unchanged)")
	email := fs.String("email", "", "email (default: unchanged)")
	password := fs.String("password", "", "new password (default: unchanged)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireView(a, "/profile"); err != nil {
		return err
	}

	p := controller.NewProfile(a.client, a.sess)
	defer p.Unmount()
	if err := p.Mount(ctx); err != nil {
		return err
	}
	cur := p.Snapshot().Data
	req := api.UpdateProfileRequest{Name: cur.Name, Email: cur.Email, Password: *password}
	if *name != "" {
		req.Name = *name
	}
	if *email != "" {
		req.Email = *email
	}
	if err := p.Update(ctx, req); err != nil {
		return err
	}
	printProfile(a.out, p.Snapshot().Data)
	return nil
}

func cmdMigrate(_ context.Context, a *app, args []string) error {
	if a.db == nil {
		return errors.New("migrate needs SESSION_STORE=postgres")
	}
	m := a.db.Migrator(a.cfg.MigrationsPath)
	action := "up"
	if len(args) > 0 {
		action = args[0]
	}
	switch action {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
	case "down":
		if err := m.Down(); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action %q", action)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "session schema version %d (dirty: %t)\n", version, dirty)
	return nil
}
