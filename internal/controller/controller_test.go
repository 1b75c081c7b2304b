package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"taskboard/internal/api"
	"taskboard/internal/api/apitest"
	"taskboard/internal/session"
	"taskboard/internal/storage"
)

type harness struct {
	srv    *apitest.Server
	client *api.Client
	sess   *session.Store
	me     api.Identity
}

// newHarness starts a fake service and signs in a fresh account with role.
func newHarness(t *testing.T, role api.Role) *harness {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)

	var sess *session.Store
	client := api.NewClient(srv.BaseURL(), api.WithTokenSource(api.TokenSourceFunc(func() string {
		return sess.Token()
	})))
	sess = session.New(storage.NewMemoryStore(), client)
	ctx := context.Background()
	if err := sess.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}

	me := srv.AddUser("Ann", "ann@x.io", "secret1", role)
	if _, err := sess.Login(ctx, api.LoginRequest{Email: "ann@x.io", Password: "secret1"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	srv.ResetCalls()
	return &harness{srv: srv, client: client, sess: sess, me: me}
}

func waitForCall(t *testing.T, srv *apitest.Server, method, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.Count(method, path) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s %s", method, path)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func indexOf(calls []string, call string, from int) int {
	for i := from; i < len(calls); i++ {
		if calls[i] == call {
			return i
		}
	}
	return -1
}

// ==========================================================================
// Cycle
// ==========================================================================

func TestCycle_Transitions(t *testing.T) {
	var fail bool
	c := NewCycle("numbers", nil, func(ctx context.Context) ([]int, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return []int{1, 2}, nil
	})

	var mu sync.Mutex
	var seen []State
	unsubscribe := c.Subscribe(func(s Snapshot[[]int]) {
		mu.Lock()
		seen = append(seen, s.State)
		mu.Unlock()
	})
	ctx := context.Background()

	if c.Snapshot().State != Idle {
		t.Fatalf("expected idle, got %v", c.Snapshot().State)
	}
	if err := c.Mount(ctx); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	fail = true
	err := c.Refresh(ctx)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.View != "numbers" {
		t.Fatalf("expected FetchError for numbers, got %v", err)
	}

	snap := c.Snapshot()
	if snap.State != Error || !snap.HasData || len(snap.Data) != 2 {
		t.Errorf("error state should keep last data, got %+v", snap)
	}
	if snap.Err == nil {
		t.Error("expected error in snapshot")
	}

	c.Unmount()
	unsubscribe()
	c.Unmount()

	want := []State{Loading, Ready, Loading, Error, Idle}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d: expected %v, got %v", i, want[i], seen[i])
		}
	}

	if snap := c.Snapshot(); snap.HasData || snap.Data != nil {
		t.Error("unmount should drop data")
	}
}

func TestIsAllowedTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{Idle, Loading, true},
		{Idle, Ready, false},
		{Idle, Error, false},
		{Loading, Ready, true},
		{Loading, Error, true},
		{Loading, Loading, true},
		{Loading, Idle, true},
		{Ready, Loading, true},
		{Ready, Error, false},
		{Error, Loading, true},
		{Error, Ready, false},
	}
	for _, tt := range tests {
		if got := isAllowedTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("%v -> %v: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCycle_RefreshUnmounted(t *testing.T) {
	c := NewCycle("x", nil, func(ctx context.Context) (int, error) { return 1, nil })
	if err := c.Refresh(context.Background()); !errors.Is(err, ErrNotMounted) {
		t.Errorf("expected ErrNotMounted, got %v", err)
	}
}

func TestCycle_LateResultDiscarded(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	h.srv.AddProject("ann@x.io", "Apollo", "")
	p := NewProjects(h.client, h.sess)

	var mu sync.Mutex
	var states []State
	p.Subscribe(func(s Snapshot[[]api.Project]) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	release := h.srv.Hold(http.MethodGet, "/projects")
	done := make(chan error, 1)
	go func() { done <- p.Mount(context.Background()) }()

	waitForCall(t, h.srv, http.MethodGet, "/projects")
	p.Unmount()
	release()

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	snap := p.Snapshot()
	if snap.State != Idle || snap.HasData {
		t.Errorf("late result must not be written, got %+v", snap)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, s := range states {
		if s == Ready {
			t.Error("late result must not be published")
		}
	}
}

func TestCycle_UnauthorizedLogsOut(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	h.srv.RotateSecret()

	d := NewDashboard(h.client, h.sess)
	err := d.Mount(context.Background())

	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Errorf("expected FetchError, got %T", err)
	}
	if api.StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("expected wrapped 401, got %d", api.StatusCode(err))
	}
	if h.sess.Authenticated() {
		t.Error("expected session cleared after 401")
	}
}

func TestCycle_NoSession(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	_ = h.sess.Logout(context.Background())

	p := NewProjects(h.client, h.sess)
	err := p.Mount(context.Background())
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if len(h.srv.Calls()) != 0 {
		t.Errorf("no request expected without a session, got %v", h.srv.Calls())
	}
}

// ==========================================================================
// Dashboard
// ==========================================================================

func TestDashboard_RoleSelectsProjectEndpoint(t *testing.T) {
	tests := []struct {
		role      api.Role
		wantOwn   int
		wantAdmin int
	}{
		{api.RoleUser, 1, 0},
		{api.RoleAdmin, 0, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			h := newHarness(t, tt.role)
			d := NewDashboard(h.client, h.sess)

			if err := d.Mount(context.Background()); err != nil {
				t.Fatalf("mount failed: %v", err)
			}
			if got := h.srv.Count(http.MethodGet, "/projects"); got != tt.wantOwn {
				t.Errorf("own projects called %d times, want %d", got, tt.wantOwn)
			}
			if got := h.srv.Count(http.MethodGet, "/projects/admin/all"); got != tt.wantAdmin {
				t.Errorf("all projects called %d times, want %d", got, tt.wantAdmin)
			}
			if h.srv.Count(http.MethodGet, "/tasks/stats") != 1 || h.srv.Count(http.MethodGet, "/tasks") != 1 {
				t.Errorf("expected one stats and one task call, got %v", h.srv.Calls())
			}
		})
	}
}

type statsStub struct {
	Service
	stats api.TaskStats
}

func (s statsStub) GetTaskStats(context.Context) (*api.TaskStats, error) {
	out := s.stats
	return &out, nil
}

func (statsStub) GetProjects(context.Context) ([]api.Project, error) { return nil, nil }

func (statsStub) GetTasks(context.Context, string) ([]api.Task, error) { return nil, nil }

type fixedSession struct{ id *api.Identity }

func (f fixedSession) Current() *api.Identity        { return f.id }
func (fixedSession) Logout(ctx context.Context) error { return nil }

func TestDashboard_StatsTakenAsServed(t *testing.T) {
	svc := statsStub{stats: api.TaskStats{Total: 10, Completed: 4, Pending: 6}}
	d := NewDashboard(svc, fixedSession{id: &api.Identity{ID: "u1", Role: api.RoleUser}})

	if err := d.Mount(context.Background()); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	got := d.Snapshot().Data.Stats
	if got != (api.TaskStats{Total: 10, Completed: 4, Pending: 6}) {
		t.Errorf("expected stats as served, got %+v", got)
	}
}

func TestDashboard_Recent(t *testing.T) {
	var d DashboardData
	for i := 0; i < 8; i++ {
		d.Projects = append(d.Projects, api.Project{})
		d.Tasks = append(d.Tasks, api.Task{})
	}
	if len(d.RecentProjects()) != 5 || len(d.RecentTasks()) != 6 {
		t.Errorf("expected 5 projects and 6 tasks, got %d and %d", len(d.RecentProjects()), len(d.RecentTasks()))
	}

	short := DashboardData{Tasks: []api.Task{{}}}
	if len(short.RecentTasks()) != 1 {
		t.Error("short lists are returned whole")
	}
}

func TestDashboard_ChangeStatus(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	p := h.srv.AddProject("ann@x.io", "Apollo", "")
	task := h.srv.AddTask(p.ID, "Launch", api.StatusTodo)

	d := NewDashboard(h.client, h.sess)
	ctx := context.Background()
	if err := d.Mount(ctx); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	if d.Snapshot().Data.Stats.Completed != 0 {
		t.Fatal("expected nothing completed yet")
	}

	if err := d.ChangeStatus(ctx, task.ID, api.StatusDone); err != nil {
		t.Fatalf("change status failed: %v", err)
	}

	data := d.Snapshot().Data
	if data.Stats.Completed != 1 || data.Tasks[0].Status != api.StatusDone {
		t.Errorf("expected refreshed data after status change, got %+v", data)
	}

	calls := h.srv.Calls()
	put := indexOf(calls, "PUT /tasks/"+task.ID, 0)
	if put < 0 || indexOf(calls, "GET /tasks/stats", put) < 0 {
		t.Errorf("expected re-fetch after update, got %v", calls)
	}
}

func TestDashboard_InvalidStatus(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	d := NewDashboard(h.client, h.sess)
	ctx := context.Background()
	_ = d.Mount(ctx)
	h.srv.ResetCalls()

	err := d.ChangeStatus(ctx, "t1", api.Status("Blocked"))
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if len(h.srv.Calls()) != 0 {
		t.Errorf("no request expected, got %v", h.srv.Calls())
	}
}

// ==========================================================================
// Projects
// ==========================================================================

func TestProjects_UserListsOwnOnly(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	h.srv.AddUser("Bo", "bo@x.io", "pw", api.RoleUser)
	h.srv.AddProject("ann@x.io", "Apollo", "")
	h.srv.AddProject("bo@x.io", "Gemini", "")

	p := NewProjects(h.client, h.sess)
	if err := p.Mount(context.Background()); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	if h.srv.Count(http.MethodGet, "/projects") != 1 {
		t.Errorf("expected exactly one own-projects call, got %v", h.srv.Calls())
	}
	if h.srv.Count(http.MethodGet, "/projects/admin/all") != 0 {
		t.Error("non-admin must never list all projects")
	}
	data := p.Snapshot().Data
	if len(data) != 1 || data[0].Title != "Apollo" {
		t.Errorf("expected only own project, got %+v", data)
	}
}

func TestProjects_AdminSeesOwners(t *testing.T) {
	h := newHarness(t, api.RoleAdmin)
	h.srv.AddUser("Bo", "bo@x.io", "pw", api.RoleUser)
	h.srv.AddProject("bo@x.io", "Gemini", "")

	p := NewProjects(h.client, h.sess)
	if err := p.Mount(context.Background()); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	data := p.Snapshot().Data
	if len(data) != 1 || data[0].Owner.Label() != "Bo" {
		t.Errorf("expected populated owner, got %+v", data)
	}
}

func TestProjects_CreateRefetches(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	p := NewProjects(h.client, h.sess)
	ctx := context.Background()
	_ = p.Mount(ctx)

	if err := p.Create(ctx, api.ProjectRequest{Title: "  Apollo  ", Description: "moon"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	data := p.Snapshot().Data
	if len(data) != 1 || data[0].Title != "Apollo" {
		t.Errorf("expected new project after re-fetch, got %+v", data)
	}
	if h.srv.Count(http.MethodGet, "/projects") != 2 {
		t.Errorf("expected mount and re-fetch, got %v", h.srv.Calls())
	}
}

func TestProjects_BlankTitle(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	p := NewProjects(h.client, h.sess)
	ctx := context.Background()
	_ = p.Mount(ctx)
	h.srv.ResetCalls()

	err := p.Create(ctx, api.ProjectRequest{Title: "   "})
	var mutErr *MutationError
	if !errors.As(err, &mutErr) || !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected MutationError wrapping ErrTitleRequired, got %v", err)
	}
	if len(h.srv.Calls()) != 0 {
		t.Errorf("no request and no re-fetch expected, got %v", h.srv.Calls())
	}
}

func TestProjects_Update(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	proj := h.srv.AddProject("ann@x.io", "Apollo", "")
	p := NewProjects(h.client, h.sess)
	ctx := context.Background()
	_ = p.Mount(ctx)

	if err := p.Update(ctx, proj.ID, api.ProjectRequest{Title: "Artemis"}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if got := p.Snapshot().Data[0].Title; got != "Artemis" {
		t.Errorf("expected renamed project, got %q", got)
	}
}

func TestProjects_DeleteForeignProjectFails(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	h.srv.AddUser("Bo", "bo@x.io", "pw", api.RoleUser)
	mine := h.srv.AddProject("ann@x.io", "Apollo", "")
	theirs := h.srv.AddProject("bo@x.io", "Gemini", "")

	p := NewProjects(h.client, h.sess)
	ctx := context.Background()
	_ = p.Mount(ctx)
	before := p.Snapshot()
	h.srv.ResetCalls()

	err := p.Delete(ctx, theirs.ID)
	var mutErr *MutationError
	if !errors.As(err, &mutErr) {
		t.Fatalf("expected MutationError, got %v", err)
	}
	if api.StatusCode(err) != http.StatusForbidden {
		t.Errorf("expected 403, got %d", api.StatusCode(err))
	}
	if Message(err) != "Not authorized to delete this project" {
		t.Errorf("unexpected message %q", Message(err))
	}

	after := p.Snapshot()
	if after.State != Ready || len(after.Data) != len(before.Data) || after.Data[0].ID != mine.ID {
		t.Errorf("project list must be unchanged, got %+v", after)
	}
	if h.srv.Count(http.MethodGet, "/projects") != 0 {
		t.Error("failed mutation must not re-fetch")
	}
}

func TestProjects_DeleteOwn(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	proj := h.srv.AddProject("ann@x.io", "Apollo", "")
	h.srv.AddTask(proj.ID, "Launch", api.StatusTodo)

	p := NewProjects(h.client, h.sess)
	ctx := context.Background()
	_ = p.Mount(ctx)

	if err := p.Delete(ctx, proj.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(p.Snapshot().Data) != 0 {
		t.Error("expected empty list after delete")
	}
	if h.srv.TaskCount(proj.ID) != 0 {
		t.Error("expected tasks deleted with project")
	}
}

func TestProjects_RefreshFailureKeepsData(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	h.srv.AddProject("ann@x.io", "Apollo", "")
	p := NewProjects(h.client, h.sess)
	ctx := context.Background()
	_ = p.Mount(ctx)

	h.srv.FailNext(http.MethodGet, "/projects", http.StatusInternalServerError, "Server error")
	err := p.Refresh(ctx)
	if Message(err) != "Server error" {
		t.Errorf("expected service message, got %q", Message(err))
	}
	snap := p.Snapshot()
	if snap.State != Error || !snap.HasData || len(snap.Data) != 1 {
		t.Errorf("expected error state with last data, got %+v", snap)
	}
}

// ==========================================================================
// Tasks
// ==========================================================================

func TestTasks_CreateThenList(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	proj := h.srv.AddProject("ann@x.io", "Apollo", "")

	tc := NewTasks(h.client, h.sess, proj.ID)
	ctx := context.Background()
	if err := tc.Mount(ctx); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	err := tc.Create(ctx, api.CreateTaskRequest{Title: "Launch", DueDate: "2026-11-01"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	data := tc.Snapshot().Data
	if len(data.Tasks) != 1 {
		t.Fatalf("expected new task listed, got %+v", data.Tasks)
	}
	got := data.Tasks[0]
	if got.Status != api.StatusTodo || got.Priority != api.PriorityMedium {
		t.Errorf("expected defaults Todo/Medium, got %s/%s", got.Status, got.Priority)
	}
	if got.Project.ID != proj.ID {
		t.Errorf("expected task bound to project, got %q", got.Project.ID)
	}
	if data.Project.Title != "Apollo" {
		t.Errorf("expected project metadata, got %+v", data.Project)
	}

	calls := h.srv.Calls()
	post := indexOf(calls, "POST /tasks", 0)
	if post < 0 || indexOf(calls, "GET /tasks", post) < 0 {
		t.Errorf("expected list after create, got %v", calls)
	}
}

func TestTasks_UserDirectoryOnlyForAdmin(t *testing.T) {
	tests := []struct {
		role      api.Role
		wantUsers int
	}{
		{api.RoleUser, 0},
		{api.RoleAdmin, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			h := newHarness(t, tt.role)
			proj := h.srv.AddProject("ann@x.io", "Apollo", "")

			tc := NewTasks(h.client, h.sess, proj.ID)
			if err := tc.Mount(context.Background()); err != nil {
				t.Fatalf("mount failed: %v", err)
			}
			if got := h.srv.Count(http.MethodGet, "/auth/users"); got != tt.wantUsers {
				t.Errorf("user directory fetched %d times, want %d", got, tt.wantUsers)
			}
			if got := len(tc.Snapshot().Data.Users); got != tt.wantUsers {
				t.Errorf("expected %d users loaded, got %d", tt.wantUsers, got)
			}
		})
	}
}

func TestTasks_AdminAssigns(t *testing.T) {
	h := newHarness(t, api.RoleAdmin)
	bo := h.srv.AddUser("Bo", "bo@x.io", "pw", api.RoleUser)
	proj := h.srv.AddProject("ann@x.io", "Apollo", "")

	tc := NewTasks(h.client, h.sess, proj.ID)
	ctx := context.Background()
	_ = tc.Mount(ctx)

	if err := tc.Create(ctx, api.CreateTaskRequest{Title: "Launch", AssignedTo: bo.ID}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	task := tc.Snapshot().Data.Tasks[0]
	if task.AssignedTo == nil || task.AssignedTo.Name != "Bo" {
		t.Errorf("expected populated assignee, got %+v", task.AssignedTo)
	}
}

func TestTasks_NonAdminAssigneeDropped(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	bo := h.srv.AddUser("Bo", "bo@x.io", "pw", api.RoleUser)
	proj := h.srv.AddProject("ann@x.io", "Apollo", "")

	tc := NewTasks(h.client, h.sess, proj.ID)
	ctx := context.Background()
	_ = tc.Mount(ctx)

	if err := tc.Create(ctx, api.CreateTaskRequest{Title: "Launch", AssignedTo: bo.ID}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if a := tc.Snapshot().Data.Tasks[0].AssignedTo; a != nil {
		t.Errorf("expected no assignee, got %+v", a)
	}
}

func TestTasks_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     api.CreateTaskRequest
		wantErr error
	}{
		{"blank title", api.CreateTaskRequest{Title: " "}, ErrTitleRequired},
		{"bad status", api.CreateTaskRequest{Title: "x", Status: "Blocked"}, ErrInvalidStatus},
		{"bad priority", api.CreateTaskRequest{Title: "x", Priority: "Urgent"}, ErrInvalidPriority},
	}

	h := newHarness(t, api.RoleUser)
	proj := h.srv.AddProject("ann@x.io", "Apollo", "")
	tc := NewTasks(h.client, h.sess, proj.ID)
	ctx := context.Background()
	_ = tc.Mount(ctx)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.srv.ResetCalls()
			err := tc.Create(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if len(h.srv.Calls()) != 0 {
				t.Errorf("no request expected, got %v", h.srv.Calls())
			}
		})
	}
}

func TestTasks_StatusAndDelete(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	proj := h.srv.AddProject("ann@x.io", "Apollo", "")
	a := h.srv.AddTask(proj.ID, "Design", api.StatusTodo)
	b := h.srv.AddTask(proj.ID, "Build", api.StatusTodo)

	tc := NewTasks(h.client, h.sess, proj.ID)
	ctx := context.Background()
	_ = tc.Mount(ctx)

	if err := tc.ChangeStatus(ctx, a.ID, api.StatusInProgress); err != nil {
		t.Fatalf("change status failed: %v", err)
	}
	counts := tc.Snapshot().Data.CountByStatus()
	if counts[api.StatusInProgress] != 1 || counts[api.StatusTodo] != 1 || counts[api.StatusDone] != 0 {
		t.Errorf("unexpected counts %v", counts)
	}

	if err := tc.Delete(ctx, b.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if n := len(tc.Snapshot().Data.Tasks); n != 1 {
		t.Errorf("expected one task left, got %d", n)
	}
}

func TestTasks_MissingProject(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	tc := NewTasks(h.client, h.sess, "")

	if err := tc.Mount(context.Background()); !errors.Is(err, api.ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}
}

func TestTasks_ProjectNotFound(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	tc := NewTasks(h.client, h.sess, "000000000000000000000000")

	err := tc.Mount(context.Background())
	if !api.IsNotFound(err) {
		t.Fatalf("expected 404, got %v", err)
	}
	if tc.Snapshot().State != Error {
		t.Errorf("expected error state, got %v", tc.Snapshot().State)
	}
}

// ==========================================================================
// Profile
// ==========================================================================

func TestProfile_Update(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	p := NewProfile(h.client, h.sess)
	ctx := context.Background()

	if err := p.Mount(ctx); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	if p.Snapshot().Data.Email != "ann@x.io" {
		t.Fatalf("unexpected profile %+v", p.Snapshot().Data)
	}

	if err := p.Update(ctx, api.UpdateProfileRequest{Name: "Annie", Email: "annie@x.io"}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if p.Snapshot().Data.Name != "Annie" {
		t.Errorf("expected re-fetched profile, got %+v", p.Snapshot().Data)
	}
	if h.sess.Current().Email != "annie@x.io" {
		t.Errorf("expected session identity updated, got %+v", h.sess.Current())
	}
	if h.srv.Count(http.MethodGet, "/auth/profile") != 2 {
		t.Errorf("expected mount and re-fetch, got %v", h.srv.Calls())
	}
}

func TestProfile_Validation(t *testing.T) {
	h := newHarness(t, api.RoleUser)
	p := NewProfile(h.client, h.sess)
	ctx := context.Background()
	_ = p.Mount(ctx)

	if err := p.Update(ctx, api.UpdateProfileRequest{Email: "a@x.io"}); !errors.Is(err, ErrNameRequired) {
		t.Errorf("expected ErrNameRequired, got %v", err)
	}
	if err := p.Update(ctx, api.UpdateProfileRequest{Name: "Ann"}); !errors.Is(err, ErrEmailRequired) {
		t.Errorf("expected ErrEmailRequired, got %v", err)
	}
}

// ==========================================================================
// Message
// ==========================================================================

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"request error", &MutationError{Op: "x", Err: &api.RequestError{StatusCode: 400, Message: "Title is required"}}, "Title is required"},
		{"validation", &MutationError{Op: "create project", Err: ErrTitleRequired}, "title is required"},
		{"fetch", &FetchError{View: "profile", Err: ErrNoSession}, ErrNoSession.Error()},
		{"plain", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMutationsAllowed(t *testing.T) {
	expired := fmt.Errorf("%w: %w", ErrSessionExpired, &api.RequestError{StatusCode: 401})
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &FetchError{View: "projects", Err: &api.RequestError{StatusCode: 500, Message: "boom"}}, true},
		{"transport", &FetchError{View: "projects", Err: errors.New("connection refused")}, true},
		{"session expired", &FetchError{View: "projects", Err: expired}, false},
		{"no session", &FetchError{View: "projects", Err: ErrNoSession}, false},
		{"not a fetch error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MutationsAllowed(tt.err); got != tt.want {
				t.Errorf("MutationsAllowed() = %v, want %v", got, tt.want)
			}
		})
	}
}
