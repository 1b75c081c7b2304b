package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"taskboard/internal/api"
	"taskboard/internal/controller"
)

func printDashboard(w io.Writer, d controller.DashboardData) {
	fmt.Fprintf(w, "Tasks: %d total, %d completed, %d pending\n\n", d.Stats.Total, d.Stats.Completed, d.Stats.Pending)

	fmt.Fprintln(w, "Recent projects:")
	if len(d.Projects) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, p := range d.RecentProjects() {
		fmt.Fprintf(w, "  %s  %s\n", p.ID, p.Title)
	}

	fmt.Fprintln(w, "\nRecent tasks:")
	if len(d.Tasks) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, t := range d.RecentTasks() {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, t.Priority)
	}
	tw.Flush()
}

func printProjects(w io.Writer, projects []api.Project, showOwner bool) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if showOwner {
		fmt.Fprintln(tw, "ID\tTITLE\tOWNER\tCREATED")
	} else {
		fmt.Fprintln(tw, "ID\tTITLE\tCREATED")
	}
	for _, p := range projects {
		created := p.CreatedAt.Format("2006-01-02")
		if showOwner {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Title, p.Owner.Label(), created)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Title, created)
		}
	}
	tw.Flush()
}

func printTasks(w io.Writer, d controller.TasksData) {
	fmt.Fprintf(w, "Project: %s\n", d.Project.Title)
	counts := d.CountByStatus()
	for _, s := range api.Statuses {
		fmt.Fprintf(w, "  %s: %d\n", s, counts[s])
	}
	fmt.Fprintln(w)

	if len(d.Tasks) == 0 {
		fmt.Fprintln(w, "No tasks")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE\tASSIGNEE")
	for _, t := range d.Tasks {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		assignee := "-"
		if t.AssignedTo != nil {
			assignee = t.AssignedTo.Label()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, t.Priority, due, assignee)
	}
	tw.Flush()

	if len(d.Users) > 0 {
		fmt.Fprintln(w, "\nAssignable users:")
		for _, u := range d.Users {
			fmt.Fprintf(w, "  %s  %s <%s>\n", u.ID, u.Name, u.Email)
		}
	}
}

func printProfile(w io.Writer, id api.Identity) {
	fmt.Fprintf(w, "Name:  %s\nEmail: %s\nRole:  %s\n", id.Name, id.Email, id.Role)
}
