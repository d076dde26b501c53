package service

import "github.com/yuchen-w/fangnote/internal/models"

// Tabs are the three projections of the task log shown in the UI. Log is the
// superset view of everything that is not a template; Unpublished and
// Templates are always disjoint.
type Tabs struct {
	Log         []models.Task
	Unpublished []models.Task
	Templates   []models.Task
}

// ComputeTabs derives the tab projections. Pure; input order is preserved.
func ComputeTabs(tasks []models.Task) Tabs {
	var t Tabs
	for _, task := range tasks {
		if task.IsTemplate() {
			t.Templates = append(t.Templates, task)
			continue
		}
		t.Log = append(t.Log, task)
		if task.Status == models.StatusSuccess && !task.IsPublished() {
			t.Unpublished = append(t.Unpublished, task)
		}
	}
	return t
}
