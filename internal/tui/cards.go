package tui

import (
	"fmt"
	"strings"

	"github.com/yuchen-w/fangnote/internal/models"
)

// renderTaskCard renders one row of a task list.
func renderTaskCard(t models.Task, theme Theme, selected bool, spin string) string {
	var glyph, badge string
	var glyphStyle = theme.mutedStyle()

	switch t.Status {
	case models.StatusProcessing:
		glyph = spin
		glyphStyle = theme.processingStyle()
		badge = theme.processingStyle().Render("识别中")
	case models.StatusSuccess:
		glyph = "✓"
		glyphStyle = theme.successStyle()
		switch {
		case t.IsTemplate():
			badge = theme.mutedStyle().Render("模版")
		case t.IsPublished():
			badge = theme.successStyle().Render("已发布")
		default:
			badge = theme.mutedStyle().Render("待发布")
		}
	case models.StatusFailed:
		glyph = "✗"
		glyphStyle = theme.errorStyle()
		badge = theme.errorStyle().Render("失败")
	}

	marker := "  "
	descStyle := theme.textStyle()
	if selected {
		marker = "> "
		descStyle = theme.selectedStyle()
	}

	line := fmt.Sprintf("%s%s %s  %s  %s",
		marker,
		glyphStyle.Render(glyph),
		descStyle.Render(truncate(t.Description, 48)),
		badge,
		theme.mutedStyle().Render(t.Timestamp.Format("01-02 15:04")))

	if t.Status == models.StatusFailed && selected && t.Fail != nil {
		line += "\n    " + theme.errorStyle().Render(t.Fail.Message) +
			theme.mutedStyle().Render("  (r 重试)")
	}
	return line
}

// renderTaskList renders a tab's tasks, or a placeholder when empty.
func renderTaskList(tasks []models.Task, theme Theme, selected int, hasFocus bool, spin string) string {
	if len(tasks) == 0 {
		return theme.mutedStyle().Render("  （暂无记录）")
	}
	lines := make([]string, 0, len(tasks))
	for i, t := range tasks {
		lines = append(lines, renderTaskCard(t, theme, hasFocus && i == selected, spin))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
