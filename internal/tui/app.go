// Package tui implements the interactive terminal app: a capture box, the
// task log with live extraction status, the unpublished and template tabs,
// and the listing form editor.
package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/yuchen-w/fangnote/internal/extract"
	"github.com/yuchen-w/fangnote/internal/metrics"
	"github.com/yuchen-w/fangnote/internal/models"
	"github.com/yuchen-w/fangnote/internal/service"
	"github.com/yuchen-w/fangnote/internal/store"
)

type appView int

const (
	viewWorkspace appView = iota
	viewUnpublished
	viewTemplates
)

type focusArea int

const (
	focusCapture focusArea = iota
	focusImage
	focusAudio
	focusList
)

// tasksChangedMsg signals that the task log changed; the model re-reads it.
type tasksChangedMsg struct{}

// Model is the bubbletea model for the whole app.
type Model struct {
	mgr       *service.Manager
	store     *store.TaskStore
	collector *metrics.Collector

	theme Theme
	view  appView
	focus focusArea

	capture   textarea.Model
	imagePath textinput.Model
	audioPath textinput.Model

	tabs     service.Tabs
	selected int
	form     *formModel

	spin    spinner.Model
	changes <-chan struct{}

	status      string
	statusIsErr bool
	width       int
}

// NewModel builds the app model. The theme preference is read from the store
// and falls back to defaultTheme.
func NewModel(mgr *service.Manager, taskStore *store.TaskStore, collector *metrics.Collector, defaultTheme string) Model {
	themeName := defaultTheme
	if taskStore != nil {
		if saved, ok := taskStore.Theme(context.Background()); ok {
			themeName = saved
		}
	}

	capture := textarea.New()
	capture.Placeholder = "粘贴或输入房源描述，一次可包含多条……"
	capture.SetHeight(4)
	capture.Focus()

	imagePath := textinput.New()
	imagePath.Prompt = ""
	imagePath.Placeholder = "图片文件路径（可选）"

	audioPath := textinput.New()
	audioPath.Prompt = ""
	audioPath.Placeholder = "音频文件路径（可选）"

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		mgr:       mgr,
		store:     taskStore,
		collector: collector,
		theme:     themeByName(themeName),
		capture:   capture,
		imagePath: imagePath,
		audioPath: audioPath,
		tabs:      mgr.Tabs(),
		spin:      spin,
		changes:   mgr.Subscribe(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, listenForChanges(m.changes))
}

// listenForChanges waits for the next task-log change signal.
func listenForChanges(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return tasksChangedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tasksChangedMsg:
		m.tabs = m.mgr.Tabs()
		m.clampSelection()
		return m, listenForChanges(m.changes)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

func (m Model) handleKey(key tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.form != nil {
		return m.handleFormKey(key)
	}

	switch key.String() {
	case "ctrl+t":
		return m.toggleTheme()
	case "ctrl+s":
		if m.view == viewWorkspace && m.focus != focusList {
			return m.submit()
		}
	case "tab":
		if m.view == viewWorkspace && m.focus != focusList {
			m.setFocus(nextCaptureFocus(m.focus))
			return m, nil
		}
	case "esc":
		if m.view == viewWorkspace {
			if m.focus == focusList {
				m.setFocus(focusCapture)
			} else {
				m.setFocus(focusList)
			}
			return m, nil
		}
	}

	if m.focus == focusList || m.view != viewWorkspace {
		return m.handleListKey(key)
	}
	return m.updateInputs(key)
}

func nextCaptureFocus(f focusArea) focusArea {
	switch f {
	case focusCapture:
		return focusImage
	case focusImage:
		return focusAudio
	default:
		return focusCapture
	}
}

func (m Model) handleListKey(key tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	tasks := m.currentTasks()

	switch key.String() {
	case "q":
		return m, tea.Quit
	case "1":
		m.view = viewWorkspace
		m.setFocus(focusList)
		m.selected = 0
	case "2":
		m.view = viewUnpublished
		m.selected = 0
	case "3":
		m.view = viewTemplates
		m.selected = 0
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(tasks)-1 {
			m.selected++
		}
	case "enter":
		if m.selected < len(tasks) {
			t := tasks[m.selected]
			if t.Status == models.StatusSuccess && t.Result != nil {
				form := newFormModel(t.ID, t.Result.Listing, m.theme)
				m.form = &form
			}
		}
	case "r":
		if m.selected < len(tasks) {
			t := tasks[m.selected]
			if t.Status == models.StatusFailed {
				if _, err := m.mgr.Retry(t.ID); err != nil {
					m.setStatus(err.Error(), true)
				} else {
					m.setStatus("已重新提交识别", false)
				}
			}
		}
	case "i":
		if m.view == viewWorkspace {
			m.setFocus(focusCapture)
		}
	}
	return m, nil
}

func (m Model) handleFormKey(key tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.form = nil
		return m, nil
	case "ctrl+s":
		return m.saveForm(false)
	case "ctrl+t":
		return m.saveForm(true)
	}

	form, cmd := m.form.Update(key)
	m.form = &form
	return m, cmd
}

func (m Model) saveForm(asTemplate bool) (tea.Model, tea.Cmd) {
	listing := m.form.listing()
	if err := m.mgr.EditAndSave(m.form.taskID, listing, asTemplate); err != nil {
		m.setStatus(err.Error(), true)
		return m, nil
	}
	m.form = nil
	if asTemplate {
		m.setStatus("已存为模版", false)
		m.view = viewTemplates
	} else {
		m.setStatus("房源发布成功！", false)
	}
	m.selected = 0
	return m, nil
}

// submit reads the capture inputs, loads any attachments and hands the whole
// thing to the manager. Empty submissions are rejected before a task exists.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.capture.Value())

	var image, audio *extract.Media
	if path := strings.TrimSpace(m.imagePath.Value()); path != "" {
		med, err := extract.MediaFromFile(path)
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		image = med
	}
	if path := strings.TrimSpace(m.audioPath.Value()); path != "" {
		med, err := extract.MediaFromFile(path)
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		audio = med
	}

	if _, err := m.mgr.Submit(text, image, audio); err != nil {
		m.setStatus("请先输入文字或选择图片/音频", true)
		return m, nil
	}

	m.capture.SetValue("")
	m.imagePath.SetValue("")
	m.audioPath.SetValue("")
	m.setStatus("已提交识别", false)
	return m, nil
}

func (m Model) toggleTheme() (tea.Model, tea.Cmd) {
	if m.theme.Name == "light" {
		m.theme = darkTheme
	} else {
		m.theme = lightTheme
	}
	if m.store != nil {
		if err := m.store.SetTheme(context.Background(), m.theme.Name); err != nil {
			m.setStatus(err.Error(), true)
		}
	}
	return m, nil
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	m.capture.Blur()
	m.imagePath.Blur()
	m.audioPath.Blur()
	switch f {
	case focusCapture:
		m.capture.Focus()
	case focusImage:
		m.imagePath.Focus()
	case focusAudio:
		m.audioPath.Focus()
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusIsErr = isErr
}

func (m *Model) clampSelection() {
	if n := len(m.currentTasks()); m.selected >= n {
		m.selected = max(0, n-1)
	}
}

func (m Model) currentTasks() []models.Task {
	switch m.view {
	case viewUnpublished:
		return m.tabs.Unpublished
	case viewTemplates:
		return m.tabs.Templates
	default:
		return m.tabs.Log
	}
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusCapture:
		m.capture, cmd = m.capture.Update(msg)
	case focusImage:
		m.imagePath, cmd = m.imagePath.Update(msg)
	case focusAudio:
		m.audioPath, cmd = m.audioPath.Update(msg)
	}
	return m, cmd
}

func (m Model) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m Model) renderContent() string {
	t := m.theme
	var b strings.Builder

	b.WriteString(t.titleStyle().Render("房源随手记"))
	b.WriteString(t.mutedStyle().Render(fmt.Sprintf("   [%s]", t.Name)))
	b.WriteString("\n\n")

	if m.form != nil {
		b.WriteString(m.form.View())
		b.WriteString("\n")
		b.WriteString(m.renderStatus())
		return b.String()
	}

	b.WriteString(m.renderTabBar())
	b.WriteString("\n\n")

	switch m.view {
	case viewWorkspace:
		b.WriteString(m.renderWorkspace())
	case viewUnpublished:
		b.WriteString(t.titleStyle().Render("待发布房源"))
		b.WriteString("\n")
		b.WriteString(renderTaskList(m.tabs.Unpublished, t, m.selected, true, m.spin.View()))
	case viewTemplates:
		b.WriteString(t.titleStyle().Render("我的模版"))
		b.WriteString("\n")
		b.WriteString(renderTaskList(m.tabs.Templates, t, m.selected, true, m.spin.View()))
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderTabBar() string {
	t := m.theme
	return strings.Join([]string{
		t.tabStyle(m.view == viewWorkspace).Render("1 工作台"),
		t.tabStyle(m.view == viewUnpublished).Render(fmt.Sprintf("2 待发布 (%d)", len(m.tabs.Unpublished))),
		t.tabStyle(m.view == viewTemplates).Render(fmt.Sprintf("3 我的模版 (%d)", len(m.tabs.Templates))),
	}, "   ")
}

func (m Model) renderWorkspace() string {
	t := m.theme
	var b strings.Builder

	b.WriteString(t.boxStyle().Render(m.capture.View()))
	b.WriteString("\n")
	b.WriteString(t.mutedStyle().Render("图片: "))
	b.WriteString(m.imagePath.View())
	b.WriteString("\n")
	b.WriteString(t.mutedStyle().Render("音频: "))
	b.WriteString(m.audioPath.View())
	b.WriteString("\n\n")
	b.WriteString(t.titleStyle().Render("任务日志"))
	b.WriteString("\n")
	b.WriteString(renderTaskList(m.tabs.Log, t, m.selected, m.focus == focusList, m.spin.View()))
	return b.String()
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusIsErr {
		return m.theme.errorStyle().Render(m.status) + "\n"
	}
	return m.theme.successStyle().Render(m.status) + "\n"
}

func (m Model) renderFooter() string {
	t := m.theme
	hints := "ctrl+s 提交   tab 切换输入   esc 浏览日志   1/2/3 标签页   ctrl+t 主题   ctrl+c 退出"

	var stats string
	if m.collector != nil {
		if snap := m.collector.Snapshot(); snap.Extract != nil {
			stats = fmt.Sprintf("   识别 %d 次，平均 %.0fms", snap.Extract.Count, snap.Extract.AvgTimeMs)
		}
	}
	return t.mutedStyle().Render(hints + stats)
}

// Run starts the interactive app and blocks until the user quits.
func Run(mgr *service.Manager, taskStore *store.TaskStore, collector *metrics.Collector, defaultTheme string) error {
	p := tea.NewProgram(NewModel(mgr, taskStore, collector, defaultTheme))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run UI: %w", err)
	}
	return nil
}
