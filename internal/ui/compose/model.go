package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/school-notify/internal/api"
	"github.com/nhle/school-notify/internal/model"
	"github.com/nhle/school-notify/internal/targets"
	"github.com/nhle/school-notify/internal/theme"
)

// Service is the slice of the notification API the compose form needs.
type Service interface {
	CreateNotification(ctx context.Context, req api.CreateNotificationRequest) (*api.RawNotification, error)
	Classes(ctx context.Context) ([]model.Class, error)
	SectionsByClass(ctx context.Context, classID int64) ([]model.Section, error)
}

// SubmittedMsg is dispatched when a notification was created successfully.
type SubmittedMsg struct {
	Title string
}

// CancelMsg is dispatched when the user abandons the form.
type CancelMsg struct{}

// AuthRequiredMsg is dispatched when the create call was rejected with a
// 401; the root model handles the session teardown.
type AuthRequiredMsg struct{}

// classesLoadedMsg carries the class list fetched before the form opens.
type classesLoadedMsg struct {
	classes []model.Class
	err     error
}

// submitResultMsg carries the outcome of the create call.
type submitResultMsg struct {
	title string
	err   error
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	targetType  string
	classID     int64
	sectionID   int64
	role        string
	addAnother  bool
}

// Model is the Bubble Tea model for the notification compose form. The
// audience is assembled through the target builder: the form's target
// section loops for as long as the user keeps answering "add another".
type Model struct {
	svc     Service
	builder *targets.Builder
	form    *huh.Form
	fb      *formBindings

	classes    []model.Class
	loadErr    error
	fieldErrs  map[string]string
	submitting bool
	submitErr  error

	width  int
	height int
}

// New creates a new compose form model.
func New(svc Service, width, height int) Model {
	return Model{
		svc:     svc,
		builder: targets.NewBuilder(),
		fb:      &formBindings{targetType: string(model.TargetSchoolWide)},
		width:   width,
		height:  height,
	}
}

// Init loads the class list; the form is built once it arrives.
func (m Model) Init() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		classes, err := svc.Classes(context.Background())
		return classesLoadedMsg{classes: classes, err: err}
	}
}

// Update handles messages for the compose form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case classesLoadedMsg:
		if msg.err != nil {
			// The class list drives two of the four target types; without it
			// the form still works for school_wide and role audiences.
			m.loadErr = msg.err
		}
		m.classes = msg.classes
		m.form = m.buildForm()
		return m, m.form.Init()

	case submitResultMsg:
		m.submitting = false
		if api.IsAuthError(msg.err) {
			return m, func() tea.Msg { return AuthRequiredMsg{} }
		}
		if msg.err != nil {
			m.submitErr = msg.err
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		return m, func() tea.Msg { return SubmittedMsg{Title: msg.title} }
	}

	if m.form == nil || m.submitting {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m.handleCompleted()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// handleCompleted folds the finished form pass into the builder, then
// either loops for another target or validates and submits.
func (m Model) handleCompleted() (Model, tea.Cmd) {
	m.builder.SetType(model.TargetType(m.fb.targetType))
	switch model.TargetType(m.fb.targetType) {
	case model.TargetClass:
		m.builder.SetClass(m.fb.classID, m.classNameByID(m.fb.classID))
	case model.TargetClassSection:
		m.builder.SetClass(m.fb.classID, m.classNameByID(m.fb.classID))
		m.builder.SetSection(m.fb.sectionID, "")
	case model.TargetRole:
		m.builder.SetRole(m.fb.role)
	}

	if err := m.builder.Add(); err != nil && !errors.Is(err, targets.ErrDuplicate) {
		// Incomplete selection: reopen the form at the same state.
		m.fieldErrs = map[string]string{"targets": "Target selection is incomplete"}
		m.form = m.buildForm()
		return m, m.form.Init()
	}

	if m.fb.addAnother {
		m.fb.addAnother = false
		m.form = m.buildForm()
		return m, m.form.Init()
	}

	req, fieldErrs := m.builder.BuildPayload(m.fb.title, m.fb.description)
	if fieldErrs != nil {
		m.fieldErrs = fieldErrs
		m.form = m.buildForm()
		return m, m.form.Init()
	}

	m.fieldErrs = nil
	m.submitting = true
	svc := m.svc
	title := req.Title
	return m, func() tea.Msg {
		_, err := svc.CreateNotification(context.Background(), req)
		return submitResultMsg{title: title, err: err}
	}
}

// View renders the compose form.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var b strings.Builder
	b.WriteString(titleStyle.Render("New Notification"))
	b.WriteString("\n")

	if m.submitErr != nil {
		b.WriteString(theme.ErrorStyle.Render("Send failed: " + m.submitErr.Error()))
		b.WriteString("\n")
	}
	for _, field := range []string{"title", "description", "targets"} {
		if msg, ok := m.fieldErrs[field]; ok {
			b.WriteString(theme.ErrorStyle.Render(msg))
			b.WriteString("\n")
		}
	}
	if m.loadErr != nil {
		b.WriteString(theme.ErrorStyle.Render(
			"Class list unavailable: " + m.loadErr.Error()))
		b.WriteString("\n")
	}

	if ts := m.builder.Targets(); len(ts) > 0 {
		badges := make([]string, len(ts))
		for i, t := range ts {
			badges[i] = theme.TargetBadgeStyle.Render(t.Label)
		}
		b.WriteString("Audience: " + strings.Join(badges, " "))
		b.WriteString("\n")
	}

	switch {
	case m.submitting:
		b.WriteString("\nSending...")
	case m.form == nil:
		b.WriteString("\nLoading classes...")
	default:
		b.WriteString("\n")
		b.WriteString(m.form.View())
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// buildForm assembles the huh form. Type-specific groups hide themselves
// when another target type is selected; the section select reloads its
// options whenever the bound class id changes.
func (m *Model) buildForm() *huh.Form {
	fb := m.fb
	svc := m.svc

	details := huh.NewGroup(
		huh.NewInput().
			Title("Title").
			Placeholder("What should recipients see?").
			Value(&fb.title).
			Validate(validateRequired("Title")),
		huh.NewText().
			Title("Description").
			Placeholder("The notification body...").
			Value(&fb.description).
			Validate(validateRequired("Description")),
		huh.NewSelect[string]().
			Title("Audience type").
			Options(
				huh.NewOption("Whole school", string(model.TargetSchoolWide)),
				huh.NewOption("A class", string(model.TargetClass)),
				huh.NewOption("A class section", string(model.TargetClassSection)),
				huh.NewOption("Everyone with a role", string(model.TargetRole)),
			).
			Value(&fb.targetType),
	)

	classGroup := huh.NewGroup(
		huh.NewSelect[int64]().
			Title("Class").
			Options(m.classOptions()...).
			Value(&fb.classID),
	).WithHideFunc(func() bool {
		t := model.TargetType(fb.targetType)
		return t != model.TargetClass && t != model.TargetClassSection
	})

	sectionGroup := huh.NewGroup(
		huh.NewSelect[int64]().
			Title("Section").
			OptionsFunc(func() []huh.Option[int64] {
				if fb.classID == 0 {
					return nil
				}
				sections, err := svc.SectionsByClass(context.Background(), fb.classID)
				if err != nil {
					return nil
				}
				opts := make([]huh.Option[int64], len(sections))
				for i, s := range sections {
					opts[i] = huh.NewOption(s.Name, s.ID)
				}
				return opts
			}, &fb.classID).
			Value(&fb.sectionID),
	).WithHideFunc(func() bool {
		return model.TargetType(fb.targetType) != model.TargetClassSection
	})

	roleGroup := huh.NewGroup(
		huh.NewSelect[string]().
			Title("Role").
			Options(
				huh.NewOption("Teachers", model.RoleTeacher),
				huh.NewOption("Students", model.RoleStudent),
				huh.NewOption("Staff", model.RoleStaff),
			).
			Value(&fb.role),
	).WithHideFunc(func() bool {
		return model.TargetType(fb.targetType) != model.TargetRole
	})

	confirm := huh.NewGroup(
		huh.NewConfirm().
			Title("Add another audience target?").
			Affirmative("Yes").
			Negative("No, send").
			Value(&fb.addAnother),
	)

	return huh.NewForm(details, classGroup, sectionGroup, roleGroup, confirm).
		WithWidth(m.formWidth()).
		WithHeight(m.formHeight())
}

func (m *Model) classNameByID(id int64) string {
	for _, c := range m.classes {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func (m *Model) classOptions() []huh.Option[int64] {
	opts := make([]huh.Option[int64], len(m.classes))
	for i, c := range m.classes {
		opts[i] = huh.NewOption(c.Name, c.ID)
	}
	return opts
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 8
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
