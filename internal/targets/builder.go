package targets

import (
	"errors"
	"strings"

	"github.com/nhle/school-notify/internal/api"
	"github.com/nhle/school-notify/internal/model"
)

// ErrIncomplete is returned by Add when the current selection is missing a
// field required by the selected target type.
var ErrIncomplete = errors.New("target selection incomplete")

// ErrDuplicate is returned by Add when a structurally equal target is
// already in the list. Views treat it as a silent no-op.
var ErrDuplicate = errors.New("target already added")

// Builder composes the audience for a new notification. It is a small
// state machine over four mutually exclusive target types; switching type
// clears all type-specific selections so stale cross-type data can never
// leak into a built target.
type Builder struct {
	selectedType model.TargetType
	classID      int64
	className    string
	sectionID    int64
	sectionName  string
	role         string
	targets      []model.Target
}

// NewBuilder creates a builder with school_wide preselected.
func NewBuilder() *Builder {
	return &Builder{selectedType: model.TargetSchoolWide}
}

// SelectedType returns the currently selected target type.
func (b *Builder) SelectedType() model.TargetType {
	return b.selectedType
}

// SetType switches the selected target type, clearing class, section, and
// role selections.
func (b *Builder) SetType(t model.TargetType) {
	if t == b.selectedType {
		return
	}
	b.selectedType = t
	b.classID = 0
	b.className = ""
	b.sectionID = 0
	b.sectionName = ""
	b.role = ""
}

// SetClass records the chosen class. Changing class clears any previously
// chosen section; the view refetches the section list afterwards.
func (b *Builder) SetClass(id int64, name string) {
	if id == b.classID {
		return
	}
	b.classID = id
	b.className = name
	b.sectionID = 0
	b.sectionName = ""
}

// SetSection records the chosen section within the current class.
func (b *Builder) SetSection(id int64, name string) {
	b.sectionID = id
	b.sectionName = name
}

// SetRole records the chosen role.
func (b *Builder) SetRole(role string) {
	b.role = role
}

// Add builds a target from the current selection and appends it.
// Returns ErrIncomplete when required fields are missing and ErrDuplicate
// when an equivalent target (same type + class/section/role) already
// exists; in both cases the list is unchanged.
func (b *Builder) Add() error {
	candidate, ok := b.candidate()
	if !ok {
		return ErrIncomplete
	}

	for _, existing := range b.targets {
		if existing.Equal(candidate) {
			return ErrDuplicate
		}
	}

	b.targets = append(b.targets, candidate)
	return nil
}

// candidate assembles a target for the current selection, reporting
// whether the selection is complete.
func (b *Builder) candidate() (model.Target, bool) {
	var t model.Target

	switch b.selectedType {
	case model.TargetSchoolWide:
		t = model.Target{Type: model.TargetSchoolWide}
	case model.TargetClass:
		if b.classID == 0 {
			return model.Target{}, false
		}
		t = model.Target{Type: model.TargetClass, ClassID: b.classID}
	case model.TargetClassSection:
		if b.classID == 0 || b.sectionID == 0 {
			return model.Target{}, false
		}
		t = model.Target{
			Type:      model.TargetClassSection,
			ClassID:   b.classID,
			SectionID: b.sectionID,
		}
	case model.TargetRole:
		if b.role == "" {
			return model.Target{}, false
		}
		t = model.Target{Type: model.TargetRole, Role: b.role}
	default:
		return model.Target{}, false
	}

	t.Label = api.TargetLabel(t, b.className, b.sectionName)
	return t, true
}

// Remove deletes the target at index i. Out-of-range indexes are ignored.
func (b *Builder) Remove(i int) {
	if i < 0 || i >= len(b.targets) {
		return
	}
	b.targets = append(b.targets[:i], b.targets[i+1:]...)
}

// Targets returns a copy of the composed target list.
func (b *Builder) Targets() []model.Target {
	out := make([]model.Target, len(b.targets))
	copy(out, b.targets)
	return out
}

// Reset clears the whole builder back to its initial state.
func (b *Builder) Reset() {
	*b = Builder{selectedType: model.TargetSchoolWide}
}

// BuildPayload validates the form and assembles the create request.
// Field-level errors come back keyed by field name; a nil map means the
// payload is ready to send.
//
// An empty audience list is never sent: zero explicit targets with
// school_wide selected collapses to a single implicit school_wide target,
// meaning "everyone". Any other type with zero targets is a validation
// error.
func (b *Builder) BuildPayload(title, description string) (api.CreateNotificationRequest, map[string]string) {
	fieldErrs := make(map[string]string)

	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	if title == "" {
		fieldErrs["title"] = "Title is required"
	}
	if description == "" {
		fieldErrs["description"] = "Description is required"
	}

	ts := b.Targets()
	if len(ts) == 0 {
		if b.selectedType == model.TargetSchoolWide {
			ts = []model.Target{{
				Type:  model.TargetSchoolWide,
				Label: api.TargetLabel(model.Target{Type: model.TargetSchoolWide}, "", ""),
			}}
		} else {
			fieldErrs["targets"] = "Please add at least one target recipient"
		}
	}

	if len(fieldErrs) > 0 {
		return api.CreateNotificationRequest{}, fieldErrs
	}

	return api.CreateNotificationRequest{
		Title:       title,
		Description: description,
		Targets:     ts,
	}, nil
}
