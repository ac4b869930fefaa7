package model

import "fmt"

// TargetType identifies the audience variant of a notification target.
type TargetType string

const (
	TargetSchoolWide   TargetType = "school_wide"
	TargetClass        TargetType = "class"
	TargetClassSection TargetType = "class_section"
	TargetRole         TargetType = "role"
)

// Roles accepted by the role target variant.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
	RoleStaff   = "staff"
)

// Target is one audience-selection unit. It is composed client-side before
// sending and also returned by the server on sent records. Exactly one of
// {nothing, ClassID, ClassID+SectionID, Role} is populated, consistent with
// Type.
type Target struct {
	Type      TargetType `json:"target_type"`
	ClassID   int64      `json:"class_id,omitempty"`
	SectionID int64      `json:"section_id,omitempty"`
	Role      string     `json:"role,omitempty"`

	// Label is the display string computed client-side. Never sent to the
	// server.
	Label string `json:"-"`
}

// Validate checks the variant invariant: the fields required by Type are set
// and fields belonging to other variants are zero.
func (t Target) Validate() error {
	switch t.Type {
	case TargetSchoolWide:
		if t.ClassID != 0 || t.SectionID != 0 || t.Role != "" {
			return fmt.Errorf("school_wide target must not carry class/section/role")
		}
	case TargetClass:
		if t.ClassID == 0 {
			return fmt.Errorf("class target requires class_id")
		}
		if t.SectionID != 0 || t.Role != "" {
			return fmt.Errorf("class target must not carry section/role")
		}
	case TargetClassSection:
		if t.ClassID == 0 || t.SectionID == 0 {
			return fmt.Errorf("class_section target requires class_id and section_id")
		}
		if t.Role != "" {
			return fmt.Errorf("class_section target must not carry role")
		}
	case TargetRole:
		if t.Role == "" {
			return fmt.Errorf("role target requires role")
		}
		if t.ClassID != 0 || t.SectionID != 0 {
			return fmt.Errorf("role target must not carry class/section")
		}
		switch t.Role {
		case RoleTeacher, RoleStudent, RoleStaff:
		default:
			return fmt.Errorf("unknown role %q", t.Role)
		}
	default:
		return fmt.Errorf("unknown target type %q", t.Type)
	}
	return nil
}

// Equal reports structural equality: same type and same class/section/role.
// Labels are display-only and ignored. Used for de-duplication in the
// audience builder.
func (t Target) Equal(other Target) bool {
	return t.Type == other.Type &&
		t.ClassID == other.ClassID &&
		t.SectionID == other.SectionID &&
		t.Role == other.Role
}

// Class is a school class as returned by the class-list endpoint, used to
// populate the audience builder.
type Class struct {
	ID   int64  `json:"class_id"`
	Name string `json:"class_name"`
}

// Section is a class section as returned by the sections endpoint.
type Section struct {
	ID      int64  `json:"section_id"`
	ClassID int64  `json:"class_id"`
	Name    string `json:"section_name"`
}
