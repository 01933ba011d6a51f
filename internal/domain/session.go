package domain

import (
	"time"

	"github.com/google/uuid"
)

// Step is the current position of a dialog session in the ticket-creation flow.
type Step string

const (
	StepTitle        Step = "title"
	StepDescription  Step = "description"
	StepDepartment   Step = "department"
	StepUrgency      Step = "urgency"
	StepContactName  Step = "contact_name"
	StepContactPhone Step = "contact_phone"
	StepConfirm      Step = "confirm"
)

// Field keys stored in DialogSession.Fields.
const (
	FieldTitle          = "title"
	FieldDescription    = "description"
	FieldDepartmentID   = "department_id"
	FieldDepartmentName = "department_name"
	FieldUrgency        = "urgency"
	FieldContactName    = "contact_name"
	FieldContactPhone   = "contact_phone"
)

// DialogSession is one in-progress ticket dialog. At most one non-expired
// session exists per external user id.
type DialogSession struct {
	ID             uuid.UUID
	ExternalUserID string
	UserID         int64
	Step           Step
	Fields         map[string]any
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      time.Time
}

func (s *DialogSession) SetField(key string, value any) {
	if s.Fields == nil {
		s.Fields = map[string]any{}
	}
	s.Fields[key] = value
}

// StringField returns the field as a string, empty when absent or not a string.
func (s *DialogSession) StringField(key string) string {
	v, ok := s.Fields[key].(string)
	if !ok {
		return ""
	}
	return v
}

// Int64Field tolerates both int64 and float64 (JSONB numbers decode as float64).
func (s *DialogSession) Int64Field(key string) int64 {
	switch v := s.Fields[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}

func (s *DialogSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
