package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field names as they appear on the wire and in the document store.
const (
	FieldID         = "_id"
	FieldProject    = "project"
	FieldIssueTitle = "issue_title"
	FieldIssueText  = "issue_text"
	FieldCreatedBy  = "created_by"
	FieldAssignedTo = "assigned_to"
	FieldStatusText = "status_text"
	FieldOpen       = "open"
	FieldCreatedOn  = "created_on"
	FieldUpdatedOn  = "updated_on"
)

// FilterableFields lists the query parameters GET accepts as equality filters.
var FilterableFields = []string{
	FieldID,
	FieldIssueTitle,
	FieldIssueText,
	FieldCreatedBy,
	FieldAssignedTo,
	FieldStatusText,
	FieldOpen,
	FieldCreatedOn,
	FieldUpdatedOn,
}

// MutableFields lists the fields an update may change. updated_on is
// maintained by the handler and is not client-settable.
var MutableFields = []string{
	FieldIssueTitle,
	FieldIssueText,
	FieldCreatedBy,
	FieldAssignedTo,
	FieldStatusText,
	FieldOpen,
}

// Issue is one reported issue. It belongs to exactly one project for its
// whole lifetime.
type Issue struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id" db:"id"`
	Project    string             `json:"project" bson:"project" db:"project"`
	IssueTitle string             `json:"issue_title" bson:"issue_title" db:"issue_title"`
	IssueText  string             `json:"issue_text" bson:"issue_text" db:"issue_text"`
	CreatedBy  string             `json:"created_by" bson:"created_by" db:"created_by"`
	AssignedTo string             `json:"assigned_to" bson:"assigned_to" db:"assigned_to"`
	StatusText string             `json:"status_text" bson:"status_text" db:"status_text"`
	Open       bool               `json:"open" bson:"open" db:"open"`
	CreatedOn  time.Time          `json:"created_on" bson:"created_on" db:"created_on"`
	UpdatedOn  time.Time          `json:"updated_on" bson:"updated_on" db:"updated_on"`
}

// Field is a single name/value pair used by filters and updates.
type Field struct {
	Name  string
	Value any
}

// Get returns the value stored under a wire field name.
func (i *Issue) Get(name string) (any, bool) {
	switch name {
	case FieldID:
		return i.ID, true
	case FieldProject:
		return i.Project, true
	case FieldIssueTitle:
		return i.IssueTitle, true
	case FieldIssueText:
		return i.IssueText, true
	case FieldCreatedBy:
		return i.CreatedBy, true
	case FieldAssignedTo:
		return i.AssignedTo, true
	case FieldStatusText:
		return i.StatusText, true
	case FieldOpen:
		return i.Open, true
	case FieldCreatedOn:
		return i.CreatedOn, true
	case FieldUpdatedOn:
		return i.UpdatedOn, true
	}
	return nil, false
}

// Set assigns a mutable field (or updated_on). It refuses identity fields
// and values of the wrong type.
func (i *Issue) Set(name string, value any) error {
	switch name {
	case FieldIssueTitle, FieldIssueText, FieldCreatedBy, FieldAssignedTo, FieldStatusText:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %s expects a string, got %T", name, value)
		}
		switch name {
		case FieldIssueTitle:
			i.IssueTitle = s
		case FieldIssueText:
			i.IssueText = s
		case FieldCreatedBy:
			i.CreatedBy = s
		case FieldAssignedTo:
			i.AssignedTo = s
		case FieldStatusText:
			i.StatusText = s
		}
	case FieldOpen:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("field %s expects a bool, got %T", name, value)
		}
		i.Open = b
	case FieldUpdatedOn:
		t, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("field %s expects a time, got %T", name, value)
		}
		i.UpdatedOn = t
	default:
		return fmt.Errorf("field %s is not mutable", name)
	}
	return nil
}

// ParseFieldValue converts a raw query-string value into the Go type stored
// for that field.
func ParseFieldValue(name, raw string) (any, error) {
	switch name {
	case FieldID:
		return primitive.ObjectIDFromHex(raw)
	case FieldOpen:
		return strconv.ParseBool(raw)
	case FieldCreatedOn, FieldUpdatedOn:
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	case FieldProject, FieldIssueTitle, FieldIssueText, FieldCreatedBy, FieldAssignedTo, FieldStatusText:
		return raw, nil
	}
	return nil, fmt.Errorf("unknown field %q", name)
}

// CreateIssueRequest is the POST payload. Bound from JSON or form bodies.
type CreateIssueRequest struct {
	IssueTitle string `json:"issue_title" form:"issue_title" binding:"required"`
	IssueText  string `json:"issue_text" form:"issue_text" binding:"required"`
	CreatedBy  string `json:"created_by" form:"created_by" binding:"required"`
	AssignedTo string `json:"assigned_to" form:"assigned_to"`
	StatusText string `json:"status_text" form:"status_text"`
}

// UpdateIssueRequest is the PUT payload. Pointer fields distinguish an
// absent field from one sent empty.
type UpdateIssueRequest struct {
	ID         string       `json:"_id" form:"_id"`
	IssueTitle *string      `json:"issue_title" form:"issue_title"`
	IssueText  *string      `json:"issue_text" form:"issue_text"`
	CreatedBy  *string      `json:"created_by" form:"created_by"`
	AssignedTo *string      `json:"assigned_to" form:"assigned_to"`
	StatusText *string      `json:"status_text" form:"status_text"`
	Open       OptionalBool `json:"open" form:"open"`
}

// OptionalBool binds a boolean sent as a JSON bool, a JSON string or a form
// value. Null and empty values leave it unset.
type OptionalBool struct {
	Value bool `form:"-"`
	Valid bool `form:"-"`
}

func NewOptionalBool(v bool) OptionalBool {
	return OptionalBool{Value: v, Valid: true}
}

func (b *OptionalBool) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = OptionalBool{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return b.UnmarshalParam(s)
	}

	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*b = NewOptionalBool(v)
	return nil
}

// UnmarshalParam is used by gin's form binding.
func (b *OptionalBool) UnmarshalParam(param string) error {
	if param == "" {
		*b = OptionalBool{}
		return nil
	}
	v, err := strconv.ParseBool(param)
	if err != nil {
		return fmt.Errorf("invalid boolean %q: %w", param, err)
	}
	*b = NewOptionalBool(v)
	return nil
}

// Changes returns the fields this request actually changes. Empty values
// mean "leave as is" and are dropped.
func (r UpdateIssueRequest) Changes() []Field {
	var changes []Field
	addString := func(name string, v *string) {
		if v != nil && *v != "" {
			changes = append(changes, Field{Name: name, Value: *v})
		}
	}

	addString(FieldIssueTitle, r.IssueTitle)
	addString(FieldIssueText, r.IssueText)
	addString(FieldCreatedBy, r.CreatedBy)
	addString(FieldAssignedTo, r.AssignedTo)
	addString(FieldStatusText, r.StatusText)
	if r.Open.Valid {
		changes = append(changes, Field{Name: FieldOpen, Value: r.Open.Value})
	}

	return changes
}

// DeleteIssueRequest is the DELETE payload.
type DeleteIssueRequest struct {
	ID string `json:"_id" form:"_id"`
}

// ResultResponse confirms a successful update or delete.
type ResultResponse struct {
	Result string `json:"result"`
	ID     string `json:"_id"`
}

// ErrorResponse is the body of every failed request. ID and Project are
// echoed back only for the operations that identify a record or project.
type ErrorResponse struct {
	Error   string `json:"error"`
	ID      string `json:"_id,omitempty"`
	Project string `json:"project,omitempty"`
}
