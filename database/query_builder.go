package database

import (
	"fmt"
	"strings"

	"issuetracker/models"
)

const (
	columnSeq        = "seq"
	columnID         = "id"
	columnProject    = "project"
	columnIssueTitle = "issue_title"
	columnIssueText  = "issue_text"
	columnCreatedBy  = "created_by"
	columnAssignedTo = "assigned_to"
	columnStatusText = "status_text"
	columnOpen       = "open"
	columnCreatedOn  = "created_on"
	columnUpdatedOn  = "updated_on"
)

// issueColumns is the SELECT list, in scan order.
var issueColumns = []string{
	columnID, columnProject, columnIssueTitle, columnIssueText, columnCreatedBy,
	columnAssignedTo, columnStatusText, columnOpen, columnCreatedOn, columnUpdatedOn,
}

// columnByField is the only path from a client-supplied field name to SQL.
var columnByField = map[string]string{
	models.FieldID:         columnID,
	models.FieldProject:    columnProject,
	models.FieldIssueTitle: columnIssueTitle,
	models.FieldIssueText:  columnIssueText,
	models.FieldCreatedBy:  columnCreatedBy,
	models.FieldAssignedTo: columnAssignedTo,
	models.FieldStatusText: columnStatusText,
	models.FieldOpen:       columnOpen,
	models.FieldCreatedOn:  columnCreatedOn,
	models.FieldUpdatedOn:  columnUpdatedOn,
}

// QueryBuilder helps build SET and WHERE clauses safely. Placeholders are
// numbered in the order values are added, so add SET values before
// conditions when building an UPDATE.
type QueryBuilder struct {
	assignments []string
	conditions  []string
	args        []interface{}
	argCount    int
}

func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{
		assignments: []string{},
		conditions:  []string{},
		args:        []interface{}{},
		argCount:    1,
	}
}

func (qb *QueryBuilder) AddCondition(column string, value interface{}) {
	qb.conditions = append(qb.conditions, fmt.Sprintf("%s = $%d", column, qb.argCount))
	qb.args = append(qb.args, value)
	qb.argCount++
}

func (qb *QueryBuilder) AddAssignment(column string, value interface{}) {
	qb.assignments = append(qb.assignments, fmt.Sprintf("%s = $%d", column, qb.argCount))
	qb.args = append(qb.args, value)
	qb.argCount++
}

// AddFieldCondition adds an equality condition on a wire field name.
func (qb *QueryBuilder) AddFieldCondition(field models.Field) error {
	column, ok := columnByField[field.Name]
	if !ok {
		return fmt.Errorf("unknown filter field %q", field.Name)
	}
	qb.AddCondition(column, sqlValue(field.Value))
	return nil
}

// AddFieldAssignment adds a SET entry for a wire field name.
func (qb *QueryBuilder) AddFieldAssignment(field models.Field) error {
	column, ok := columnByField[field.Name]
	if !ok {
		return fmt.Errorf("unknown update field %q", field.Name)
	}
	qb.AddAssignment(column, sqlValue(field.Value))
	return nil
}

func (qb *QueryBuilder) WhereClause() string {
	if len(qb.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(qb.conditions, " AND ")
}

func (qb *QueryBuilder) SetClause() string {
	if len(qb.assignments) == 0 {
		return ""
	}
	return "SET " + strings.Join(qb.assignments, ", ")
}

func (qb *QueryBuilder) Args() []interface{} {
	return qb.args
}
