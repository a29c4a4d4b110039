package repository

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Common repository errors
var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrListNotFound     = errors.New("list not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrReportNotFound   = errors.New("report not found")
	ErrFormNotFound     = errors.New("form not found")
)

// jsonb renders v as a jsonb literal usable in map updates and expressions.
func jsonb(v any) (clause.Expr, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return clause.Expr{}, err
	}
	return gorm.Expr("?::jsonb", string(b)), nil
}

// appendJSONB appends one element to a jsonb array column.
func appendJSONB(column string, item any) (clause.Expr, error) {
	b, err := json.Marshal([]any{item})
	if err != nil {
		return clause.Expr{}, err
	}
	return gorm.Expr(column+" || ?::jsonb", string(b)), nil
}
