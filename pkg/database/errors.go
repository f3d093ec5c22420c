package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
)

// SQLSTATE classes mapped to client errors
const (
	codeNotNull    pq.ErrorCode = "23502"
	codeForeignKey pq.ErrorCode = "23503"
	codeUnique     pq.ErrorCode = "23505"
	codeCheck      pq.ErrorCode = "23514"
)

// checkViolations maps CHECK constraint name fragments to the request field
// they guard
var checkViolations = []struct {
	fragment, field, problem string
}{
	{"quantity_positive", "quantity", "must be greater than 0"},
	{"rate_non_negative", "purchase_rate", "must not be negative"},
	{"mrp_non_negative", "mrp", "must not be negative"},
}

// uniqueViolations maps unique constraint name fragments to a message
var uniqueViolations = []struct {
	fragment, message string
}{
	{"suppliers_pharmacy_name", "a supplier with this name already exists"},
	{"purchases_invoice", "a purchase with this invoice number already exists for the supplier"},
}

// MapPQError turns a constraint violation into a client error. It returns
// nil for anything that is not one, leaving the caller to mask it as a 500.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case codeCheck:
		for _, v := range checkViolations {
			if strings.Contains(pqErr.Constraint, v.fragment) {
				return errors.InvalidField(v.field, v.problem)
			}
		}
		return errors.BadRequest("data validation failed: " + pqErr.Constraint)

	case codeUnique:
		for _, v := range uniqueViolations {
			if strings.Contains(pqErr.Constraint, v.fragment) {
				return errors.Conflict(v.message)
			}
		}
		return errors.Conflict("a record with these values already exists")

	case codeForeignKey:
		return errors.BadRequest("referenced record does not exist")

	case codeNotNull:
		column := pqErr.Column
		if column == "" {
			column = "required field"
		}
		return errors.InvalidField(column, "must not be empty")
	}
	return nil
}

// IsForeignKeyViolation reports whether err is a foreign key violation
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeForeignKey
}
