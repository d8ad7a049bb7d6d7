package orchestrator

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/orgfoundry/account-controller/common"
)

var validate = validator.New()

// ValidationError carries the rejection reason back to the portal so
// it can be shown to the requester verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// CreateAccountRequest is the account request form posted by the portal.
type CreateAccountRequest struct {
	Name              string `json:"name" validate:"min=1,max=50"`
	Email             string `json:"email" validate:"min=6,max=64"`
	Notes             string `json:"notes" validate:"max=256"`
	SpendCap          string `json:"spendcap"`
	ShareWithOrg      bool   `json:"sharewithorg"`
	ForwardingAddress string `json:"forwardingaddress"`
}

// Rejection reasons surfaced to the requester.
const (
	ReasonBadName  = "account name must be between 1 and 50 characters"
	ReasonBadEmail = "account email must be between 6 and 64 characters"
	ReasonBadNotes = "notes may only contain letters, digits, spaces and .:+=@_/- up to 256 characters"
)

// Validate checks the form, returning a human-readable reason when the
// request must be rejected.
func (r *CreateAccountRequest) Validate(spendCapCeiling float64) (string, bool) {
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return "invalid request", false
		}

		switch fieldErrs[0].Field() {
		case "Name":
			return ReasonBadName, false
		case "Email":
			return ReasonBadEmail, false
		default:
			return ReasonBadNotes, false
		}
	}

	if !common.IsSafeText(r.Notes) {
		return ReasonBadNotes, false
	}

	if r.SpendCap != "" {
		value, err := strconv.ParseFloat(r.SpendCap, 64)
		if err != nil || value <= 0 || value > spendCapCeiling {
			return fmt.Sprintf("spend cap must be a number greater than 0 and at most %.0f", spendCapCeiling), false
		}
	}

	return "", true
}
