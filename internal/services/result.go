package services

import (
	"errors"
	"fmt"
)

// Remote step names reported in a Result.
const (
	StepReadPhoto   = "read_photo"
	StepUploadPhoto = "upload_photo"
	StepInsertRow   = "insert_row"
	StepSelectRows  = "select_rows"
	StepUpdateRow   = "update_row"
	StepDeleteRow   = "delete_row"
	StepDeletePhoto = "delete_photo"
	StepSignIn      = "sign_in"
	StepSignOut     = "sign_out"
)

// StepResult is the outcome of one remote step. Err is nil on success.
type StepResult struct {
	Name string
	Err  error
}

// Result lists the remote steps an operation attempted. Remote failures never undo
// local effects, so a Result with failures still describes a completed operation.
type Result struct {
	Op    string
	Steps []StepResult
}

func (r *Result) record(step string, err error) {
	r.Steps = append(r.Steps, StepResult{Name: step, Err: err})
}

// OK reports whether every attempted step succeeded.
func (r Result) OK() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return false
		}
	}
	return true
}

// Err joins the errors of failed steps, nil when OK.
func (r Result) Err() error {
	var errs []error
	for _, s := range r.Steps {
		if s.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, s.Err))
		}
	}
	return errors.Join(errs...)
}

func (r Result) Failed(step string) bool {
	for _, s := range r.Steps {
		if s.Name == step && s.Err != nil {
			return true
		}
	}
	return false
}

// Ran reports whether step was attempted.
func (r Result) Ran(step string) bool {
	for _, s := range r.Steps {
		if s.Name == step {
			return true
		}
	}
	return false
}
