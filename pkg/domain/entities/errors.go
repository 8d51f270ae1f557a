package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormulation is returned for a formulation with a non-positive reference batch size
	// or a malformed ratio table
	ErrInvalidFormulation = errors.New("invalid formulation")
	// ErrUnknownMaterial is returned when a formulation or snapshot names a material with no master record
	ErrUnknownMaterial = errors.New("unknown material")
	// ErrInvalidMaterialReference is returned when a requirement reaches the planner for a material
	// with no master record
	ErrInvalidMaterialReference = errors.New("invalid material reference")
)

// FormulationError identifies the formulation that made a run fail
type FormulationError struct {
	FormulationID FormulationID
	Reason        string
}

func (e *FormulationError) Error() string {
	return fmt.Sprintf("invalid formulation %s: %s", e.FormulationID, e.Reason)
}

func (e *FormulationError) Unwrap() error {
	return ErrInvalidFormulation
}

// MaterialReferenceError identifies an unresolved material code and where it was referenced
type MaterialReferenceError struct {
	MaterialCode MaterialCode
	Source       string
	Err          error
}

func (e *MaterialReferenceError) Error() string {
	return fmt.Sprintf("%s: material %s referenced by %s", e.Err, e.MaterialCode, e.Source)
}

func (e *MaterialReferenceError) Unwrap() error {
	return e.Err
}

// NewUnknownMaterialError reports a code referenced by a formulation or stock snapshot
func NewUnknownMaterialError(code MaterialCode, source string) *MaterialReferenceError {
	return &MaterialReferenceError{MaterialCode: code, Source: source, Err: ErrUnknownMaterial}
}

// NewInvalidMaterialReferenceError reports a code referenced by a requirement
func NewInvalidMaterialReferenceError(code MaterialCode, source string) *MaterialReferenceError {
	return &MaterialReferenceError{MaterialCode: code, Source: source, Err: ErrInvalidMaterialReference}
}
