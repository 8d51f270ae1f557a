package validation

import (
	"fmt"
	"sort"

	"github.com/vsinha/batchplan/pkg/domain/entities"
)

// ValidationResult contains the results of master-data validation
type ValidationResult struct {
	MissingReferences []*entities.MaterialReferenceError
	DuplicateRatios   []DuplicateRatio
	Errors            []string
	Warnings          []string
}

// DuplicateRatio is a material listed more than once in one formulation's ratio table
type DuplicateRatio struct {
	FormulationID entities.FormulationID
	MaterialCode  entities.MaterialCode
	Lines         int
}

// HasErrors reports whether the masters cannot be used for a run
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Err returns the first structural problem found, or nil
func (r *ValidationResult) Err() error {
	if len(r.MissingReferences) > 0 {
		return r.MissingReferences[0]
	}
	return nil
}

// ValidateMasters checks that every formulation resolves against the material master.
// Repeated ratio lines are legal (they accumulate) and are reported as warnings.
func ValidateMasters(formulations []*entities.Formulation, materials *entities.MaterialSet) *ValidationResult {
	result := &ValidationResult{
		MissingReferences: make([]*entities.MaterialReferenceError, 0),
		DuplicateRatios:   make([]DuplicateRatio, 0),
		Errors:            make([]string, 0),
		Warnings:          make([]string, 0),
	}

	for _, f := range formulations {
		if f == nil {
			continue
		}
		source := fmt.Sprintf("formulation %s", f.ID)

		seen := make(map[entities.MaterialCode]int)
		var order []entities.MaterialCode
		for _, ratio := range f.Ratios {
			if seen[ratio.MaterialCode] == 0 {
				order = append(order, ratio.MaterialCode)
			}
			seen[ratio.MaterialCode]++
		}

		for _, code := range order {
			if !materials.Has(code) {
				result.addMissing(code, source)
			}
			if seen[code] > 1 {
				result.DuplicateRatios = append(result.DuplicateRatios, DuplicateRatio{
					FormulationID: f.ID,
					MaterialCode:  code,
					Lines:         seen[code],
				})
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("formulation %s lists %s on %d ratio lines", f.ID, code, seen[code]))
			}
		}

		if f.HasPackaging() && !materials.Has(f.PackagingCode) {
			result.addMissing(f.PackagingCode, source+" packaging")
		}
	}

	return result
}

// ValidateStock checks that every material listed in the snapshot exists in the master
func ValidateStock(snapshot *entities.StockSnapshot, materials *entities.MaterialSet) error {
	for _, code := range snapshot.Codes() {
		if !materials.Has(code) {
			return entities.NewInvalidMaterialReferenceError(code, fmt.Sprintf("stock snapshot %s", snapshot.Name))
		}
	}
	return nil
}

func (r *ValidationResult) addMissing(code entities.MaterialCode, source string) {
	err := entities.NewUnknownMaterialError(code, source)
	r.MissingReferences = append(r.MissingReferences, err)
	r.Errors = append(r.Errors, err.Error())
}

// ReactorConflict is a pair of batches occupying the same reactor on overlapping days
type ReactorConflict struct {
	Reactor string
	First   entities.BatchRef
	Second  entities.BatchRef
	Message string
}

// DetectReactorConflicts reports batches booked onto a reactor that is still running
// an earlier batch. A batch occupies its reactor from its date through its completion date.
// Conflicts are reported, never resolved.
func DetectReactorConflicts(batches []entities.Batch) []ReactorConflict {
	byReactor := make(map[string][]int)
	var reactors []string
	for i, b := range batches {
		if _, ok := byReactor[b.Reactor]; !ok {
			reactors = append(reactors, b.Reactor)
		}
		byReactor[b.Reactor] = append(byReactor[b.Reactor], i)
	}
	sort.Strings(reactors)

	conflicts := make([]ReactorConflict, 0)
	for _, reactor := range reactors {
		indexes := byReactor[reactor]
		sort.SliceStable(indexes, func(i, j int) bool {
			return batches[indexes[i]].Date.Before(batches[indexes[j]].Date)
		})

		// busy is the batch currently holding the reactor
		busy := -1
		for _, idx := range indexes {
			current := batches[idx]
			if busy >= 0 && !current.Date.After(batches[busy].CompletionDate()) {
				holder := batches[busy]
				conflicts = append(conflicts, ReactorConflict{
					Reactor: reactor,
					First:   holder.Ref(),
					Second:  current.Ref(),
					Message: fmt.Sprintf("reactor %s double-booked: %s on %s overlaps %s (%s to %s)",
						reactor,
						current.Label(),
						entities.FormatDate(current.Date),
						holder.Label(),
						entities.FormatDate(holder.Date),
						entities.FormatDate(holder.CompletionDate()),
					),
				})
			}
			if busy < 0 || current.CompletionDate().After(batches[busy].CompletionDate()) {
				busy = idx
			}
		}
	}

	return conflicts
}
