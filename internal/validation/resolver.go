package validation

import (
	"strings"

	"github.com/evalify/evalify-sub003/internal/types"
)

// ResolveReferences fills in the row's persisted identifiers from the index.
// Steps run in a fixed order:
//
//  1. org-unit from the semester name's code (a miss blocks step 2)
//  2. semester by name; a miss marks the row for semester creation
//  3. instructors, with every miss reported in one error
//  4. batches, the same way
//
// A reference repeated in its cell (in any letter case) resolves once; the
// id lists keep first-occurrence order.
//
// The index is only read, so the outcome for a row does not depend on the
// other rows.
func ResolveReferences(row *types.CandidateRow, sem SemesterName, idx *LookupIndex) {
	resolveSemester(row, sem, idx)

	row.InstructorIDs = row.InstructorIDs[:0]
	var missingInstructors []string
	seen := make(map[string]bool, len(row.InstructorRefs))
	for _, ref := range row.InstructorRefs {
		f, ok := idx.Faculty(ref)
		if !ok {
			missingInstructors = appendUnique(missingInstructors, ref)
			continue
		}
		if !seen[f.ID] {
			seen[f.ID] = true
			row.InstructorIDs = append(row.InstructorIDs, f.ID)
		}
	}
	if len(missingInstructors) > 0 {
		row.AddError(types.ErrorKindReference, "Instructors not found: %s", strings.Join(missingInstructors, ", "))
	}

	row.BatchIDs = row.BatchIDs[:0]
	var missingBatches []string
	seen = make(map[string]bool, len(row.BatchRefs))
	for _, ref := range row.BatchRefs {
		b, ok := idx.Batch(ref)
		if !ok {
			missingBatches = appendUnique(missingBatches, ref)
			continue
		}
		if !seen[b.ID] {
			seen[b.ID] = true
			row.BatchIDs = append(row.BatchIDs, b.ID)
		}
	}
	if len(missingBatches) > 0 {
		row.AddError(types.ErrorKindReference, "Batches not found: %s", strings.Join(missingBatches, ", "))
	}
}

func resolveSemester(row *types.CandidateRow, sem SemesterName, idx *LookupIndex) {
	if !sem.Matched {
		return
	}

	orgUnit, ok := idx.OrgUnit(sem.OrgUnitCode)
	if !ok {
		row.AddError(types.ErrorKindReference, "Org unit not found for code %q", sem.OrgUnitCode)
		return
	}
	row.OrgUnitID = orgUnit.ID

	existing, ok := idx.Semester(row.SemesterName)
	if !ok {
		row.NeedsSemesterCreation = true
		row.Semester = types.PendingSemesterRef(types.NewPendingSemesterKey(row.SemesterName, orgUnit.ID))
		return
	}
	if existing.OrgUnitID != orgUnit.ID {
		row.AddError(types.ErrorKindReference,
			"Semester %q exists under a different org unit than %s (%s)",
			existing.Name, orgUnit.Name, sem.OrgUnitCode)
		return
	}
	row.Semester = types.PersistedSemester(existing.ID)
}

// appendUnique appends ref unless an entry equal to it ignoring case is
// already present.
func appendUnique(refs []string, ref string) []string {
	for _, r := range refs {
		if strings.EqualFold(r, ref) {
			return refs
		}
	}
	return append(refs, ref)
}
