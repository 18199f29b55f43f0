package roster

import (
	"fmt"

	"github.com/arnavshah/roster-planner-go/pkg/dates"
	"github.com/arnavshah/roster-planner-go/pkg/models"
)

// ValidateSnapshot lists problems in an inbound snapshot. The list is advisory:
// FromSnapshot accepts any snapshot and drops what it cannot use.
func ValidateSnapshot(snap models.Snapshot) []string {
	var problems []string

	rowIDs := make(map[string]bool, len(snap.Rows))
	for _, r := range snap.Rows {
		if r.ID == "" {
			problems = append(problems, "row with empty id")
			continue
		}
		if rowIDs[r.ID] {
			problems = append(problems, "duplicate row ID: "+r.ID)
		}
		rowIDs[r.ID] = true
		if r.Kind != models.RowKindClass && r.Kind != models.RowKindPool {
			problems = append(problems, fmt.Sprintf("row %s has unknown kind %q", r.ID, r.Kind))
		}
		if r.Kind == models.RowKindClass && (r.StartTime != "" || r.EndTime != "") {
			if _, ok := dates.BuildShiftInterval(r); !ok {
				problems = append(problems, fmt.Sprintf("row %s has an unusable shift window %s-%s", r.ID, r.StartTime, r.EndTime))
			}
		}
	}

	clinicianIDs := make(map[string]bool, len(snap.Clinicians))
	for _, c := range snap.Clinicians {
		if c.ID == "" {
			problems = append(problems, "clinician with empty id")
			continue
		}
		if clinicianIDs[c.ID] {
			problems = append(problems, "duplicate clinician ID: "+c.ID)
		}
		clinicianIDs[c.ID] = true
		for _, iv := range c.Vacations {
			_, okStart := dates.ParseISODate(iv.StartISO)
			_, okEnd := dates.ParseISODate(iv.EndISO)
			if !okStart || !okEnd || iv.StartISO > iv.EndISO {
				problems = append(problems, fmt.Sprintf("clinician %s has an invalid vacation %s..%s", c.ID, iv.StartISO, iv.EndISO))
			}
		}
	}

	for _, a := range snap.Assignments {
		if _, ok := dates.ParseISODate(a.DateISO); !ok {
			problems = append(problems, fmt.Sprintf("assignment %s has malformed date %q", a.ID, a.DateISO))
		}
		if !rowIDs[a.RowID] && !isDistinguishedPoolID(a.RowID) {
			problems = append(problems, fmt.Sprintf("assignment %s references unknown row %s", a.ID, a.RowID))
		}
		if !clinicianIDs[a.ClinicianID] {
			problems = append(problems, fmt.Sprintf("assignment %s references unknown clinician %s", a.ID, a.ClinicianID))
		}
	}

	for _, h := range snap.Holidays {
		if _, ok := dates.ParseISODate(h); !ok {
			problems = append(problems, fmt.Sprintf("malformed holiday %q", h))
		}
	}
	return problems
}

func isDistinguishedPoolID(id string) bool {
	return id == models.UnassignedPoolID || id == models.VacationPoolID || id == models.RestDayPoolID
}
