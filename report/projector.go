package report

import (
	"slices"
	"strings"
)

// Technician is one distinct (staff id, trimmed name) identity and the
// rendered actions it was assigned to, in first-seen order.
type Technician struct {
	StaffID   string
	Name      string
	ActionIDs []int64
}

// Projection is the flattened, filtered view of a snapshot. Actions are in
// canonical order: finding order, then action order within each finding.
type Projection struct {
	Findings    []Finding
	Actions     []Action
	SpareParts  []SparePart
	Technicians []Technician
}

type technicianKey struct {
	staffID string
	name    string
}

// Project flattens the snapshot hierarchy. It is a pure function of its input.
func Project(s *Snapshot) Projection {
	var p Projection

	for _, f := range s.Findings {
		if strings.TrimSpace(f.Description) == "" {
			continue
		}
		p.Findings = append(p.Findings, f)
	}

	for _, f := range p.Findings {
		for _, a := range f.Actions {
			if a.ID == 0 || strings.TrimSpace(a.Description) == "" {
				continue
			}
			p.Actions = append(p.Actions, a)
		}
	}

	for _, a := range p.Actions {
		for _, sp := range a.SpareParts {
			if sp.ID == 0 || strings.TrimSpace(sp.PartName) == "" {
				continue
			}
			p.SpareParts = append(p.SpareParts, sp)
		}
	}

	p.Technicians = projectTechnicians(p.Actions, s.Assignments)
	return p
}

func projectTechnicians(actions []Action, assignments []TechnicianAssignment) []Technician {
	byAction := make(map[int64][]TechnicianAssignment)
	for _, as := range assignments {
		byAction[as.ActionID] = append(byAction[as.ActionID], as)
	}

	index := make(map[technicianKey]int)
	var techs []Technician
	for _, a := range actions {
		for _, as := range byAction[a.ID] {
			name := strings.TrimSpace(as.Name)
			if name == "" {
				continue
			}
			key := technicianKey{staffID: as.StaffID, name: name}
			i, ok := index[key]
			if !ok {
				i = len(techs)
				index[key] = i
				techs = append(techs, Technician{StaffID: as.StaffID, Name: name})
			}
			if !slices.Contains(techs[i].ActionIDs, a.ID) {
				techs[i].ActionIDs = append(techs[i].ActionIDs, a.ID)
			}
		}
	}
	return techs
}
