// Copyright 2025, the fabdeploy authors.  All rights reserved.

package deploy

import (
	"github.com/fabdeploy/fabdeploy/pkg/resource"
	"github.com/fabdeploy/fabdeploy/pkg/util/contract"
)

// Plan captures what one run intends to deploy: the total order over every registered artifact,
// plus the subset actually selected for this run.  Plans are ephemeral; one is built per run.
type Plan struct {
	ordered  []resource.ID
	selected map[resource.ID]bool
}

// NewPlan builds a plan over the given total order with every artifact selected.
func NewPlan(ordered []resource.ID) *Plan {
	selected := make(map[resource.ID]bool, len(ordered))
	for _, id := range ordered {
		selected[id] = true
	}
	return &Plan{ordered: ordered, selected: selected}
}

// Select narrows the plan to the given IDs.  IDs not present in the order are ignored; selection
// never reorders anything.
func (p *Plan) Select(ids map[resource.ID]bool) {
	contract.Require(ids != nil, "ids")
	p.selected = make(map[resource.ID]bool, len(ids))
	for _, id := range p.ordered {
		if ids[id] {
			p.selected[id] = true
		}
	}
}

// SelectNone empties the selection; the plan becomes a no-op.
func (p *Plan) SelectNone() {
	p.selected = make(map[resource.ID]bool)
}

// IsSelected returns true if the given artifact is part of this run.
func (p *Plan) IsSelected(id resource.ID) bool {
	return p.selected[id]
}

// Ordered returns the full deployment order, selected or not.
func (p *Plan) Ordered() []resource.ID {
	return p.ordered
}

// Selected returns the selected artifacts in deployment order.
func (p *Plan) Selected() []resource.ID {
	out := make([]resource.ID, 0, len(p.selected))
	for _, id := range p.ordered {
		if p.selected[id] {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of selected artifacts.
func (p *Plan) Len() int {
	return len(p.selected)
}
