/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package slots

// SlotView is one slot as seen by a particular identity. Name is only ever
// filled in for the slot that identity holds.
type SlotView struct {
	Index        int    `json:"index"`
	Taken        bool   `json:"taken"`
	TakenByOther bool   `json:"taken_by_other"`
	TakenByMe    bool   `json:"taken_by_me"`
	Protected    bool   `json:"protected"`
	Name         string `json:"name,omitempty"`
}

// Status is the whole board as seen by one identity.
type Status struct {
	Slots   []SlotView `json:"slots"`
	MyPick  *int       `json:"my_pick"`
	Version uint64     `json:"version"`
}

type Projector struct {
	registry *Registry
	ledger   *Ledger
}

func NewProjector(registry *Registry, ledger *Ledger) *Projector {
	return &Projector{
		registry: registry,
		ledger:   ledger,
	}
}

// Project has no side effects and reads the ledger once.
func (p *Projector) Project(id Identity) Status {
	snap := p.ledger.Snapshot()

	st := Status{
		Slots:   make([]SlotView, 0, p.registry.Count()),
		Version: snap.Version,
	}

	for _, s := range p.registry.All() {
		v := SlotView{
			Index:     s.Index,
			Protected: s.Protected(),
		}

		if c, ok := snap.Holders[s.Index]; ok {
			v.Taken = true

			if id != "" && c.Owner == id {
				v.TakenByMe = true
				v.Name = s.Name

				idx := s.Index
				st.MyPick = &idx
			} else {
				v.TakenByOther = true
			}
		}

		st.Slots = append(st.Slots, v)
	}

	return st
}
