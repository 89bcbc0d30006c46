package dashboard

import "fmt"

// Tabs tracks which tab is active. At most one is active at any time; exactly
// one once any tab exists.
type Tabs struct {
	ids    []string
	active int
}

// NewTabs activates the first id.
func NewTabs(ids ...string) *Tabs {
	t := &Tabs{ids: append([]string(nil), ids...), active: -1}
	if len(ids) > 0 {
		t.active = 0
	}
	return t
}

// Activate makes id the only active tab. Unknown ids leave the state unchanged.
func (t *Tabs) Activate(id string) error {
	for i, tid := range t.ids {
		if tid == id {
			t.active = i
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownTab, id)
}

// Active returns the active tab id, or "" when there are no tabs.
func (t *Tabs) Active() string {
	if t.active < 0 {
		return ""
	}
	return t.ids[t.active]
}

func (t *Tabs) IsActive(id string) bool {
	return t.active >= 0 && t.ids[t.active] == id
}

func (t *Tabs) IDs() []string {
	return append([]string(nil), t.ids...)
}
