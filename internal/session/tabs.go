package session

import (
	"errors"

	"github.com/google/uuid"
	"github.com/sadopc/caltrack/internal/api"
)

var (
	ErrTabLimit      = errors.New("tab limit reached")
	ErrDuplicateName = errors.New("name already used by another tab")
	ErrUnknownTab    = errors.New("unknown tab")
	ErrNoCategories  = errors.New("no food categories available")
)

// TabState is the lifecycle of one day or meal tab.
type TabState int

const (
	TabAbsent TabState = iota
	TabCreating
	TabActive
	TabInactive
	TabDeleting
)

var tabStateNames = []string{"absent", "creating", "active", "inactive", "deleting"}

func (s TabState) String() string {
	if int(s) < len(tabStateNames) {
		return tabStateNames[s]
	}
	return "unknown"
}

// Tab mirrors one server-side day or meal. Creating tabs have no ID yet and
// are addressed by Key until the create response arrives.
type Tab struct {
	Key       string
	ID        int64
	ParentID  int64
	Name      string
	State     TabState
	Nutrition *api.Totals
}

// Visible reports whether the tab is rendered.
func (t *Tab) Visible() bool {
	return t.State == TabActive || t.State == TabInactive
}

// TabSet is a sibling group with a size cap and unique names. Every tab in the
// set occupies a slot, including ones still being created or deleted.
type TabSet struct {
	limit int
	tabs  []*Tab
}

func newTabSet(limit int) *TabSet {
	return &TabSet{limit: limit}
}

// Len counts every tab holding a slot, rendered or not.
func (s *TabSet) Len() int { return len(s.tabs) }

// Visible returns the rendered tabs in order.
func (s *TabSet) Visible() []*Tab {
	var out []*Tab
	for _, t := range s.tabs {
		if t.Visible() {
			out = append(out, t)
		}
	}
	return out
}

// Active returns the selected tab, or nil when none is.
func (s *TabSet) Active() *Tab {
	for _, t := range s.tabs {
		if t.State == TabActive {
			return t
		}
	}
	return nil
}

// Find returns the persisted tab with the given server id.
func (s *TabSet) Find(id int64) *Tab {
	for _, t := range s.tabs {
		if t.ID == id && t.State != TabCreating {
			return t
		}
	}
	return nil
}

func (s *TabSet) findKey(key string) *Tab {
	for _, t := range s.tabs {
		if t.Key == key {
			return t
		}
	}
	return nil
}

func (s *TabSet) nameTaken(name string, except *Tab) bool {
	for _, t := range s.tabs {
		if t != except && t.Name == name {
			return true
		}
	}
	return false
}

func (s *TabSet) checkCreate(name string) error {
	if len(s.tabs) >= s.limit {
		return ErrTabLimit
	}
	if s.nameTaken(name, nil) {
		return ErrDuplicateName
	}
	return nil
}

// reserve adds a creating placeholder so the name and slot stay taken while
// the create request is in flight.
func (s *TabSet) reserve(parentID int64, name string) *Tab {
	t := &Tab{Key: uuid.NewString(), ParentID: parentID, Name: name, State: TabCreating}
	s.tabs = append(s.tabs, t)
	return t
}

func (s *TabSet) add(t *Tab) {
	if t.Key == "" {
		t.Key = uuid.NewString()
	}
	s.tabs = append(s.tabs, t)
}

// activate makes t the only active tab in the set.
func (s *TabSet) activate(t *Tab) {
	for _, other := range s.tabs {
		if other.State == TabActive {
			other.State = TabInactive
		}
	}
	t.State = TabActive
}

func (s *TabSet) remove(t *Tab) {
	for i, other := range s.tabs {
		if other == t {
			s.tabs = append(s.tabs[:i], s.tabs[i+1:]...)
			return
		}
	}
}

// reset drops the persisted tabs. Tabs still being created keep their slot
// and name until their create request resolves.
func (s *TabSet) reset() {
	s.replace(nil)
}

// replace swaps the persisted tabs for fresh ones. Creating tabs are kept
// after them.
func (s *TabSet) replace(fresh []*Tab) {
	var pending []*Tab
	for _, t := range s.tabs {
		if t.State == TabCreating {
			pending = append(pending, t)
		}
	}
	s.tabs = nil
	for _, t := range fresh {
		s.add(t)
	}
	s.tabs = append(s.tabs, pending...)
}

// nextFreeName returns the first candidate no tab uses, or the first candidate
// when all are taken.
func (s *TabSet) nextFreeName(candidates []string) string {
	for _, name := range candidates {
		if !s.nameTaken(name, nil) {
			return name
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}
