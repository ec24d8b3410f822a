package history

// View is the navigator state.
type View int

const (
	ViewEmpty View = iota
	ViewListing
	ViewDetail
)

func (v View) String() string {
	switch v {
	case ViewEmpty:
		return "empty"
	case ViewListing:
		return "listing"
	case ViewDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// Navigator owns the records, most recent first, and the current view.
//
//	Empty --Push--> Detail(new)
//	Detail --Back--> Listing
//	Listing --Select--> Detail(record)
//	any --Push--> Detail(new)
type Navigator struct {
	records []Record
	view    View
	active  int
}

func NewNavigator() *Navigator { return &Navigator{view: ViewEmpty} }

// Push prepends rec and shows it.
func (n *Navigator) Push(rec Record) {
	n.records = append([]Record{rec}, n.records...)
	n.view = ViewDetail
	n.active = 0
}

// Back leaves the detail view for the list. It is a no-op elsewhere.
func (n *Navigator) Back() bool {
	if n.view != ViewDetail {
		return false
	}
	n.view = ViewListing
	return true
}

// Select opens record i of Records() from the list.
func (n *Navigator) Select(i int) bool {
	if n.view != ViewListing || i < 0 || i >= len(n.records) {
		return false
	}
	n.view = ViewDetail
	n.active = i
	return true
}

// SelectID opens the record with the given id from the list.
func (n *Navigator) SelectID(id string) bool {
	for i, rec := range n.records {
		if rec.ID == id {
			return n.Select(i)
		}
	}
	return false
}

func (n *Navigator) View() View { return n.view }

// Active returns the record shown in the detail view.
func (n *Navigator) Active() (Record, bool) {
	if n.view != ViewDetail {
		return Record{}, false
	}
	return n.records[n.active], true
}

// Latest returns the most recent record regardless of the view.
func (n *Navigator) Latest() (Record, bool) {
	if len(n.records) == 0 {
		return Record{}, false
	}
	return n.records[0], true
}

func (n *Navigator) Records() []Record {
	return append([]Record(nil), n.records...)
}

func (n *Navigator) Len() int { return len(n.records) }
