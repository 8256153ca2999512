package orders

// Requirements maps product ids to requested quantities and remembers the
// order in which ids were first seen. Setting an existing id overwrites its
// quantity without moving it.
type Requirements struct {
	ids []int64
	qty map[int64]int
}

func NewRequirements(lines []Line) Requirements {
	r := Requirements{qty: make(map[int64]int, len(lines))}
	for _, l := range lines {
		r.Set(l.ProductID, l.Quantity)
	}
	return r
}

func (r *Requirements) Set(productID int64, quantity int) {
	if r.qty == nil {
		r.qty = make(map[int64]int)
	}
	if _, ok := r.qty[productID]; !ok {
		r.ids = append(r.ids, productID)
	}
	r.qty[productID] = quantity
}

func (r Requirements) Quantity(productID int64) (int, bool) {
	q, ok := r.qty[productID]
	return q, ok
}

// IDs returns product ids in first-seen order.
func (r Requirements) IDs() []int64 {
	out := make([]int64, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r Requirements) Len() int { return len(r.ids) }

func (r Requirements) Lines() []Line {
	out := make([]Line, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, Line{ProductID: id, Quantity: r.qty[id]})
	}
	return out
}
