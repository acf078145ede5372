package payment

var workflow = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusContested},
	StatusContested: {StatusApproved},
	StatusApproved:  {StatusPaid},
}

// CanTransition reports whether a batch may move from one status to another.
// In strict mode only the workflow edges are allowed. Otherwise any move is
// accepted except leaving paid, which is terminal in both modes.
func CanTransition(from, to Status, strict bool) bool {
	if !to.Valid() || from == StatusPaid {
		return false
	}
	if !strict {
		return true
	}
	for _, next := range workflow[from] {
		if next == to {
			return true
		}
	}
	return false
}
