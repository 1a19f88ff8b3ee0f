package event

// Compare orders events for delivery. It returns a negative number when a
// must be delivered before b.
//
// Order: earlier time first, then higher priority, then a kind tiebreak
// (scans by ascending distance, at-fault collisions first), then enqueue
// sequence.
func Compare(a, b *Event) int {
	if a.time != b.time {
		if a.time < b.time {
			return -1
		}
		return 1
	}
	if a.priority != b.priority {
		if a.priority > b.priority {
			return -1
		}
		return 1
	}
	if c := tiebreak(a.payload, b.payload); c != 0 {
		return c
	}
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	}
	return 0
}

// Less is Compare(a, b) < 0, for sort.SliceStable and friends.
func Less(a, b *Event) bool {
	return Compare(a, b) < 0
}

func tiebreak(a, b Payload) int {
	if da, ok := scanDistance(a); ok {
		if db, ok := scanDistance(b); ok {
			switch {
			case da < db:
				return -1
			case da > db:
				return 1
			}
			return 0
		}
	}
	if ha, ok := a.(HitAgent); ok {
		if hb, ok := b.(HitAgent); ok && ha.AtFault != hb.AtFault {
			if ha.AtFault {
				return -1
			}
			return 1
		}
	}
	return 0
}

func scanDistance(p Payload) (float64, bool) {
	switch s := p.(type) {
	case ScannedAgent:
		return s.Distance, true
	case ScannedObject:
		return s.Distance, true
	}
	return 0, false
}
