package room

// transitions lists the allowed edges of the status lifecycle.
//
// Booked -> Available is absent on purpose: leaving Booked requires an
// explicit checkout, which is not a bare status edit. Cleaning and
// Maintenance never flow into each other directly; the room must pass
// through Available (or the caller cancels and reschedules).
var transitions = map[Status][]Status{
	StatusAvailable:   {StatusBooked, StatusCleaning, StatusMaintenance},
	StatusBooked:      {StatusCleaning, StatusMaintenance},
	StatusCleaning:    {StatusAvailable},
	StatusMaintenance: {StatusAvailable},
}

// Allowed reports whether a room may move from one status to another.
// Self-transitions are allowed so idempotent edits and timer extensions
// pass validation; callers must not arm a duplicate timer for them.
func Allowed(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
