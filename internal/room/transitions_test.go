package room

import "testing"

func TestAllowed(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		// From Available
		{"available/to_booked", StatusAvailable, StatusBooked, true},
		{"available/to_cleaning", StatusAvailable, StatusCleaning, true},
		{"available/to_maintenance", StatusAvailable, StatusMaintenance, true},

		// From Booked
		{"booked/to_cleaning", StatusBooked, StatusCleaning, true},
		{"booked/to_maintenance", StatusBooked, StatusMaintenance, true},
		{"booked/to_available_requires_checkout", StatusBooked, StatusAvailable, false},

		// Transient states only exit to Available
		{"cleaning/to_available", StatusCleaning, StatusAvailable, true},
		{"maintenance/to_available", StatusMaintenance, StatusAvailable, true},
		{"cleaning/to_booked", StatusCleaning, StatusBooked, false},
		{"maintenance/to_booked", StatusMaintenance, StatusBooked, false},

		// No direct edge between the two transient states
		{"cleaning/to_maintenance", StatusCleaning, StatusMaintenance, false},
		{"maintenance/to_cleaning", StatusMaintenance, StatusCleaning, false},

		// Self-transitions are no-ops but allowed
		{"self/available", StatusAvailable, StatusAvailable, true},
		{"self/booked", StatusBooked, StatusBooked, true},
		{"self/cleaning", StatusCleaning, StatusCleaning, true},
		{"self/maintenance", StatusMaintenance, StatusMaintenance, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allowed(tt.from, tt.to); got != tt.want {
				t.Errorf("Allowed(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{StatusAvailable, StatusBooked, StatusCleaning, StatusMaintenance} {
		got, err := ParseStatus(string(s))
		if err != nil {
			t.Fatalf("ParseStatus(%q) returned error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %q", s, got)
		}
	}

	if _, err := ParseStatus("Occupied"); err == nil {
		t.Error("ParseStatus should reject unknown statuses")
	}
}

func TestTransient(t *testing.T) {
	if StatusAvailable.Transient() || StatusBooked.Transient() {
		t.Error("Available and Booked must not be transient")
	}
	if !StatusCleaning.Transient() || !StatusMaintenance.Transient() {
		t.Error("Cleaning and Maintenance must be transient")
	}
}
