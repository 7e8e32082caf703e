package medicine

import "time"

// Frequency enumerates how often a regimen repeats. It is descriptive only;
// dose slots are never derived from it.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is one of the enumerated frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// DoseSlot is one scheduled administration time within a medicine's schedule.
// Slots have no identity of their own: their position in the Times slice is
// the sole addressing scheme.
type DoseSlot struct {
	// Time is a wall-clock HH:MM label, stored as given.
	Time    string     `json:"time"`
	Taken   bool       `json:"taken"`
	TakenAt *time.Time `json:"takenAt,omitempty"`
}

// Medicine is the aggregate owned by exactly one user. Inactive medicines
// are hidden from the default listing but remain resolvable by ID.
type Medicine struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage"`
	Frequency Frequency  `json:"frequency"`
	Times     []DoseSlot `json:"times"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"createdAt"`
}
