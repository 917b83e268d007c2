package triage

// Zone is the physical ED area a triage level maps to.
type Zone struct {
	Name string `json:"name"`
	Area string `json:"area"`
}

var zones = [5]Zone{
	{Name: "Blue zone", Area: "Resuscitation bay"},
	{Name: "Red zone", Area: "High-acuity / monitored"},
	{Name: "Yellow zone", Area: "Urgent care"},
	{Name: "Green zone", Area: "Minor care"},
	{Name: "White zone", Area: "Fast-track / clinic"},
}

var actions = [5][]string{
	{
		"Assign to Blue zone (Resuscitation) immediately",
		"Activate resuscitation team; continuous monitoring (ECG, SpO₂, BP)",
		"High-flow O₂; prepare BVM/advanced airway",
		"2 large-bore IV/IO; fluids per protocol",
	},
	{
		"Assign to Red zone (High-acuity)",
		"Rapid assessment; monitoring as indicated",
		"IV access; protocol-based treatment",
	},
	{
		"Assign to Yellow zone (Urgent)",
		"Timely assessment; monitoring as indicated",
		"IV/symptomatic care as needed",
	},
	{
		"Assign to Green zone (Minor)",
		"Symptomatic relief; basic tests per protocol",
	},
	{
		"Assign to White zone (Fast-track/clinic)",
		"Safety-net instructions and follow-up advice",
	},
}

// ZoneForLevel returns the zone for a triage level. Total over 1..5.
func ZoneForLevel(level int) (Zone, bool) {
	if level < 1 || level > 5 {
		return Zone{}, false
	}
	return zones[level-1], true
}

// ActionsForLevel returns a copy of the ordered immediate actions for a level.
func ActionsForLevel(level int) []string {
	if level < 1 || level > 5 {
		return nil
	}
	out := make([]string, len(actions[level-1]))
	copy(out, actions[level-1])
	return out
}
