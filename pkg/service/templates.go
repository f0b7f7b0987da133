package service

// TaskTemplate describes one checklist item seeded for a stage. Estimated
// hours are explicit per template; there is no heuristic or random default.
type TaskTemplate struct {
	Name           string
	Category       string
	EstimatedHours float64
}

// DefaultTaskTemplates maps stage names to the checklist seeded when a
// workflow is created. Stages without an entry seed no tasks.
func DefaultTaskTemplates() map[string][]TaskTemplate {
	return map[string][]TaskTemplate{
		"Material Prep": {
			{Name: "Verify material certs", Category: "documentation", EstimatedHours: 0.5},
			{Name: "Stage raw stock", Category: "handling", EstimatedHours: 1},
		},
		"Cutting": {
			{Name: "Program cut list", Category: "fabrication", EstimatedHours: 0.5},
			{Name: "Cut members to length", Category: "fabrication", EstimatedHours: 2},
			{Name: "Deburr edges", Category: "fabrication", EstimatedHours: 0.5},
		},
		"Drilling": {
			{Name: "Lay out hole pattern", Category: "fabrication", EstimatedHours: 0.5},
			{Name: "Drill connection holes", Category: "fabrication", EstimatedHours: 1.5},
		},
		"Fit-Up": {
			{Name: "Fit clip angles and plates", Category: "fabrication", EstimatedHours: 2},
			{Name: "Tack weld assembly", Category: "welding", EstimatedHours: 1},
			{Name: "Check dimensions against drawing", Category: "inspection", EstimatedHours: 0.5},
		},
		"Welding": {
			{Name: "Setup welding", Category: "welding", EstimatedHours: 0.5},
			{Name: "Perform welds", Category: "welding", EstimatedHours: 4},
			{Name: "Visual inspection", Category: "inspection", EstimatedHours: 0.5},
		},
		"Weld Inspection": {
			{Name: "UT critical welds", Category: "inspection", EstimatedHours: 1},
			{Name: "Record inspection report", Category: "documentation", EstimatedHours: 0.5},
		},
		"Blasting": {
			{Name: "Blast to SP-6", Category: "finishing", EstimatedHours: 1.5},
		},
		"Painting": {
			{Name: "Apply primer coat", Category: "finishing", EstimatedHours: 1},
			{Name: "Apply finish coat", Category: "finishing", EstimatedHours: 1},
			{Name: "Measure dry film thickness", Category: "inspection", EstimatedHours: 0.5},
		},
		"Final Inspection": {
			{Name: "Dimensional check", Category: "inspection", EstimatedHours: 0.5},
			{Name: "QC sign-off", Category: "inspection", EstimatedHours: 0.5},
		},
		"Shipping Prep": {
			{Name: "Attach piece mark tags", Category: "logistics", EstimatedHours: 0.25},
			{Name: "Load and secure", Category: "logistics", EstimatedHours: 1},
		},
		"Shipped": {
			{Name: "Confirm delivery", Category: "logistics", EstimatedHours: 0.25},
		},
		"Installed": {
			{Name: "Field bolt-up", Category: "field", EstimatedHours: 2},
			{Name: "Plumb and align", Category: "field", EstimatedHours: 1},
		},
	}
}
