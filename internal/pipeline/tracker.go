package pipeline

// Specialist tool names the orchestrator may hand a turn to. Analysis-only
// tools (image_reader) are deliberately absent: they never produce the final
// answer and must not influence citation lookup.
const (
	ToolTBSpecialist          = "tb_specialist"
	ToolAgricultureSpecialist = "agriculture_specialist"
	ToolRejectHandler         = "reject_handler"
)

var specialistWhitelist = map[string]struct{}{
	ToolTBSpecialist:          {},
	ToolAgricultureSpecialist: {},
	ToolRejectHandler:         {},
}

// IsSpecialist reports whether name is a terminal specialist tool.
func IsSpecialist(name string) bool {
	_, ok := specialistWhitelist[name]
	return ok
}

// ToolChoiceTracker remembers which specialist handled the turn. Within one
// turn the last qualifying tool-start event wins; unrecognized and
// analysis-only names are ignored. Create one per turn.
type ToolChoiceTracker struct {
	name string
}

// NewToolChoiceTracker returns an empty tracker.
func NewToolChoiceTracker() *ToolChoiceTracker {
	return &ToolChoiceTracker{}
}

// Record updates the tracked choice if name is whitelisted.
func (t *ToolChoiceTracker) Record(name string) {
	if IsSpecialist(name) {
		t.name = name
	}
}

// Current returns the tracked specialist name, or "" if none qualified yet.
func (t *ToolChoiceTracker) Current() string {
	return t.name
}
