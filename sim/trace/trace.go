package trace

// Level controls the verbosity of event tracing.
type Level string

const (
	// LevelNone disables tracing (zero overhead).
	LevelNone Level = "none"
	// LevelEvents captures every processed event and every admission outcome.
	LevelEvents Level = "events"
)

// validLevels maps accepted trace level strings.
var validLevels = map[Level]bool{
	LevelNone:   true,
	LevelEvents: true,
	"":          true, // empty defaults to none
}

// IsValidLevel returns true if the given level string is a recognized trace level.
func IsValidLevel(level string) bool {
	return validLevels[Level(level)]
}

// Config controls trace collection behavior.
type Config struct {
	Level Level
}

// Enabled reports whether records should be collected at all.
func (c Config) Enabled() bool {
	return c.Level == LevelEvents
}

// SimulationTrace collects records during a simulation run.
type SimulationTrace struct {
	Config     Config
	Events     []EventRecord
	Admissions []AdmissionRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config Config) *SimulationTrace {
	return &SimulationTrace{
		Config:     config,
		Events:     make([]EventRecord, 0),
		Admissions: make([]AdmissionRecord, 0),
	}
}

// RecordEvent appends an event record.
func (st *SimulationTrace) RecordEvent(record EventRecord) {
	st.Events = append(st.Events, record)
}

// RecordAdmission appends an admission record.
func (st *SimulationTrace) RecordAdmission(record AdmissionRecord) {
	st.Admissions = append(st.Admissions, record)
}
