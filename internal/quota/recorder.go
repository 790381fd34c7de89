package quota

// Rollover reasons passed to Recorder.RolledOver.
const (
	RolloverLoad  = "load"
	RolloverLazy  = "lazy"
	RolloverTimer = "timer"
	RolloverReset = "reset"
)

// Recorder receives quota events for metrics.
type Recorder interface {
	Checked(allowed, exempt bool)
	UsageRegistered()
	Escalated()
	RolledOver(reason string)
}

type nopRecorder struct{}

func (nopRecorder) Checked(bool, bool) {}
func (nopRecorder) UsageRegistered()   {}
func (nopRecorder) Escalated()         {}
func (nopRecorder) RolledOver(string)  {}
