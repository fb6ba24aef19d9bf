package gateway

// SessionMetrics instruments the read side of the pipeline.
type SessionMetrics interface {
	SessionOpened()
	SessionClosed()
	FrameSent(eventType string)
	MessageDropped(eventType string, reason string)
}

// Drop reasons reported to MessageDropped.
const (
	DropUnknownType = "unknown_type"
	DropCheckFailed = "check_failed"
	DropFiltered    = "filtered"
)

type nopSessionMetrics struct{}

func (nopSessionMetrics) SessionOpened()                {}
func (nopSessionMetrics) SessionClosed()                {}
func (nopSessionMetrics) FrameSent(string)              {}
func (nopSessionMetrics) MessageDropped(string, string) {}

func NopSessionMetrics() SessionMetrics { return nopSessionMetrics{} }
