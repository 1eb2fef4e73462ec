package song

// EventKind enumerates the event variants.
type EventKind int

const (
	KindToggle EventKind = iota
	KindTempoChange
	KindLoopStart
)

// Event is a marker attached to a tick. The set of variants is closed: every
// variant is listed in EventKind and handled by EventVisitor.
type Event interface {
	Kind() EventKind
	Equal(other Event) bool
	Clone() Event
	Accept(v EventVisitor)
}

// EventVisitor dispatches on the event variant.
type EventVisitor interface {
	VisitToggle(e *Toggle)
	VisitTempoChange(e *TempoChange)
	VisitLoopStart(e *LoopStart)
}

// Toggle is a named boolean flag.
type Toggle struct {
	Name string
	On   bool
}

func (e *Toggle) Kind() EventKind { return KindToggle }

func (e *Toggle) Equal(other Event) bool {
	o, ok := other.(*Toggle)
	return ok && *o == *e
}

func (e *Toggle) Clone() Event {
	c := *e
	return &c
}

func (e *Toggle) Accept(v EventVisitor) { v.VisitToggle(e) }

// TempoChange sets the playback speed from its tick on.
type TempoChange struct {
	TicksPerSecond float64
}

func (e *TempoChange) Kind() EventKind { return KindTempoChange }

func (e *TempoChange) Equal(other Event) bool {
	o, ok := other.(*TempoChange)
	return ok && *o == *e
}

func (e *TempoChange) Clone() Event {
	c := *e
	return &c
}

func (e *TempoChange) Accept(v EventVisitor) { v.VisitTempoChange(e) }

// LoopStart marks where playback resumes when the song loops.
type LoopStart struct {
	MaxLoops int // 0 loops forever
}

func (e *LoopStart) Kind() EventKind { return KindLoopStart }

func (e *LoopStart) Equal(other Event) bool {
	o, ok := other.(*LoopStart)
	return ok && *o == *e
}

func (e *LoopStart) Clone() Event {
	c := *e
	return &c
}

func (e *LoopStart) Accept(v EventVisitor) { v.VisitLoopStart(e) }

// EventsEqual compares two event lists element-wise.
func EventsEqual(a, b []Event) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
