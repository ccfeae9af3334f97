package engine

// Event is a status notification from a pane. Emission never blocks pane
// work; consumers that fall behind lose progress ticks, not state.
type Event interface {
	Pane() string
}

type eventBase struct {
	PaneID string
}

func (e eventBase) Pane() string { return e.PaneID }

// ProgressEvent reports indexing progress, 0-100
type ProgressEvent struct {
	eventBase
	Percent int
}

// ReadyEvent reports that a source is fully indexed and queryable
type ReadyEvent struct {
	eventBase
	LineCount int64
}

// FilterDoneEvent reports a completed filter pass
type FilterDoneEvent struct {
	eventBase
	Matches    int64
	Generation uint64
}

// AppendedEvent reports stream growth applied to the pane
type AppendedEvent struct {
	eventBase
	LineCount int64
	Matches   int64
}

// BookmarksChangedEvent reports a change to the bookmark set
type BookmarksChangedEvent struct {
	eventBase
	Count int
}

// DecodeWarningsEvent reports the cumulative undecodable-byte counter
type DecodeWarningsEvent struct {
	eventBase
	Count int
}

// SourceErrorEvent reports a fatal source failure. Fatal to this pane only:
// everything ingested before the failure remains queryable.
type SourceErrorEvent struct {
	eventBase
	Err error
}
