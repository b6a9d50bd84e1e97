package watch

// Op is the kind of a watch event.
type Op int

const (
	// OpAdd reports a file observed for the first time, including every
	// pre-existing file found by the initial scan.
	OpAdd Op = iota
	// OpChange reports modified content.
	OpChange
	// OpReady marks the end of the initial scan. It is sent once, after
	// every scan OpAdd.
	OpReady
)

// String returns a human-readable representation of the op.
func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpChange:
		return "change"
	case OpReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Event is one notification from a Watcher. Path is absolute and empty for
// OpReady.
type Event struct {
	Op   Op
	Path string
}
