package session

// State 会话状态
type State int32

const (
	StateUninitialized State = iota
	StateOpened
	StateUnpacked
	StateProcessed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateOpened:
		return "Opened"
	case StateUnpacked:
		return "Unpacked"
	case StateProcessed:
		return "Processed"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
