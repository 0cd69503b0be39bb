package logger

// Level defines the logging level.
type Level int

const (
	// LevelUnknown is an unknown level.
	LevelUnknown Level = iota - 1

	// LevelDisabled means the logging is disabled and no messages will be
	// logged.
	LevelDisabled

	// LevelError means only error messages will be logged.
	LevelError

	// LevelWarn means warning and error messages will be logged.
	LevelWarn

	// LevelInfo means info, warning and error messages will be logged.
	LevelInfo

	// LevelDebug means debug, info, warning and error messages will be logged.
	LevelDebug

	// LevelTrace means all messages will be logged.
	LevelTrace
)

// String returns a string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	case LevelDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// LevelFromString parses a level name. The second return value is false when
// the name is not recognized.
func LevelFromString(name string) (Level, bool) {
	switch name {
	case "error":
		return LevelError, true
	case "warn":
		return LevelWarn, true
	case "info":
		return LevelInfo, true
	case "debug":
		return LevelDebug, true
	case "trace":
		return LevelTrace, true
	case "disabled":
		return LevelDisabled, true
	default:
		return LevelUnknown, false
	}
}
