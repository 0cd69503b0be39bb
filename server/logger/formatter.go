package logger

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Message is a single log entry handed to a Formatter.
type Message struct {
	// Timestamp contains the time of the message.
	Timestamp time.Time

	// Namespace is the full namespace of the Logger this message was sent to.
	Namespace string

	// Level is the log level of the message.
	Level Level

	// Body has the message contents.
	Body string

	// Ctx is the message context.
	Ctx Ctx
}

// Formatter defines how a log entry is turned into bytes before it is
// written to the logger's writer.
type Formatter interface {
	Format(message Message) ([]byte, error)
}

// StringFormatter is the default Formatter. It writes a timestamp, level,
// right-aligned namespace, body and sorted key=value context pairs.
type StringFormatter struct {
	dateLayout string
}

// compile-time assertion that StringFormatter implements Formatter.
var _ Formatter = &StringFormatter{}

// NewStringFormatter creates a new instance of StringFormatter.
func NewStringFormatter() *StringFormatter {
	return &StringFormatter{
		dateLayout: "2006-01-02T15:04:05.000000Z07:00",
	}
}

// Format implements Formatter.
func (f *StringFormatter) Format(message Message) ([]byte, error) {
	var b strings.Builder

	keys := make([]string, 0, len(message.Ctx))

	for k := range message.Ctx {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(fmt.Sprintf("%+v", message.Ctx[k]))
	}

	namespace := message.Namespace
	if l := 20; len(namespace) > l {
		namespace = namespace[len(namespace)-l:]
	}

	ret := fmt.Sprintf("%s %5s [%20s] %s%s\n",
		message.Timestamp.Format(f.dateLayout),
		message.Level,
		namespace,
		strings.TrimRight(message.Body, "\n"),
		b.String(),
	)

	return []byte(ret), nil
}
