package log

import "fmt"

// MessageFormatter prefixes operational messages with a component name and a status mark.
type MessageFormatter struct {
	component      string
	componentEmoji string
}

// NewMessageFormatter creates a new formatter instance
func NewMessageFormatter() *MessageFormatter {
	return &MessageFormatter{}
}

// WithComponent sets the component name and emoji
func (f *MessageFormatter) WithComponent(name, emoji string) *MessageFormatter {
	f.component = name
	f.componentEmoji = emoji
	return f
}

func (f *MessageFormatter) format(mark, msg string) string {
	return fmt.Sprintf("%s %s: %s %s", f.componentEmoji, f.component, mark, msg)
}

// Ok formats a success message
func (f *MessageFormatter) Ok(msg string) string {
	return f.format("✅", msg)
}

// Fail formats an error message
func (f *MessageFormatter) Fail(msg string) string {
	return f.format("❌", msg)
}

// Warn formats a warning message
func (f *MessageFormatter) Warn(msg string) string {
	return f.format("⚠️", msg)
}

// Start formats a message for something beginning
func (f *MessageFormatter) Start(msg string) string {
	return f.format("🚀", msg)
}

// Complete formats a message for something that finished
func (f *MessageFormatter) Complete(msg string) string {
	return f.format("🏁", msg)
}
