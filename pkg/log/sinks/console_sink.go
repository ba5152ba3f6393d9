package sinks

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/calewin/fieldhand/pkg/core"
	"github.com/calewin/fieldhand/pkg/log"
	"github.com/fatih/color"
)

type ConsoleSink struct{}

func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{}
}

func (c *ConsoleSink) Write(event *log.LogEvent) error {
	action := getStringField(event.Fields, "action")
	item := getStringField(event.Fields, "item")
	errorMsg := getStringField(event.Fields, "error")
	msg := event.Message
	levelStr := strings.ToUpper(levelToString(event.Level))
	timestampStr := event.Timestamp.Format(time.RFC3339)

	levelColorMap := map[core.Level]*color.Color{
		core.DebugLevel: color.New(color.FgCyan),
		core.InfoLevel:  color.New(color.FgGreen),
		core.WarnLevel:  color.New(color.FgYellow),
		core.ErrorLevel: color.New(color.FgRed),
		core.FatalLevel: color.New(color.FgRed, color.Bold),
	}

	levelFmt := color.New(color.FgWhite).SprintFunc()
	if lc, ok := levelColorMap[event.Level]; ok {
		levelFmt = lc.SprintFunc()
	}

	timestampFmt := color.New(color.FgWhite).SprintFunc()

	scope := "workflow"
	switch {
	case item != "" && action != "":
		scope = fmt.Sprintf("%s/%s", item, action)
	case item != "":
		scope = item
	case action != "":
		scope = action
	}

	commonPrefix := fmt.Sprintf("[%s %s] %s: ",
		levelFmt(levelStr),
		timestampFmt(timestampStr),
		color.CyanString(scope),
	)

	var output string
	switch {
	case errorMsg != "" && msg != "":
		output = fmt.Sprintf("%s%s: %s", commonPrefix, msg, errorMsg)
	case errorMsg != "":
		output = fmt.Sprintf("%s%s", commonPrefix, errorMsg)
	case msg != "":
		output = fmt.Sprintf("%s%s", commonPrefix, msg)
	default:
		fieldsStr, _ := json.Marshal(event.Fields)
		output = fmt.Sprintf("%s%s", commonPrefix, string(fieldsStr))
	}
	fmt.Println(output)
	return nil
}

// Helper to safely get string field from LogEvent.Fields
func getStringField(fields map[string]any, key string) string {
	if val, ok := fields[key]; ok {
		if strVal, isStr := val.(string); isStr {
			return strVal
		}
	}
	return ""
}

// Helper to convert core.Level to string
func levelToString(l core.Level) string {
	switch l {
	case core.DebugLevel:
		return "debug"
	case core.InfoLevel:
		return "info"
	case core.WarnLevel:
		return "warn"
	case core.ErrorLevel:
		return "error"
	case core.FatalLevel:
		return "fatal"
	default:
		return "unknown"
	}
}

func (c *ConsoleSink) Close() error {
	return nil // Console doesn't need closing
}
