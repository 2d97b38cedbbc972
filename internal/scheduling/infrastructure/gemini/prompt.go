package gemini

import (
	"fmt"
	"strings"
	"time"

	calendar "github.com/felixgeelhaar/tempo/internal/calendar/domain"
	"github.com/felixgeelhaar/tempo/internal/scheduling/domain"
)

// Prompt renders the instruction sent to the model.
func Prompt(req domain.Request, now time.Time) string {
	var busy strings.Builder
	if len(req.Busy) == 0 {
		busy.WriteString("none")
	}
	for i, b := range req.Busy {
		if i > 0 {
			busy.WriteString(", ")
		}
		fmt.Fprintf(&busy, "%s to %s", calendar.FormatTimestamp(b.Start), calendar.FormatTimestamp(b.End))
	}

	deadline := "None"
	if req.Task.Deadline != nil {
		deadline = calendar.FormatTimestamp(*req.Task.Deadline)
	}

	return fmt.Sprintf(`Act as an expert productivity coach.

CURRENT CONTEXT (all times UTC):
- Now: %s
- Planning window: %s to %s
- Working hours: 09:00 to 17:00
- Busy slots: %s

TASK:
- Description: %q
- Priority: %s (High priority belongs in morning deep-focus hours)
- Duration: %d minutes
- Deadline: %s

GOAL:
Find 3 optimal start times for this task inside the planning window.

RULES:
1. Never overlap a busy slot.
2. If priority is High, prefer 09:00-12:00 starts for deep work.
3. If the task is shorter than 30 minutes, fit it into small gaps.
4. Give a short reason naming the productivity benefit.

OUTPUT:
Return valid JSON only, without markdown or comments, shaped as
{"suggestions":[{"start":"YYYY-MM-DDTHH:MM:SSZ","reason":"..."}]}`,
		calendar.FormatTimestamp(now),
		calendar.FormatTimestamp(req.Window.Start), calendar.FormatTimestamp(req.Window.End),
		busy.String(),
		req.Task.Description,
		req.Task.Priority.String(),
		int(req.Task.Duration/time.Minute),
		deadline,
	)
}
