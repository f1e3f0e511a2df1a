package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sprklai/mesoclaw/internal/scheduler"
)

// CronTool lets the agent create, list, and remove its own scheduled jobs.
type CronTool struct {
	sched *scheduler.Scheduler
}

func NewCronTool(sched *scheduler.Scheduler) *CronTool {
	return &CronTool{sched: sched}
}

func (t *CronTool) Name() string { return "cron" }
func (t *CronTool) Description() string {
	return "Manage scheduled jobs: create (action=create), list (action=list), or remove (action=remove) a cron or interval job"
}
func (t *CronTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"create", "list", "remove"},
				"description": "Operation to perform",
			},
			"name":   map[string]interface{}{"type": "string", "description": "Job name (create)"},
			"cron":   map[string]interface{}{"type": "string", "description": "Five-field cron expression (create, mutually exclusive with interval_secs)"},
			"interval_secs": map[string]interface{}{"type": "integer", "description": "Interval in seconds (create, mutually exclusive with cron)"},
			"prompt": map[string]interface{}{"type": "string", "description": "Prompt to run the agent with when the job fires (create)"},
			"job_id": map[string]interface{}{"type": "string", "description": "Job ID to remove (remove)"},
		},
		"required": []string{"action"},
	}
}

func (t *CronTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if t.sched == nil {
		return ErrorResult("scheduler is not configured")
	}
	action, _ := args["action"].(string)
	switch action {
	case "create":
		return t.create(args)
	case "list":
		return t.list()
	case "remove":
		return t.remove(args)
	default:
		return ErrorResult(fmt.Sprintf("unknown action: %s", action))
	}
}

func (t *CronTool) create(args map[string]interface{}) *Result {
	name, _ := args["name"].(string)
	prompt, _ := args["prompt"].(string)
	if strings.TrimSpace(name) == "" {
		return ErrorResult("name is required")
	}
	if strings.TrimSpace(prompt) == "" {
		return ErrorResult("prompt is required")
	}

	var sched scheduler.Schedule
	if expr, ok := args["cron"].(string); ok && expr != "" {
		if err := scheduler.ValidateCronExpr(expr); err != nil {
			return ErrorResult(fmt.Sprintf("invalid cron expression: %v", err))
		}
		sched = scheduler.CronSchedule(expr)
	} else if secs, ok := args["interval_secs"].(float64); ok && secs > 0 {
		sched = scheduler.IntervalSchedule(uint64(secs))
	} else {
		return ErrorResult("either cron or interval_secs is required")
	}

	job := scheduler.ScheduledJob{
		Name:          name,
		Schedule:      sched,
		SessionTarget: scheduler.SessionIsolated,
		Payload:       scheduler.JobPayload{Kind: scheduler.PayloadAgentTurn, Prompt: prompt},
		Enabled:       true,
	}
	id, err := t.sched.AddJob(job)
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to schedule job: %v", err))
	}
	return SilentResult(fmt.Sprintf("scheduled job %q with id %s", name, id))
}

func (t *CronTool) list() *Result {
	jobs := t.sched.ListJobs()
	if len(jobs) == 0 {
		return SilentResult("no scheduled jobs")
	}
	payload, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to encode jobs: %v", err))
	}
	return SilentResult(string(payload))
}

func (t *CronTool) remove(args map[string]interface{}) *Result {
	id, _ := args["job_id"].(string)
	if strings.TrimSpace(id) == "" {
		return ErrorResult("job_id is required")
	}
	if !t.sched.RemoveJob(id) {
		return ErrorResult(fmt.Sprintf("no job found with id %s", id))
	}
	return SilentResult(fmt.Sprintf("removed job %s", id))
}
