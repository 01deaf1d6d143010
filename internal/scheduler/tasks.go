package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskFollowUpDue = "leads:followup_due"

const TaskSiteVisitReminder = "leads:site_visit_reminder"

type FollowUpDuePayload struct {
	LeadID string `json:"leadId"`
	Kind   string `json:"kind"` // "contact" or "quote"
}

type SiteVisitReminderPayload struct {
	LeadID string `json:"leadId"`
}

func NewFollowUpDueTask(payload FollowUpDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpDue, data), nil
}

func ParseFollowUpDuePayload(task *asynq.Task) (FollowUpDuePayload, error) {
	var payload FollowUpDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpDuePayload{}, err
	}
	return payload, nil
}

func NewSiteVisitReminderTask(payload SiteVisitReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSiteVisitReminder, data), nil
}

func ParseSiteVisitReminderPayload(task *asynq.Task) (SiteVisitReminderPayload, error) {
	var payload SiteVisitReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SiteVisitReminderPayload{}, err
	}
	return payload, nil
}
