package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskJourneyTick = "journey.tick"

const TaskDispatchDrain = "journey.dispatch.drain"

// JourneyTickPayload describes one scheduled pass over all nurturing
// leads. TriggeredBy is stable per source so concurrently enqueued
// ticks collapse under asynq's uniqueness option.
type JourneyTickPayload struct {
	TriggeredBy string `json:"triggeredBy"`
}

// DispatchDrainPayload describes one drain pass over pending actions.
type DispatchDrainPayload struct {
	TriggeredBy string `json:"triggeredBy"`
}

func NewJourneyTickTask(payload JourneyTickPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskJourneyTick, data), nil
}

func ParseJourneyTickPayload(task *asynq.Task) (JourneyTickPayload, error) {
	var payload JourneyTickPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return JourneyTickPayload{}, err
	}
	return payload, nil
}

func NewDispatchDrainTask(payload DispatchDrainPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDispatchDrain, data), nil
}

func ParseDispatchDrainPayload(task *asynq.Task) (DispatchDrainPayload, error) {
	var payload DispatchDrainPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DispatchDrainPayload{}, err
	}
	return payload, nil
}
