package tasks

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
)

// Queue names. Producers LPUSH, the worker BRPOPs.
const (
	// QueueScriptAnalysis runs the AI breakdown of a project's script.
	QueueScriptAnalysis = "q_script_analysis"

	// QueueComplexityScoring rescores every sequence of a project.
	QueueComplexityScoring = "q_complexity_scoring"
)

// Pub/sub channels.
const (
	// ChannelAnalysisEvents carries AnalysisEvent messages.
	ChannelAnalysisEvents = "analysis_events"
)

// ScriptAnalysisPayload is the payload for QueueScriptAnalysis
type ScriptAnalysisPayload struct {
	JobID     string `json:"job_id"`
	ProjectID uint   `json:"project_id"`
	UserID    uint   `json:"user_id"`
	Truncate  bool   `json:"truncate"`
}

// ComplexityScoringPayload is the payload for QueueComplexityScoring
type ComplexityScoringPayload struct {
	ProjectID uint `json:"project_id"`
	// SequenceIDs limits scoring to these sequences; empty means all.
	SequenceIDs []uint `json:"sequence_ids,omitempty"`
}

// AnalysisEvent is published on every status change of an analysis job.
type AnalysisEvent struct {
	JobID     string `json:"job_id"`
	ProjectID uint   `json:"project_id"`
	UserID    uint   `json:"user_id"`
	Status    string `json:"status"`
	Attempt   int    `json:"attempt,omitempty"`
	Message   string `json:"message,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// Marshal creates a JSON payload for a task.
func Marshal(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Enqueue pushes a task onto a queue.
func Enqueue(ctx context.Context, rdb *redis.Client, queue string, payload interface{}) error {
	s, err := Marshal(payload)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, s).Err()
}

// Publish sends an analysis event to its channel.
func Publish(ctx context.Context, rdb *redis.Client, event AnalysisEvent) error {
	s, err := Marshal(event)
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, ChannelAnalysisEvents, s).Err()
}
