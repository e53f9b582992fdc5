package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

func (q *Queue) HandleSchedulePostTask(ctx context.Context, task *asynq.Task) error {
	var payload SchedulePostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if err := q.publisher.PublishNow(ctx, payload.PostID); err != nil {
		slog.Info("scheduled publish failed", "post_id", payload.PostID, "error", err.Error())
		return err
	}
	return nil
}
