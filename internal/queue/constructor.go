package queue

import (
	"github.com/omnipost/omnipost-api/internal/service"
)

// Queue owns the asynq task handlers for scheduled publishing.
type Queue struct {
	publisher service.PublishService
}

func NewQueue(publisher service.PublishService) *Queue {
	return &Queue{publisher: publisher}
}

const TaskTypeSchedulePost = "schedule:post"

type SchedulePostPayload struct {
	PostID int64 `json:"post_id"`
}
