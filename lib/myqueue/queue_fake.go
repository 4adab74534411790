package myqueue

import (
	"context"
	"log"
	"os"
	"sync"
)

// FakeTaskQueue only remembers what was enqueued; nothing is ever delivered
type FakeTaskQueue struct {
	sync.Mutex
	Tasks []Task
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = func(c context.Context) (TaskQueuer, func(), error) {
			return NewFake(), func() {}, nil
		}
	}
}

func NewFake() *FakeTaskQueue {
	return &FakeTaskQueue{
		Tasks: []Task{},
	}
}

func (q *FakeTaskQueue) Enqueue(c context.Context, task Task) error {
	q.Lock()
	defer q.Unlock()

	log.Printf("Enqueued task %s for %s", task.UID, task.WebhookURLPath)
	q.Tasks = append(q.Tasks, task)

	return nil
}

func (q *FakeTaskQueue) IsLastAttempt(c context.Context, taskUID string) (int32, int32) {
	return 0, 0
}
