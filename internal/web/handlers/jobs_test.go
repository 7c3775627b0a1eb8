package handlers

import (
	"fmt"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

func TestEventBroadcaster_SendEvent(t *testing.T) {
	var b EventBroadcaster
	first := b.AddListener()
	second := b.AddListener()

	b.SendEvent(JobEvent{Type: "progress"})

	for i, ch := range []chan JobEvent{first, second} {
		select {
		case ev := <-ch:
			if ev.Type != "progress" {
				t.Errorf("listener %d: expected progress event, got %s", i, ev.Type)
			}
		default:
			t.Errorf("listener %d: expected an event", i)
		}
	}
}

func TestEventBroadcaster_RemoveListenerClosesChannel(t *testing.T) {
	var b EventBroadcaster
	ch := b.AddListener()

	b.RemoveListener(ch)

	if _, ok := <-ch; ok {
		t.Error("expected closed channel")
	}
	b.SendEvent(JobEvent{Type: "progress"})
}

func TestEventBroadcaster_Cancel(t *testing.T) {
	cancelled := false
	b := EventBroadcaster{cancel: func() { cancelled = true }}
	ch := b.AddListener()

	b.Cancel()

	if !cancelled {
		t.Error("expected cancel func to be called")
	}
	if ev := <-ch; ev.Type != "cancelled" {
		t.Errorf("expected cancelled event, got %s", ev.Type)
	}
}

func TestJobManager_CreateJob(t *testing.T) {
	m := NewJobManager()

	job := m.CreateJob("one", false, nil)
	if job == nil || job.GetStatus() != JobStatusPending {
		t.Fatalf("expected pending job, got %+v", job)
	}
	if m.CreateJob("two", false, nil) != nil {
		t.Error("expected second job to be refused while the first is pending")
	}

	job.finish(JobStatusCompleted, &TrainJobResult{Students: 3}, "")
	if next := m.CreateJob("two", true, nil); next == nil {
		t.Error("expected a new job after the first completed")
	}
	jobs := m.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != "two" {
		t.Errorf("expected newest job first, got %s", jobs[0].ID)
	}
}

func TestJobManager_ForgetsOldJobs(t *testing.T) {
	m := NewJobManager()
	for i := range constants.TrainJobHistory + 3 {
		job := m.CreateJob(fmt.Sprintf("job-%d", i), false, nil)
		if job == nil {
			t.Fatalf("job %d refused", i)
		}
		job.finish(JobStatusCompleted, nil, "")
	}

	if n := len(m.ListJobs()); n != constants.TrainJobHistory {
		t.Errorf("expected %d remembered jobs, got %d", constants.TrainJobHistory, n)
	}
	if m.GetJob("job-0") != nil {
		t.Error("expected the oldest job to be forgotten")
	}
	if m.GetJob(fmt.Sprintf("job-%d", constants.TrainJobHistory+2)) == nil {
		t.Error("expected the newest job to be kept")
	}
}

func TestTrainJob_CancelKeepsStatus(t *testing.T) {
	m := NewJobManager()
	job := m.CreateJob("one", false, nil)

	job.Cancel()
	job.finish(JobStatusFailed, nil, "context canceled")

	info := job.Snapshot()
	if info.Status != JobStatusCancelled {
		t.Errorf("expected cancelled status, got %s", info.Status)
	}
	if info.CompletedAt == nil {
		t.Error("expected completion time")
	}
}
