package jobs

import (
	"context"
	"time"

	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/events"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"go.uber.org/zap"
)

const reminderBatchSize = 200

// ReminderJob scans for activities whose reminder time has passed and
// publishes a reminder event for each. Claiming is a conditional update
// on reminder_sent, so running multiple instances is safe.
type ReminderJob struct {
	activityRepo *repository.ActivityRepository
	publisher    events.Publisher
	logger       *zap.Logger
}

// NewReminderJob creates a new ReminderJob
func NewReminderJob(activityRepo *repository.ActivityRepository, publisher events.Publisher, logger *zap.Logger) *ReminderJob {
	return &ReminderJob{
		activityRepo: activityRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

// Register schedules the job to run every minute
func (j *ReminderJob) Register(s *Scheduler) error {
	return s.AddJob("activity-reminders", "@every 1m", j.Run)
}

// Run processes one batch of due reminders
func (j *ReminderJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	due, err := j.activityRepo.ListDueReminders(ctx, time.Now().UTC(), reminderBatchSize)
	if err != nil {
		j.logger.Error("failed to list due reminders", zap.Error(err))
		return
	}
	if len(due) == 0 {
		return
	}

	sent := 0
	for _, activity := range due {
		claimed, err := j.activityRepo.ClaimReminder(ctx, activity.ID)
		if err != nil {
			j.logger.Error("failed to claim reminder",
				zap.String("activity_id", activity.ID.String()),
				zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		j.publisher.Publish(ctx, events.Event{
			Type:       "activity.reminder",
			OrgID:      activity.OrgID,
			EntityType: "activity",
			EntityID:   activity.ID,
			Payload: map[string]interface{}{
				"subject":      activity.Subject,
				"activityType": activity.Type,
				"assignedTo":   activity.AssignedTo,
				"dueDate":      activity.DueDate,
			},
			OccurredAt: time.Now().UTC(),
		})
		sent++
	}

	if sent > 0 {
		j.logger.Info("activity reminders dispatched",
			zap.Int("due", len(due)),
			zap.Int("sent", sent))
	}
}
