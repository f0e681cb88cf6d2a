package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/events"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturingPublisher) Publish(ctx context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturingPublisher) Close() {}

func (p *capturingPublisher) all() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event{}, p.events...)
}

func seedReminderActivity(t *testing.T, db *gorm.DB, reminderAt time.Time) domain.Activity {
	t.Helper()
	activity := domain.Activity{
		TenantModel: domain.TenantModel{OrgID: uuid.New(), OwnerID: uuid.New()},
		Type:        domain.ActivityTypeMeeting,
		Subject:     "Quarterly review",
		Status:      domain.ActivityStatusPending,
		Priority:    "normal",
		AssignedTo:  uuid.New(),
		ReminderAt:  &reminderAt,
	}
	require.NoError(t, db.Create(&activity).Error)
	return activity
}

func newReminderJobTest(t *testing.T) (*ReminderJob, *gorm.DB, *capturingPublisher) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.AllModels()...))

	publisher := &capturingPublisher{}
	job := NewReminderJob(repository.NewActivityRepository(db), publisher, zap.NewNop())
	return job, db, publisher
}

func TestReminderJobPublishesDueReminders(t *testing.T) {
	job, db, publisher := newReminderJobTest(t)

	due := seedReminderActivity(t, db, time.Now().UTC().Add(-time.Minute))
	seedReminderActivity(t, db, time.Now().UTC().Add(time.Hour))

	job.Run()

	got := publisher.all()
	require.Len(t, got, 1, "only reminders in the past fire")
	assert.Equal(t, "activity.reminder", got[0].Type)
	assert.Equal(t, due.ID, got[0].EntityID)
	assert.Equal(t, due.OrgID, got[0].OrgID)
	assert.Equal(t, "Quarterly review", got[0].Payload["subject"])

	// The claim is permanent; a rerun sends nothing new
	job.Run()
	assert.Len(t, publisher.all(), 1)
}

func TestReminderJobSkipsFinishedActivities(t *testing.T) {
	job, db, publisher := newReminderJobTest(t)

	done := seedReminderActivity(t, db, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, db.Model(&domain.Activity{}).
		Where("id = ?", done.ID).
		Update("status", domain.ActivityStatusCompleted).Error)

	job.Run()
	assert.Empty(t, publisher.all(), "completed activities need no reminder")
}
