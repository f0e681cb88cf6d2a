package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityCreateDefaults(t *testing.T) {
	env := newTestEnv(t)

	activity, err := env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type:    "task",
		Subject: "Follow up",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityStatusPending, activity.Status)
	assert.Equal(t, "normal", activity.Priority)
	assert.Equal(t, env.userID, activity.AssignedTo, "unassigned work lands on the creator")
	assert.Nil(t, activity.CompletedAt)

	_, err = env.activities.Create(env.ctx, &domain.CreateActivityRequest{Type: "fax", Subject: "Nope"})
	requireDomainCode(t, err, domain.CodeValidationError)

	_, err = env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "task", Subject: "Bad status", Status: "someday",
	})
	requireDomainCode(t, err, domain.CodeValidationError)
}

func TestActivityCreateVerifiesLinks(t *testing.T) {
	env := newTestEnv(t)

	missing := uuid.New()
	_, err := env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "call", Subject: "Ghost", ContactID: &missing,
	})
	requireDomainCode(t, err, domain.CodeEntityNotFound)

	// A contact of another tenant is just as invisible
	foreign, err := env.contacts.Create(env.otherOrgCtx(), &domain.CreateContactRequest{FirstName: "Foreign"})
	require.NoError(t, err)
	_, err = env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "call", Subject: "Cross tenant", ContactID: &foreign.ID,
	})
	requireDomainCode(t, err, domain.CodeEntityNotFound)
}

func TestActivityCompleteTouchesContact(t *testing.T) {
	env := newTestEnv(t)

	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Called"})
	require.NoError(t, err)
	require.Nil(t, contact.LastContactedAt)

	activity, err := env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "call", Subject: "Intro call", ContactID: &contact.ID,
	})
	require.NoError(t, err)

	completed, err := env.activities.Complete(env.ctx, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	touched, err := env.contacts.GetByID(env.ctx, contact.ID)
	require.NoError(t, err)
	require.NotNil(t, touched.LastContactedAt, "a completed call counts as contact")
	require.NotNil(t, touched.LastActivityAt)

	// Completing twice is a no-op
	first := *completed.CompletedAt
	again, err := env.activities.Complete(env.ctx, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *again.CompletedAt)
}

func TestActivityCompletedTaskDoesNotCountAsContact(t *testing.T) {
	env := newTestEnv(t)

	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Task only"})
	require.NoError(t, err)

	activity, err := env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "task", Subject: "Internal chore", ContactID: &contact.ID,
	})
	require.NoError(t, err)
	_, err = env.activities.Complete(env.ctx, activity.ID)
	require.NoError(t, err)

	touched, err := env.contacts.GetByID(env.ctx, contact.ID)
	require.NoError(t, err)
	assert.Nil(t, touched.LastContactedAt, "tasks never bump the contacted marker")
	require.NotNil(t, touched.LastActivityAt)
}

func TestActivityPendingCallCountsAsContact(t *testing.T) {
	env := newTestEnv(t)

	contact, err := env.contacts.Create(env.ctx, &domain.CreateContactRequest{FirstName: "Reached"})
	require.NoError(t, err)
	require.Nil(t, contact.LastContactedAt)

	// Logging the call is the touch; completion is bookkeeping
	_, err = env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "call", Subject: "Logged call", ContactID: &contact.ID,
	})
	require.NoError(t, err)

	touched, err := env.contacts.GetByID(env.ctx, contact.ID)
	require.NoError(t, err)
	require.NotNil(t, touched.LastContactedAt, "outreach counts regardless of completion")
	require.NotNil(t, touched.LastActivityAt)
}

func TestActivityStats(t *testing.T) {
	env := newTestEnv(t)

	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	nextWeek := time.Now().UTC().Add(7 * 24 * time.Hour)

	_, err := env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "task", Subject: "Overdue", DueDate: &yesterday,
	})
	require.NoError(t, err)
	_, err = env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "call", Subject: "Planned", DueDate: &nextWeek,
	})
	require.NoError(t, err)
	_, err = env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "email", Subject: "Done", Status: "completed",
	})
	require.NoError(t, err)

	stats, err := env.activities.GetStats(env.ctx, env.userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Overdue)
	assert.Equal(t, int64(1), stats.ByType["task"])
	assert.Equal(t, int64(1), stats.ByType["call"])
}

func TestActivityOverdueAndUpcoming(t *testing.T) {
	env := newTestEnv(t)

	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	tomorrow := time.Now().UTC().Add(24 * time.Hour)
	nextMonth := time.Now().UTC().AddDate(0, 1, 0)

	late, err := env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "task", Subject: "Late", DueDate: &yesterday,
	})
	require.NoError(t, err)
	soon, err := env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "task", Subject: "Soon", DueDate: &tomorrow,
	})
	require.NoError(t, err)
	_, err = env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "task", Subject: "Far", DueDate: &nextMonth,
	})
	require.NoError(t, err)

	overdue, err := env.activities.GetOverdue(env.ctx, env.userID, 0)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)

	upcoming, err := env.activities.GetUpcoming(env.ctx, env.userID, 7, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 1, "the default window hides far-out work")
	assert.Equal(t, soon.ID, upcoming[0].ID)
}

func TestActivityTimeline(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Sales"})
	require.NoError(t, err)
	deal, err := env.deals.Create(env.ctx, &domain.CreateDealRequest{Name: "Timeline deal", Value: 10})
	require.NoError(t, err)

	for _, subject := range []string{"first", "second", "third"} {
		_, err := env.activities.Create(env.ctx, &domain.CreateActivityRequest{
			Type: "note", Subject: subject, DealID: &deal.ID,
		})
		require.NoError(t, err)
	}

	timeline, err := env.activities.GetTimeline(env.ctx, "deal", deal.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), timeline.Total)
	entries, ok := timeline.Data.([]domain.TimelineEntry)
	require.True(t, ok)
	assert.Len(t, entries, 2)

	_, err = env.activities.GetTimeline(env.ctx, "pipeline", deal.ID, 0, 0)
	requireDomainCode(t, err, domain.CodeValidationError)
}

func TestActivityReminderClaim(t *testing.T) {
	env := newTestEnv(t)

	past := time.Now().UTC().Add(-time.Minute)
	activity, err := env.activities.Create(env.ctx, &domain.CreateActivityRequest{
		Type: "meeting", Subject: "Standup", ReminderAt: &past,
	})
	require.NoError(t, err)

	due, err := env.activityRepo.ListDueReminders(env.ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, activity.ID, due[0].ID)

	claimed, err := env.activityRepo.ClaimReminder(env.ctx, activity.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = env.activityRepo.ClaimReminder(env.ctx, activity.ID)
	require.NoError(t, err)
	assert.False(t, claimed, "a reminder fires once")

	due, err = env.activityRepo.ListDueReminders(env.ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}
