package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"gorm.io/gorm"
)

var activityOrderFields = map[string]string{
	"created_at":   "created_at",
	"updated_at":   "updated_at",
	"due_date":     "due_date",
	"subject":      "subject",
	"status":       "status",
	"priority":     "priority",
	"completed_at": "completed_at",
}

var activityFilterFields = map[string]FilterField{
	"type":        {Column: "type", Kind: KindEnum},
	"subject":     {Column: "subject", Kind: KindText},
	"status":      {Column: "status", Kind: KindEnum},
	"priority":    {Column: "priority", Kind: KindEnum},
	"assigned_to": {Column: "assigned_to", Kind: KindUUID},
	"contact_id":  {Column: "contact_id", Kind: KindUUID},
	"company_id":  {Column: "company_id", Kind: KindUUID},
	"deal_id":     {Column: "deal_id", Kind: KindUUID},
	"lead_id":     {Column: "lead_id", Kind: KindUUID},
	"owner_id":    {Column: "owner_id", Kind: KindUUID},
	"due_date":    {Column: "due_date", Kind: KindDate},
	"created_at":  {Column: "created_at", Kind: KindDate},
}

// ActivityRepository handles database operations for activities
type ActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ActivityRepository) WithTx(tx *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: tx}
}

// List returns a filtered, ordered page of activities with the total count
func (r *ActivityRepository) List(ctx context.Context, params domain.ListParams) ([]domain.Activity, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Activity{}).Scopes(TenantScope(ctx))

	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(subject) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	query = ApplyFilters(query, params.Filters, params.FilterLogic, activityFilterFields)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var activities []domain.Activity
	err := query.
		Order(BuildOrderClause(params.OrderBy, activityOrderFields)).
		Limit(params.Limit()).
		Offset(params.Offset()).
		Find(&activities).Error
	return activities, total, err
}

// GetByID returns an activity within the request's tenant
func (r *ActivityRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Activity, error) {
	var activity domain.Activity
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		First(&activity, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// Create inserts a new activity
func (r *ActivityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// Update saves an existing activity
func (r *ActivityRepository) Update(ctx context.Context, activity *domain.Activity) error {
	return r.db.WithContext(ctx).Save(activity).Error
}

// SoftDelete hides an activity, recording who deleted it
func (r *ActivityRepository) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Activity{}).
		Scopes(TenantScope(ctx)).
		Where("id = ?", id).
		Updates(map[string]interface{}{"deleted_at": time.Now().UTC(), "deleted_by": deletedBy}).Error
}

// HardDelete permanently removes an activity
func (r *ActivityRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().
		Scopes(TenantScope(ctx)).
		Delete(&domain.Activity{}, "id = ?", id).Error
}

// statsRow carries the single-scan aggregate for Stats
type statsRow struct {
	Type              domain.ActivityType
	Total             int64
	Pending           int64
	InProgress        int64
	Completed         int64
	Overdue           int64
	DueToday          int64
	CompletedThisWeek int64
}

// Stats aggregates the assignee's activity counters in one query.
// Overdue counts pending or in-progress work past its due date.
func (r *ActivityRepository) Stats(ctx context.Context, assignedTo uuid.UUID, now time.Time) (*domain.ActivityStats, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)
	weekStart := now.AddDate(0, 0, -7)

	var rows []statsRow
	err := r.db.WithContext(ctx).Model(&domain.Activity{}).
		Select(`type,
			COUNT(*) AS total,
			SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END) AS pending,
			SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END) AS in_progress,
			SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS completed,
			SUM(CASE WHEN status IN ('pending', 'in_progress') AND due_date IS NOT NULL AND due_date < ? THEN 1 ELSE 0 END) AS overdue,
			SUM(CASE WHEN status IN ('pending', 'in_progress') AND due_date >= ? AND due_date < ? THEN 1 ELSE 0 END) AS due_today,
			SUM(CASE WHEN status = 'completed' AND completed_at >= ? THEN 1 ELSE 0 END) AS completed_this_week`,
			now, dayStart, dayEnd, weekStart).
		Scopes(TenantScope(ctx)).
		Where("assigned_to = ?", assignedTo).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &domain.ActivityStats{ByType: make(map[string]int64)}
	for _, row := range rows {
		stats.Total += row.Total
		stats.Pending += row.Pending
		stats.InProgress += row.InProgress
		stats.Completed += row.Completed
		stats.Overdue += row.Overdue
		stats.DueToday += row.DueToday
		stats.CompletedThisWeek += row.CompletedThisWeek
		stats.ByType[string(row.Type)] = row.Total
	}
	return stats, nil
}

// ListOverdue returns unfinished activities past their due date
func (r *ActivityRepository) ListOverdue(ctx context.Context, assignedTo uuid.UUID, now time.Time, limit int) ([]domain.Activity, error) {
	var activities []domain.Activity
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("assigned_to = ? AND status IN ? AND due_date IS NOT NULL AND due_date < ?",
			assignedTo,
			[]domain.ActivityStatus{domain.ActivityStatusPending, domain.ActivityStatusInProgress},
			now).
		Order("due_date ASC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// ListUpcoming returns unfinished activities due in the window
func (r *ActivityRepository) ListUpcoming(ctx context.Context, assignedTo uuid.UUID, from, until time.Time, limit int) ([]domain.Activity, error) {
	var activities []domain.Activity
	err := r.db.WithContext(ctx).Scopes(TenantScope(ctx)).
		Where("assigned_to = ? AND status IN ? AND due_date >= ? AND due_date <= ?",
			assignedTo,
			[]domain.ActivityStatus{domain.ActivityStatusPending, domain.ActivityStatusInProgress},
			from, until).
		Order("due_date ASC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// ListForEntity returns the newest-first activity timeline of one
// contact, company, deal or lead.
func (r *ActivityRepository) ListForEntity(ctx context.Context, column string, entityID uuid.UUID, limit, offset int) ([]domain.Activity, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Activity{}).
		Scopes(TenantScope(ctx)).
		Where(column+" = ?", entityID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var activities []domain.Activity
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&activities).Error
	return activities, total, err
}

// ListDueReminders returns activities whose reminder time has passed and
// was not yet sent. Spans all tenants; called from the scheduler.
func (r *ActivityRepository) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]domain.Activity, error) {
	var activities []domain.Activity
	err := r.db.WithContext(ctx).
		Where("reminder_at IS NOT NULL AND reminder_at <= ? AND reminder_sent = ? AND status IN ?",
			now, false,
			[]domain.ActivityStatus{domain.ActivityStatusPending, domain.ActivityStatusInProgress}).
		Order("reminder_at ASC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// ClaimReminder flips reminder_sent only if still unsent, so concurrent
// schedulers deliver each reminder once. Returns true when this caller
// won the claim.
func (r *ActivityRepository) ClaimReminder(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Activity{}).
		Where("id = ? AND reminder_sent = ?", id, false).
		Update("reminder_sent", true)
	return result.RowsAffected > 0, result.Error
}
