package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/auth"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/cache"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/config"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/events"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/quota"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testEnv wires the full service stack over an in-memory database with
// the quota service in fallback mode and events discarded.
type testEnv struct {
	db     *gorm.DB
	orgID  uuid.UUID
	userID uuid.UUID
	ctx    context.Context

	contactRepo  *repository.ContactRepository
	companyRepo  *repository.CompanyRepository
	leadRepo     *repository.LeadRepository
	pipelineRepo *repository.PipelineRepository
	dealRepo     *repository.DealRepository
	activityRepo *repository.ActivityRepository

	contacts     *ContactService
	companies    *CompanyService
	leads        *LeadService
	pipelines    *PipelineService
	deals        *DealService
	activities   *ActivityService
	tags         *TagService
	forms        *FormService
	customFields *CustomFieldService
	search       *SearchService
	audit        *AuditLogService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.AllModels()...))

	log := zap.NewNop()
	cacheClient := cache.New(nil, log)
	cacheCfg := &config.CacheConfig{PipelineTTL: 300, ActivityStatsTTL: 60}
	quotaClient := quota.NewClient(&config.QuotaConfig{
		Enabled: false,
		FallbackLimits: map[string]int64{
			"contacts":      1000,
			"companies":     500,
			"leads":         1000,
			"deals":         500,
			"pipelines":     3,
			"custom_fields": 20,
		},
	}, log)
	publisher := events.NopPublisher{}

	contactRepo := repository.NewContactRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	pipelineRepo := repository.NewPipelineRepository(db)
	dealRepo := repository.NewDealRepository(db)
	historyRepo := repository.NewDealStageHistoryRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	tagRepo := repository.NewTagRepository(db)
	customFieldRepo := repository.NewCustomFieldRepository(db)
	formRepo := repository.NewFormRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)

	auditService := NewAuditLogService(auditLogRepo, log)
	tagService := NewTagService(tagRepo, quotaClient, auditService, log)

	scanners := map[domain.TagEntityType]UniqueScanFunc{
		domain.TagEntityContact: func(ctx context.Context, pattern string, excludeID *uuid.UUID) ([]domain.EntityData, error) {
			rows, err := contactRepo.FindUniqueValue(ctx, pattern, excludeID)
			if err != nil {
				return nil, err
			}
			docs := make([]domain.EntityData, len(rows))
			for i, row := range rows {
				docs[i] = row.EntityData
			}
			return docs, nil
		},
		domain.TagEntityLead: func(ctx context.Context, pattern string, excludeID *uuid.UUID) ([]domain.EntityData, error) {
			rows, err := leadRepo.FindUniqueValue(ctx, pattern, excludeID)
			if err != nil {
				return nil, err
			}
			docs := make([]domain.EntityData, len(rows))
			for i, row := range rows {
				docs[i] = row.EntityData
			}
			return docs, nil
		},
	}
	formService := NewFormService(formRepo, customFieldRepo, scanners, log)

	env := &testEnv{
		db:           db,
		orgID:        uuid.New(),
		userID:       uuid.New(),
		contactRepo:  contactRepo,
		companyRepo:  companyRepo,
		leadRepo:     leadRepo,
		pipelineRepo: pipelineRepo,
		dealRepo:     dealRepo,
		activityRepo: activityRepo,
		audit:        auditService,
		tags:         tagService,
		forms:        formService,
	}

	env.contacts = NewContactService(db, contactRepo, companyRepo, tagService, formService, quotaClient, publisher, auditService, log)
	env.companies = NewCompanyService(db, companyRepo, contactRepo, tagService, formService, quotaClient, publisher, auditService, log)
	env.leads = NewLeadService(db, leadRepo, contactRepo, companyRepo, dealRepo, historyRepo, pipelineRepo, tagService, formService, quotaClient, publisher, auditService, log)
	env.pipelines = NewPipelineService(db, pipelineRepo, cacheClient, cacheCfg, quotaClient, auditService, log)
	env.deals = NewDealService(db, dealRepo, historyRepo, pipelineRepo, contactRepo, companyRepo, tagService, formService, quotaClient, publisher, auditService, log)
	env.activities = NewActivityService(db, activityRepo, contactRepo, companyRepo, dealRepo, leadRepo, cacheClient, cacheCfg, publisher, auditService, log)
	env.search = NewSearchService(contactRepo, companyRepo, leadRepo, dealRepo, log)
	env.customFields = NewCustomFieldService(customFieldRepo, formRepo, quotaClient, auditService, log)

	env.ctx = env.contextFor(env.orgID, env.userID)
	return env
}

// contextFor builds a request context for an org admin of the given org
func (e *testEnv) contextFor(orgID, userID uuid.UUID) context.Context {
	return auth.WithTenantContext(context.Background(), &auth.TenantContext{
		UserID:      userID,
		OrgID:       orgID,
		DisplayName: "Test User",
		Email:       "test@example.com",
		Roles:       []domain.UserRoleType{domain.RoleOrgAdmin},
	})
}

// otherOrgCtx returns a context scoped to a different tenant
func (e *testEnv) otherOrgCtx() context.Context {
	return e.contextFor(uuid.New(), uuid.New())
}
