package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineCreateDefaultTemplate(t *testing.T) {
	env := newTestEnv(t)

	pipeline, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Sales"})
	require.NoError(t, err)

	assert.True(t, pipeline.IsDefault, "first pipeline becomes the default")
	assert.Equal(t, "USD", pipeline.Currency)
	require.Len(t, pipeline.Stages, 6)
	assert.Equal(t, "Qualification", pipeline.Stages[0].Name)
	assert.Equal(t, 10, pipeline.Stages[0].Probability)

	var won, lost int
	for _, stage := range pipeline.Stages {
		if stage.IsWon {
			won++
			assert.Equal(t, 100, stage.Probability)
		}
		if stage.IsLost {
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	for i, stage := range pipeline.Stages {
		assert.Equal(t, i+1, stage.DisplayOrder)
	}
}

func TestPipelineSingleDefault(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "First"})
	require.NoError(t, err)
	require.True(t, first.IsDefault)

	second, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Second", IsDefault: true})
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	first, err = env.pipelines.GetByID(env.ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, first.IsDefault, "promoting a pipeline demotes the previous default")

	// Demoting the default directly is rejected
	no := false
	_, err = env.pipelines.Update(env.ctx, second.ID, &domain.UpdatePipelineRequest{IsDefault: &no})
	requireDomainCode(t, err, domain.CodeInvalidOperation)
}

func TestPipelineCreateRejectsConflictingStageFlags(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{
		Name: "Broken",
		Stages: []domain.StageInput{
			{Name: "One", Probability: 50},
			{Name: "Both", Probability: 100, IsWon: true, IsLost: true},
		},
	})
	requireDomainCode(t, err, domain.CodeValidationError)
}

func TestPipelineQuotaLimit(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		_, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "P"})
		require.NoError(t, err)
	}
	_, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Over"})
	requireDomainCode(t, err, domain.CodeLimitExceeded)
}

func TestPipelineDeleteGuards(t *testing.T) {
	env := newTestEnv(t)

	pipeline, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Main"})
	require.NoError(t, err)
	secondary, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Side"})
	require.NoError(t, err)

	_, err = env.deals.Create(env.ctx, &domain.CreateDealRequest{Name: "Big deal", PipelineID: &pipeline.ID, Value: 100})
	require.NoError(t, err)

	err = env.pipelines.Delete(env.ctx, pipeline.ID)
	requireDomainCode(t, err, domain.CodeInvalidOperation)

	// Deleting the default promotes another pipeline
	require.NoError(t, env.pipelines.Delete(env.ctx, secondary.ID))
	def, err := env.pipelines.GetDefault(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, pipeline.ID, def.ID)
}

func TestPipelineDeleteDefaultPromotesRemaining(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "First"})
	require.NoError(t, err)
	second, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Second"})
	require.NoError(t, err)

	require.NoError(t, env.pipelines.Delete(env.ctx, first.ID))

	def, err := env.pipelines.GetDefault(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)
}

func TestStageLifecycle(t *testing.T) {
	env := newTestEnv(t)

	pipeline, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Sales"})
	require.NoError(t, err)

	stage, err := env.pipelines.CreateStage(env.ctx, pipeline.ID, &domain.CreateStageRequest{
		Name: "Review", Probability: 75,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, stage.DisplayOrder, "new stage appended after the template stages")

	// A second won stage is rejected
	_, err = env.pipelines.CreateStage(env.ctx, pipeline.ID, &domain.CreateStageRequest{
		Name: "Also won", Probability: 100, IsWon: true,
	})
	requireDomainCode(t, err, domain.CodeInvalidOperation)

	p := 80
	updated, err := env.pipelines.UpdateStage(env.ctx, pipeline.ID, stage.ID, &domain.UpdateStageRequest{Probability: &p})
	require.NoError(t, err)
	assert.Equal(t, 80, updated.Probability)

	require.NoError(t, env.pipelines.DeleteStage(env.ctx, pipeline.ID, stage.ID))
}

func TestStageDeleteWithDealsRejected(t *testing.T) {
	env := newTestEnv(t)

	pipeline, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Sales"})
	require.NoError(t, err)
	deal, err := env.deals.Create(env.ctx, &domain.CreateDealRequest{Name: "Deal", Value: 10})
	require.NoError(t, err)

	err = env.pipelines.DeleteStage(env.ctx, pipeline.ID, deal.StageID)
	requireDomainCode(t, err, domain.CodeInvalidOperation)
}

func TestReorderStages(t *testing.T) {
	env := newTestEnv(t)

	pipeline, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Sales"})
	require.NoError(t, err)

	ids := make([]uuid.UUID, len(pipeline.Stages))
	for i, stage := range pipeline.Stages {
		ids[len(ids)-1-i] = stage.ID
	}
	reordered, err := env.pipelines.ReorderStages(env.ctx, pipeline.ID, &domain.ReorderStagesRequest{StageIDs: ids})
	require.NoError(t, err)
	require.Len(t, reordered, len(ids))
	for i, stage := range reordered {
		assert.Equal(t, ids[i], stage.ID)
		assert.Equal(t, i+1, stage.DisplayOrder)
	}

	// A partial list is rejected
	_, err = env.pipelines.ReorderStages(env.ctx, pipeline.ID, &domain.ReorderStagesRequest{StageIDs: ids[:2]})
	requireDomainCode(t, err, domain.CodeValidationError)

	// An ID from another pipeline is rejected
	foreign := append([]uuid.UUID{}, ids...)
	foreign[0] = uuid.New()
	_, err = env.pipelines.ReorderStages(env.ctx, pipeline.ID, &domain.ReorderStagesRequest{StageIDs: foreign})
	requireDomainCode(t, err, domain.CodeValidationError)
}

func TestPipelineTenantIsolation(t *testing.T) {
	env := newTestEnv(t)

	pipeline, err := env.pipelines.Create(env.ctx, &domain.CreatePipelineRequest{Name: "Mine"})
	require.NoError(t, err)

	_, err = env.pipelines.GetByID(env.otherOrgCtx(), pipeline.ID)
	requireDomainCode(t, err, domain.CodeEntityNotFound)
}
