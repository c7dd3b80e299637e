package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/finding-service/internal/domain"
	"github.com/plantops/finding-service/pkg/util"
)

func TestCandidatesFiltersByLevel(t *testing.T) {
	directory := newFakeDirectory()
	directory.add("op-1", domain.LevelOperator, true)
	directory.add("eng-2", domain.LevelEngineer, true)
	directory.add("sen-3", domain.LevelSenior, true)
	directory.add("mgr-4", domain.LevelManager, true)
	directory.add("eng-off", domain.LevelEngineer, false)

	svc := NewAssignmentService(directory)

	candidates, err := svc.Candidates(context.Background(), domain.LevelEngineer, false)
	require.NoError(t, err)
	assert.Len(t, candidates, 3)
	for _, candidate := range candidates {
		assert.GreaterOrEqual(t, candidate.ApprovalLevel, domain.LevelEngineer)
		assert.True(t, candidate.Active)
	}
}

func TestCandidatesEscalationOnlyMatchesExactLevelThree(t *testing.T) {
	directory := newFakeDirectory()
	directory.add("eng-2", domain.LevelEngineer, true)
	directory.add("sen-3", domain.LevelSenior, true)
	directory.add("mgr-4", domain.LevelManager, true)

	svc := NewAssignmentService(directory)

	candidates, err := svc.Candidates(context.Background(), 0, true)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "sen-3", candidates[0].ID)
}

func TestCandidatesClampsMinLevelToOperator(t *testing.T) {
	directory := newFakeDirectory()
	directory.add("op-1", domain.LevelOperator, true)
	directory.add("eng-2", domain.LevelEngineer, true)

	svc := NewAssignmentService(directory)

	candidates, err := svc.Candidates(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)

	candidates, err = svc.Candidates(context.Background(), -3, false)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestCandidatesEmptyPool(t *testing.T) {
	directory := newFakeDirectory()
	directory.add("op-1", domain.LevelOperator, true)

	svc := NewAssignmentService(directory)

	_, err := svc.Candidates(context.Background(), domain.LevelEngineer, false)
	require.Error(t, err)
	assert.Equal(t, util.CodeNoEligibleAssignee, util.CodeOf(err))
}

func TestValidateAssignee(t *testing.T) {
	directory := newFakeDirectory()
	directory.add("eng-2", domain.LevelEngineer, true)
	directory.add("op-1", domain.LevelOperator, true)
	directory.add("eng-off", domain.LevelEngineer, false)

	svc := NewAssignmentService(directory)

	employee, err := svc.ValidateAssignee(context.Background(), "eng-2", domain.LevelEngineer)
	require.NoError(t, err)
	assert.Equal(t, "eng-2", employee.ID)

	_, err = svc.ValidateAssignee(context.Background(), "op-1", domain.LevelEngineer)
	require.Error(t, err)
	assert.Equal(t, util.CodeValidationFailed, util.CodeOf(err))

	_, err = svc.ValidateAssignee(context.Background(), "eng-off", domain.LevelEngineer)
	require.Error(t, err)
	assert.Equal(t, util.CodeValidationFailed, util.CodeOf(err))

	_, err = svc.ValidateAssignee(context.Background(), "nobody", domain.LevelEngineer)
	require.Error(t, err)
	assert.Equal(t, util.CodeNotFound, util.CodeOf(err))
}

func TestValidateEscalationTarget(t *testing.T) {
	directory := newFakeDirectory()
	directory.add("sen-3", domain.LevelSenior, true)
	directory.add("eng-2", domain.LevelEngineer, true)
	directory.add("mgr-4", domain.LevelManager, true)

	svc := NewAssignmentService(directory)

	target, err := svc.ValidateEscalationTarget(context.Background(), "sen-3")
	require.NoError(t, err)
	assert.Equal(t, domain.LevelSenior, target.ApprovalLevel)

	for _, id := range []string{"eng-2", "mgr-4"} {
		_, err := svc.ValidateEscalationTarget(context.Background(), id)
		require.Errorf(t, err, "target %s", id)
		assert.Equal(t, util.CodeValidationFailed, util.CodeOf(err))
	}
}
