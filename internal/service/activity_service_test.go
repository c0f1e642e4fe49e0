package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bilim-edu/grading-api/internal/dto"
	"github.com/bilim-edu/grading-api/internal/models"
	"github.com/bilim-edu/grading-api/internal/repository"
)

type fakeActivityLogRepo struct {
	entries []models.ActivityLog
	nextID  uint
}

func (r *fakeActivityLogRepo) Create(_ context.Context, entry *models.ActivityLog) error {
	r.nextID++
	entry.ID = r.nextID
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeActivityLogRepo) List(_ context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	var matched []models.ActivityLog
	for _, entry := range r.entries {
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && entry.EntityType != filter.EntityType {
			continue
		}
		if filter.ActorID != nil && entry.ActorID != *filter.ActorID {
			continue
		}
		matched = append(matched, entry)
	}
	return matched, int64(len(matched)), nil
}

func TestActivityRecordNormalizesAndSanitizes(t *testing.T) {
	repo := &fakeActivityLogRepo{}
	service := NewActivityService(repo, testLogger())

	entityID := uint(12)
	response, err := service.Record(context.Background(), ActivityEntry{
		ActorID:    3,
		ActorRole:  " Admin ",
		Action:     " Review.Approved ",
		EntityType: "Submission",
		EntityID:   &entityID,
		Metadata: map[string]interface{}{
			"points":        68,
			"student_email": "aysel@example.com",
		},
	})

	require.NoError(t, err)
	require.Equal(t, "review.approved", response.Action)
	require.Equal(t, "submission", response.EntityType)
	require.Equal(t, "admin", repo.entries[0].ActorRole)
	require.Equal(t, "***", repo.entries[0].Metadata["student_email"])
	require.Equal(t, 68, repo.entries[0].Metadata["points"])
}

func TestActivityRecordSystemActor(t *testing.T) {
	repo := &fakeActivityLogRepo{}
	service := NewActivityService(repo, testLogger())

	_, err := service.Record(context.Background(), ActivityEntry{
		Action:     "autograde.batch_completed",
		EntityType: "submission_batch",
	})

	require.NoError(t, err)
	require.Equal(t, "system", repo.entries[0].ActorRole)
}

func TestActivityRecordRequiresAction(t *testing.T) {
	service := NewActivityService(&fakeActivityLogRepo{}, testLogger())

	_, err := service.Record(context.Background(), ActivityEntry{EntityType: "submission"})
	require.Error(t, err)
}

func TestActivityListFilters(t *testing.T) {
	repo := &fakeActivityLogRepo{}
	service := NewActivityService(repo, testLogger())

	for _, action := range []string{"review.approved", "review.rejected", "autograde.batch_completed"} {
		_, err := service.Record(context.Background(), ActivityEntry{
			ActorID:    5,
			ActorRole:  "admin",
			Action:     action,
			EntityType: "submission",
		})
		require.NoError(t, err)
	}

	result, err := service.List(context.Background(), dto.AdminActivityListRequest{
		Page:     1,
		PageSize: 20,
		Action:   "review.approved",
	})

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, int64(1), result.Pagination.TotalItems)
	require.Equal(t, 1, result.Pagination.TotalPages)
}
