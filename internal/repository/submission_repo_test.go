package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bilim-edu/grading-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:submission_repo?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Student{}, &models.Task{}, &models.Submission{}))
	require.NoError(t, db.Exec("DELETE FROM submissions").Error)
	return db
}

func seedPair(t *testing.T, db *gorm.DB) (models.Student, models.Task) {
	t.Helper()
	student := models.Student{Name: "Nigar Əliyeva", Email: "nigar@example.com"}
	require.NoError(t, db.FirstOrCreate(&student, models.Student{Email: "nigar@example.com"}).Error)
	task := models.Task{Title: "Proqramlaşdırma", MaxScore: 100}
	require.NoError(t, db.FirstOrCreate(&task, models.Task{Title: "Proqramlaşdırma"}).Error)
	return student, task
}

func TestSubmissionRepositoryListPendingOrdersOldestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	student, task := seedPair(t, db)

	newer := models.Submission{TaskID: task.ID, StudentID: student.ID, Status: models.SubmissionStatusSubmitted, SubmittedAt: time.Now().Add(-time.Hour)}
	older := models.Submission{TaskID: task.ID, StudentID: student.ID, Status: models.SubmissionStatusSubmitted, SubmittedAt: time.Now().Add(-3 * time.Hour)}
	graded := models.Submission{TaskID: task.ID, StudentID: student.ID, Status: models.SubmissionStatusGraded, SubmittedAt: time.Now().Add(-4 * time.Hour)}
	require.NoError(t, db.Create(&newer).Error)
	require.NoError(t, db.Create(&older).Error)
	require.NoError(t, db.Create(&graded).Error)

	pending, err := repo.ListPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, older.ID, pending[0].ID, "expected oldest submission first")
	require.Equal(t, "Nigar Əliyeva", pending[0].Student.Name)
	require.Equal(t, "Proqramlaşdırma", pending[0].Task.Title)

	limited, err := repo.ListPending(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestSubmissionRepositoryListNeedsReviewOrdersNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	student, task := seedPair(t, db)

	olderAt := time.Now().Add(-2 * time.Hour)
	newerAt := time.Now().Add(-time.Hour)
	first := models.Submission{TaskID: task.ID, StudentID: student.ID, Status: models.SubmissionStatusPendingReview, NeedsReview: true, SubmittedAt: olderAt, AutoGradedAt: &olderAt}
	second := models.Submission{TaskID: task.ID, StudentID: student.ID, Status: models.SubmissionStatusPendingReview, NeedsReview: true, SubmittedAt: olderAt, AutoGradedAt: &newerAt}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	flagged, err := repo.ListNeedsReview(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, flagged, 2)
	require.Equal(t, second.ID, flagged[0].ID, "expected newest auto-graded first")

	count, err := repo.CountNeedsReview(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestSubmissionRepositoryStatusProbeHelpers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	student, task := seedPair(t, db)

	last, err := repo.LastAutoGradedAt(context.Background())
	require.NoError(t, err)
	require.Nil(t, last)

	gradedAt := time.Now().Add(-30 * time.Minute).UTC().Truncate(time.Second)
	submission := models.Submission{TaskID: task.ID, StudentID: student.ID, Status: models.SubmissionStatusGraded, SubmittedAt: time.Now().Add(-time.Hour), AutoGradedAt: &gradedAt}
	require.NoError(t, db.Create(&submission).Error)

	count, err := repo.CountByStatus(context.Background(), models.SubmissionStatusGraded)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	last, err = repo.LastAutoGradedAt(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	require.WithinDuration(t, gradedAt, *last, time.Second)
}
