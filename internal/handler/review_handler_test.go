package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bilim-edu/grading-api/internal/dto"
	"github.com/bilim-edu/grading-api/internal/handler"
	"github.com/bilim-edu/grading-api/internal/models"
	"github.com/bilim-edu/grading-api/internal/repository"
	"github.com/bilim-edu/grading-api/internal/router"
	"github.com/bilim-edu/grading-api/internal/service"
	"github.com/bilim-edu/grading-api/internal/utils"
)

func setupReviewApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:review_handler?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Student{}, &models.Task{}, &models.Submission{}, &models.ActivityLog{}))
	require.NoError(t, db.Exec("DELETE FROM submissions").Error)

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	submissionRepo := repository.NewSubmissionRepository(db)
	reviewService := service.NewReviewService(submissionRepo, validate, nil, nil, 0, logger)

	app := fiber.New()
	reviewHandler := handler.NewReviewHandler(reviewService, logger)

	router.Register(app, testConfig(), router.Dependencies{
		ReviewHandler: reviewHandler,
		JWTMiddleware: adminStub("admin"),
	})

	return app, db
}

func seedFlagged(t *testing.T, db *gorm.DB, aiScore int) models.Submission {
	t.Helper()

	student := models.Student{Name: "Rauf Quliyev", Email: "rauf@example.com"}
	require.NoError(t, db.FirstOrCreate(&student, models.Student{Email: "rauf@example.com"}).Error)

	task := models.Task{Title: "Verilənlər bazası", Instructions: "Sorğular yazın", MaxScore: 100}
	require.NoError(t, db.FirstOrCreate(&task, models.Task{Title: "Verilənlər bazası"}).Error)

	autoGradedAt := time.Now().Add(-time.Minute)
	submission := models.Submission{
		TaskID:       task.ID,
		StudentID:    student.ID,
		Status:       models.SubmissionStatusPendingReview,
		AIScore:      &aiScore,
		Feedback:     "Cavab natamamdır.",
		NeedsReview:  true,
		SubmittedAt:  time.Now().Add(-time.Hour),
		AutoGradedAt: &autoGradedAt,
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}

func TestReviewQueueListsFlaggedSubmissions(t *testing.T) {
	app, db := setupReviewApp(t)
	seeded := seedFlagged(t, db, 55)

	req := httptest.NewRequest(fiber.MethodGet, "/api/admin/review", nil)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var envelope struct {
		Success bool                    `json:"success"`
		Data    dto.ReviewQueueResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success)
	require.Equal(t, 1, envelope.Data.Count)
	require.Equal(t, seeded.ID, envelope.Data.Items[0].SubmissionID)
	require.Equal(t, "Rauf Quliyev", envelope.Data.Items[0].StudentName)
	require.Equal(t, 55, *envelope.Data.Items[0].AIScore)
}

func TestReviewDecideApprove(t *testing.T) {
	app, db := setupReviewApp(t)
	seeded := seedFlagged(t, db, 55)

	points := 68
	feedback := "Yenidən baxdım, cavab qəbul olunur."
	body, err := json.Marshal(dto.ReviewDecisionRequest{
		SubmissionID: seeded.ID,
		FinalPoints:  &points,
		Feedback:     &feedback,
		Approved:     true,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPatch, "/api/admin/review", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored models.Submission
	require.NoError(t, db.First(&stored, seeded.ID).Error)
	require.Equal(t, models.SubmissionStatusGraded, stored.Status)
	require.Equal(t, 68, *stored.Points)
	require.Equal(t, feedback, stored.Feedback)
	require.False(t, stored.NeedsReview)
	require.NotNil(t, stored.GradedAt)
}

func TestReviewDecideReject(t *testing.T) {
	app, db := setupReviewApp(t)
	seeded := seedFlagged(t, db, 40)

	body, err := json.Marshal(dto.ReviewDecisionRequest{SubmissionID: seeded.ID, Approved: false})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPatch, "/api/admin/review", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored models.Submission
	require.NoError(t, db.First(&stored, seeded.ID).Error)
	require.Equal(t, models.SubmissionStatusRejected, stored.Status)
	require.Nil(t, stored.Points)
	require.False(t, stored.NeedsReview)
}

func TestReviewDecideUnknownSubmission(t *testing.T) {
	app, _ := setupReviewApp(t)

	body, err := json.Marshal(dto.ReviewDecisionRequest{SubmissionID: 987654, Approved: true})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPatch, "/api/admin/review", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var envelope utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.False(t, envelope.Success)
}

func TestReviewDecideMissingSubmissionID(t *testing.T) {
	app, _ := setupReviewApp(t)

	req := httptest.NewRequest(fiber.MethodPatch, "/api/admin/review", bytes.NewReader([]byte(`{"approved":true}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
