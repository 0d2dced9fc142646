package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/BVG-Design/brokercompare-sub001/internal/assessment"
	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
	"github.com/BVG-Design/brokercompare-sub001/internal/leaderboard"
	"github.com/BVG-Design/brokercompare-sub001/internal/monitoring"
	"github.com/BVG-Design/brokercompare-sub001/internal/scoring"
)

type createAssessmentRequest struct {
	VendorID    string                  `json:"vendor_id" binding:"required,max=128"`
	VendorName  string                  `json:"vendor_name" binding:"max=200"`
	Application *assessment.Application `json:"application,omitempty"`
}

type addFeatureRequest struct {
	Category string `json:"category" binding:"required"`
	Name     string `json:"name" binding:"max=200"`
}

type validateResponse struct {
	State  assessment.State            `json:"state"`
	Report assessment.ValidationReport `json:"report"`
	Error  *apperrors.Response         `json:"error,omitempty"`
}

// bindJSON decodes the body into req and attaches a validation error on failure
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		_ = c.Error(apperrors.ToAppError(err))
	} else {
		_ = c.Error(apperrors.NewValidationError(apperrors.CodeInvalidRequest,
			"malformed request body", map[string]string{"body": err.Error()}))
	}
	return false
}

// isBlocked reports whether err is a finalize precondition failure.
func isBlocked(err error) bool {
	return apperrors.HasCode(err, apperrors.CodeNoScoredFeatures) ||
		apperrors.HasCode(err, apperrors.CodeUnnamedFeatures)
}

func (s *server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{}

	if err := s.db.Health(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		checks["database"] = err.Error()
	} else {
		checks["database"] = "ok"
	}

	if s.redis.IsEnabled() {
		if err := s.redis.HealthCheck(c.Request.Context()); err != nil {
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	} else {
		checks["redis"] = "disabled"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":           state,
		"version":          version,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"checks":           checks,
		"open_assessments": s.registry.Len(),
		"database_pool":    s.db.GetPoolStats(),
		"rate_limiter":     s.limiter.GetStats(),
	})
}

func (s *server) handleCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": scoring.Categories(),
		"boosts":     []scoring.Boost{scoring.BoostNone, scoring.BoostAssisted, scoring.BoostNative},
		"score_range": gin.H{
			"min": scoring.MinScore,
			"max": scoring.MaxScore,
		},
	})
}

func (s *server) handleCreateAssessment(c *gin.Context) {
	var req createAssessmentRequest
	if !bindJSON(c, &req) {
		return
	}

	var a *assessment.Assessment
	if req.Application != nil {
		app := *req.Application
		app.VendorID = req.VendorID
		if strings.TrimSpace(app.VendorName) == "" {
			app.VendorName = req.VendorName
		}

		var err error
		if a, err = assessment.FromApplication(app); err != nil {
			_ = c.Error(err)
			return
		}
	} else {
		a = assessment.New(strings.TrimSpace(req.VendorID), strings.TrimSpace(req.VendorName))
	}

	view := s.registry.Add(a)
	s.metrics.RecordAssessmentEvent(monitoring.EventCreated)
	s.logger.AssessmentLogger(monitoring.EventCreated, view.ID, view.VendorID, view.OverallScore)

	c.JSON(http.StatusCreated, view)
}

func (s *server) handleGetAssessment(c *gin.Context) {
	view, err := s.registry.View(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *server) handleDiscardAssessment(c *gin.Context) {
	id := c.Param("id")
	if !s.registry.Remove(id) {
		_ = c.Error(apperrors.NewNotFoundError(apperrors.CodeAssessmentNotFound, "assessment", id))
		return
	}

	s.metrics.RecordAssessmentEvent(monitoring.EventDiscarded)
	c.Status(http.StatusNoContent)
}

func (s *server) handleAddFeature(c *gin.Context) {
	var req addFeatureRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := scoring.ParseCategory(req.Category)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var feature scoring.Feature
	err = s.registry.Do(c.Param("id"), func(a *assessment.Assessment) error {
		var addErr error
		if feature, addErr = a.AddFeature(category); addErr != nil {
			return addErr
		}
		if name := strings.TrimSpace(req.Name); name != "" {
			feature, addErr = a.UpdateFeature(feature.ID, scoring.FeatureUpdate{Name: &name})
		}
		return addErr
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, feature)
}

func (s *server) handleUpdateFeature(c *gin.Context) {
	var update scoring.FeatureUpdate
	if !bindJSON(c, &update) {
		return
	}

	var view assessment.View
	err := s.registry.Do(c.Param("id"), func(a *assessment.Assessment) error {
		if _, err := a.UpdateFeature(c.Param("featureId"), update); err != nil {
			return err
		}
		view = a.View()
		return nil
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *server) handleRemoveFeature(c *gin.Context) {
	err := s.registry.Do(c.Param("id"), func(a *assessment.Assessment) error {
		return a.RemoveFeature(c.Param("featureId"))
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) handleSetListing(c *gin.Context) {
	var listing assessment.Listing
	if !bindJSON(c, &listing) {
		return
	}

	var view assessment.View
	err := s.registry.Do(c.Param("id"), func(a *assessment.Assessment) error {
		if err := a.SetListing(listing); err != nil {
			return err
		}
		view = a.View()
		return nil
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *server) handleValidate(c *gin.Context) {
	id := c.Param("id")

	var (
		report      assessment.ValidationReport
		state       assessment.State
		validateErr error
	)
	err := s.registry.Do(id, func(a *assessment.Assessment) error {
		if a.State() == assessment.StateFinalized {
			_, finalizedErr := a.Validate()
			return finalizedErr
		}
		report, validateErr = a.Validate()
		state = a.State()
		return nil
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	s.logger.ValidationLogger(id, report.Valid, len(report.Blocking), len(report.Warnings))

	if validateErr != nil {
		s.metrics.RecordAssessmentEvent(monitoring.EventBlocked)
		appErr := apperrors.ToAppError(validateErr)
		resp := appErr.Response()
		c.JSON(appErr.HTTPStatus, validateResponse{State: state, Report: report, Error: &resp})
		return
	}

	s.metrics.RecordAssessmentEvent(monitoring.EventValidated)
	c.JSON(http.StatusOK, validateResponse{State: state, Report: report})
}

func (s *server) handleFinalize(c *gin.Context) {
	var (
		snapshot         assessment.Snapshot
		alreadyFinalized bool
	)
	err := s.registry.Do(c.Param("id"), func(a *assessment.Assessment) error {
		alreadyFinalized = a.State() == assessment.StateFinalized

		var finalizeErr error
		snapshot, finalizeErr = a.Finalize(c.Request.Context(), s.leaderboard)
		return finalizeErr
	})
	if err != nil {
		if isBlocked(err) {
			s.metrics.RecordAssessmentEvent(monitoring.EventBlocked)
		}
		_ = c.Error(err)
		return
	}

	if !alreadyFinalized {
		s.metrics.RecordAssessmentEvent(monitoring.EventFinalized)
		s.metrics.ObserveFinalizedScore(snapshot.OverallScore)
		s.logger.AssessmentLogger(monitoring.EventFinalized, snapshot.AssessmentID, snapshot.VendorID, snapshot.OverallScore)
	}

	c.JSON(http.StatusOK, snapshot)
}

func (s *server) handleGetSnapshot(c *gin.Context) {
	snapshot, err := s.leaderboard.GetSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, snapshot.Public())
}

func (s *server) handleLeaderboard(c *gin.Context) {
	var query leaderboard.Query
	if raw := strings.TrimSpace(c.Query("region")); raw != "" {
		region, err := assessment.ParseRegion(raw)
		if err != nil {
			_ = c.Error(err)
			return
		}
		query.Region = region
	}
	if raw := strings.TrimSpace(c.Query("badge")); raw != "" {
		badge, err := assessment.ParseBadge(raw)
		if err != nil {
			_ = c.Error(err)
			return
		}
		query.Badge = badge
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			_ = c.Error(apperrors.NewValidationError(apperrors.CodeInvalidRequest,
				"limit must be a non-negative integer", map[string]string{"limit": raw}))
			return
		}
		query.Limit = limit
	}

	response, err := s.leaderboard.GetLeaderboard(c.Request.Context(), query)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}
