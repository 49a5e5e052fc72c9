package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hemoflow/hemoflow/pkg/blood"
	"github.com/hemoflow/hemoflow/pkg/chat"
	"github.com/hemoflow/hemoflow/pkg/features"
)

type (
	// PredictRequest is a structured demand query. City and blood type are
	// optional; absent values are imputed with training medians.
	PredictRequest struct {
		Date       string `json:"date" validate:"required"`
		City       string `json:"city"`
		BloodType  string `json:"blood_type"`
		Population int    `json:"population" validate:"required,gt=0"`
		Hospitals  int    `json:"hospitals" validate:"required,gt=0"`
	}

	PredictResponse struct {
		PredictedDemand float64 `json:"predicted_demand"`
		ModelVersion    string  `json:"model_version"`
		Algorithm       string  `json:"algorithm"`
	}

	TopDonorsRequest struct {
		BloodGroup string `json:"blood_group" validate:"required"`
		TopN       int    `json:"top_n"`
	}

	TopDonorsResponse struct {
		BloodGroup string               `json:"blood_group"`
		Donors     []donorJSON          `json:"donors"`
	}

	donorJSON struct {
		ID         int     `json:"id"`
		BloodGroup string  `json:"blood_group"`
		Score      float64 `json:"score"`
		RFMScore   float64 `json:"rfm_score"`
	}

	ChatRequest struct {
		Message string `json:"message" validate:"required"`
	}

	ChatResponse struct {
		Response string `json:"response"`
	}

	ResponseError struct {
		Message string `json:"message"`
	}
)

func (s *Server) handlePredict(c echo.Context) error {
	var req PredictRequest
	if err := c.Bind(&req); err != nil {
		s.metrics.RecordPredictionError("bad_request")
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := s.validate.Struct(&req); err != nil {
		s.metrics.RecordPredictionError("validation")
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		s.metrics.RecordPredictionError("validation")
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "date must be YYYY-MM-DD"})
	}

	s.mu.RLock()
	model := s.model
	s.mu.RUnlock()

	row, err := features.PredictionRow(features.PredictionInput{
		Date:       date,
		City:       req.City,
		BloodType:  req.BloodType,
		Population: req.Population,
		Hospitals:  req.Hospitals,
	}, model.Vocabs)
	if err != nil {
		var unseen *blood.UnseenCategoryError
		if errors.As(err, &unseen) {
			s.metrics.RecordPredictionError("unseen_category")
			return c.JSON(http.StatusUnprocessableEntity, ResponseError{Message: err.Error()})
		}
		s.metrics.RecordPredictionError("internal")
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	pred, err := model.Predict(features.ImputeRow(row, model.Medians))
	if err != nil {
		s.metrics.RecordPredictionError("internal")
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	s.metrics.RecordPrediction(req.City, req.BloodType, pred)
	s.logger.Debug("prediction served",
		"city", req.City,
		"blood_type", req.BloodType,
		"predicted", pred)

	return c.JSON(http.StatusOK, PredictResponse{
		PredictedDemand: pred,
		ModelVersion:    model.Version,
		Algorithm:       model.Algorithm,
	})
}

func (s *Server) handleTopDonors(c echo.Context) error {
	var req TopDonorsRequest
	if err := c.Bind(&req); err != nil {
		s.metrics.RecordDonorQuery("bad_request")
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := s.validate.Struct(&req); err != nil {
		s.metrics.RecordDonorQuery("validation")
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if req.TopN <= 0 {
		req.TopN = s.topDonors
	}

	s.mu.RLock()
	ranker := s.ranker
	s.mu.RUnlock()

	ranked, err := ranker.Rank(req.BloodGroup, req.TopN)
	if err != nil {
		var notFound *blood.NoDonorsFoundError
		if errors.As(err, &notFound) {
			s.metrics.RecordDonorQuery("not_found")
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		s.metrics.RecordDonorQuery("internal")
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	out := make([]donorJSON, 0, len(ranked))
	for _, d := range ranked {
		out = append(out, donorJSON{
			ID:         d.ID,
			BloodGroup: d.BloodGroup,
			Score:      d.Score,
			RFMScore:   d.RFMScore,
		})
	}

	s.metrics.RecordDonorQuery("ok")
	return c.JSON(http.StatusOK, TopDonorsResponse{
		BloodGroup: req.BloodGroup,
		Donors:     out,
	})
}

func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := s.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if !chat.Allowed(req.Message) {
		s.metrics.RecordChat("refused")
		return c.JSON(http.StatusOK, ChatResponse{Response: chat.RefusalResponse})
	}

	answer, err := s.chatClient.Ask(c.Request().Context(), req.Message)
	if err != nil {
		var upstream *blood.UpstreamServiceError
		if errors.As(err, &upstream) {
			s.metrics.RecordChat("upstream_error")
			return c.JSON(http.StatusBadGateway, ResponseError{Message: err.Error()})
		}
		s.metrics.RecordChat("error")
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	s.metrics.RecordChat("answered")
	return c.JSON(http.StatusOK, ChatResponse{Response: answer})
}

func (s *Server) handleAnalytics(c echo.Context) error {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()

	if snap == nil {
		return c.JSON(http.StatusNotFound, ResponseError{Message: "no analytics snapshot available"})
	}
	return c.JSON(http.StatusOK, snap)
}
