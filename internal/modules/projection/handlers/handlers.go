// Package handlers provides HTTP handlers for projection runs.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/sentinel-income/internal/modules/export"
	"github.com/aristath/sentinel-income/internal/modules/ingest"
	"github.com/aristath/sentinel-income/internal/modules/projection"
	"github.com/rs/zerolog"
)

const maxUploadSize = 10 << 20

// Archiver uploads a run's CSV export to long-term storage.
type Archiver interface {
	Enabled() bool
	Upload(ctx context.Context, runID string, body io.Reader) (string, error)
}

// Handler handles projection HTTP requests
type Handler struct {
	service        *projection.Service
	archiver       Archiver
	defaults       projection.Request
	originPatterns []string
	log            zerolog.Logger
}

// NewHandler creates a new projection handler. archiver may be nil when archival is
// not configured. allowedOrigins are the cross-origin browser origins the stream
// accepts, such as "http://localhost:*".
func NewHandler(
	service *projection.Service,
	archiver Archiver,
	defaults projection.Request,
	allowedOrigins []string,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:        service,
		archiver:       archiver,
		defaults:       defaults,
		originPatterns: originHosts(allowedOrigins),
		log:            log.With().Str("handler", "projection").Logger(),
	}
}

// originHosts turns origins into the host patterns the websocket origin check matches.
func originHosts(origins []string) []string {
	var hosts []string
	for _, origin := range origins {
		if _, host, ok := strings.Cut(origin, "://"); ok {
			origin = host
		}
		if origin = strings.TrimSuffix(origin, "/"); origin != "" {
			hosts = append(hosts, origin)
		}
	}
	return hosts
}

// runRequest is the JSON body of a projection request. Missing parameters fall back
// to the configured defaults.
type runRequest struct {
	Years                 *int             `json:"years"`
	QuarterlyContribution *float64         `json:"quarterly_contribution"`
	TopN                  *int             `json:"top_n"`
	Holdings              []holdingRequest `json:"holdings"`
}

// holdingRequest is one JSON holding. Every numeric field is required, so a missing
// field is told apart from an explicit zero.
type holdingRequest struct {
	Symbol            string   `json:"symbol"`
	StartingShares    *float64 `json:"starting_shares"`
	SharePrice        *float64 `json:"share_price"`
	Dividend          *float64 `json:"dividend"`
	DividendGrowthPct *float64 `json:"div_growth_pct"`
	PriceGrowthPct    *float64 `json:"price_growth_pct"`
	ReinvestPct       *float64 `json:"reinvest_pct"`
	TargetIncome      *float64 `json:"target_income"`
	InflationPct      *float64 `json:"inflation_pct"`
	PayoutFrequency   string   `json:"payout_frequency"`
}

// holdingSpecs converts the request holdings, rejecting the first one that lacks a
// numeric field. Rows are numbered from 1 like an uploaded table.
func (req runRequest) holdingSpecs() ([]projection.HoldingSpec, error) {
	specs := make([]projection.HoldingSpec, 0, len(req.Holdings))
	for i, hr := range req.Holdings {
		spec := projection.HoldingSpec{
			Symbol:          strings.TrimSpace(hr.Symbol),
			PayoutFrequency: hr.PayoutFrequency,
		}
		fields := []struct {
			name string
			src  *float64
			dst  *float64
		}{
			{projection.FieldStartingShares, hr.StartingShares, &spec.StartingShares},
			{projection.FieldSharePrice, hr.SharePrice, &spec.SharePrice},
			{projection.FieldDividend, hr.Dividend, &spec.Dividend},
			{projection.FieldDivGrowth, hr.DividendGrowthPct, &spec.DividendGrowthPct},
			{projection.FieldPriceGrowth, hr.PriceGrowthPct, &spec.PriceGrowthPct},
			{projection.FieldReinvest, hr.ReinvestPct, &spec.ReinvestPct},
			{projection.FieldTargetIncome, hr.TargetIncome, &spec.TargetIncome},
			{projection.FieldInflation, hr.InflationPct, &spec.InflationPct},
		}
		for _, f := range fields {
			if f.src == nil {
				return nil, &projection.RowError{Row: i + 1, Symbol: spec.Symbol, Field: f.name, Reason: "is required"}
			}
			*f.dst = *f.src
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (h *Handler) resolve(req runRequest) projection.Request {
	resolved := h.defaults
	if req.Years != nil {
		resolved.Years = *req.Years
	}
	if req.QuarterlyContribution != nil {
		resolved.QuarterlyContribution = *req.QuarterlyContribution
	}
	if req.TopN != nil {
		resolved.TopN = *req.TopN
	}
	return resolved
}

// HandleCreate handles POST /api/projections
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	specs, req, err := h.parseRunRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Project(specs, req)
	if err != nil {
		if projection.IsValidationError(err) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if isRunInputError(err) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to run projection")
		h.writeError(w, http.StatusInternalServerError, "Failed to run projection: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":      result.Run.ID,
		"run":     result.Run,
		"records": result.Records,
		"summary": result.Summary,
	})
}

// parseRunRequest reads holdings and parameters from either a JSON body or a
// multipart upload with a CSV file.
func (h *Handler) parseRunRequest(r *http.Request) ([]projection.HoldingSpec, projection.Request, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		return h.parseMultipart(r)
	}

	var body runRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, projection.Request{}, fmt.Errorf("invalid request body: %w", err)
	}
	specs, err := body.holdingSpecs()
	if err != nil {
		return nil, projection.Request{}, err
	}
	return specs, h.resolve(body), nil
}

func (h *Handler) parseMultipart(r *http.Request) ([]projection.HoldingSpec, projection.Request, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, projection.Request{}, fmt.Errorf("invalid multipart form: %w", err)
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, projection.Request{}, fmt.Errorf("missing holdings file: %w", err)
	}
	defer file.Close()

	specs, err := ingest.ReadHoldings(file)
	if err != nil {
		return nil, projection.Request{}, err
	}

	var body runRequest
	if v := r.FormValue("years"); v != "" {
		years, err := strconv.Atoi(v)
		if err != nil {
			return nil, projection.Request{}, fmt.Errorf("invalid years %q", v)
		}
		body.Years = &years
	}
	if v := r.FormValue("quarterly_contribution"); v != "" {
		contribution, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, projection.Request{}, fmt.Errorf("invalid quarterly_contribution %q", v)
		}
		body.QuarterlyContribution = &contribution
	}
	if v := r.FormValue("top_n"); v != "" {
		topN, err := strconv.Atoi(v)
		if err != nil {
			return nil, projection.Request{}, fmt.Errorf("invalid top_n %q", v)
		}
		body.TopN = &topN
	}
	return specs, h.resolve(body), nil
}

// HandleList handles GET /api/projections
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 50 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	runs, err := h.service.List(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list projections")
		h.writeError(w, http.StatusInternalServerError, "Failed to list projections")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// HandleGet handles GET /api/projections/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request, id string) {
	result, err := h.service.Get(id)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to get projection")
		h.writeError(w, http.StatusInternalServerError, "Failed to get projection")
		return
	}
	if result == nil {
		h.writeError(w, http.StatusNotFound, "Projection not found")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":     result.Run,
		"summary": result.Summary,
	})
}

// HandleGetRecords handles GET /api/projections/{id}/records. Clients asking for
// msgpack get msgpack, ?format=csv returns a CSV download and everything else is JSON.
func (h *Handler) HandleGetRecords(w http.ResponseWriter, r *http.Request, id string) {
	records, err := h.service.Records(id)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to get projection records")
		h.writeError(w, http.StatusInternalServerError, "Failed to get projection records")
		return
	}
	if records == nil {
		h.writeError(w, http.StatusNotFound, "Projection not found")
		return
	}

	switch {
	case strings.EqualFold(r.URL.Query().Get("format"), "csv"):
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, records); err != nil {
			h.log.Error().Err(err).Str("run_id", id).Msg("Failed to write CSV export")
			h.writeError(w, http.StatusInternalServerError, "Failed to export records")
			return
		}
		w.Header().Set("Content-Type", export.ContentTypeCSV)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.CSVFilename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())

	case strings.Contains(r.Header.Get("Accept"), export.ContentTypeMsgpack):
		var buf bytes.Buffer
		if err := export.WriteMsgpack(&buf, records); err != nil {
			h.log.Error().Err(err).Str("run_id", id).Msg("Failed to write msgpack export")
			h.writeError(w, http.StatusInternalServerError, "Failed to export records")
			return
		}
		w.Header().Set("Content-Type", export.ContentTypeMsgpack)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())

	default:
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"run_id":  id,
			"records": records,
			"count":   len(records),
		})
	}
}

// HandleDelete handles DELETE /api/projections/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request, id string) {
	deleted, err := h.service.Delete(id)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to delete projection")
		h.writeError(w, http.StatusInternalServerError, "Failed to delete projection")
		return
	}
	if !deleted {
		h.writeError(w, http.StatusNotFound, "Projection not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleArchive handles POST /api/projections/{id}/archive
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request, id string) {
	if h.archiver == nil || !h.archiver.Enabled() {
		h.writeError(w, http.StatusServiceUnavailable, "Archive storage is not configured")
		return
	}

	records, err := h.service.Records(id)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to get projection records")
		h.writeError(w, http.StatusInternalServerError, "Failed to get projection records")
		return
	}
	if records == nil {
		h.writeError(w, http.StatusNotFound, "Projection not found")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, records); err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to write CSV export")
		h.writeError(w, http.StatusInternalServerError, "Failed to export records")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	location, err := h.archiver.Upload(ctx, id, &buf)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to archive projection")
		h.writeError(w, http.StatusBadGateway, "Failed to archive projection")
		return
	}

	h.log.Info().Str("run_id", id).Str("location", location).Msg("Projection archived")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":   id,
		"location": location,
	})
}

func isInputError(err error) bool {
	return projection.IsValidationError(err) || errors.Is(err, ingest.ErrMissingColumn)
}

// isRunInputError reports run failures that the holdings themselves cause, such as a
// price growth of -100% driving a share price to zero.
func isRunInputError(err error) bool {
	return errors.Is(err, projection.ErrNonPositivePrice) || errors.Is(err, projection.ErrInvalidState)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
