package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/sentinel-income/internal/database"
	"github.com/aristath/sentinel-income/internal/modules/export"
	"github.com/aristath/sentinel-income/internal/modules/projection"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const holdingsCSV = `Symbol,Starting Shares,Share Price,Dividend,Div Growth %,Price Growth %,Reinvest %,Target Income,Inflation %,Payout Frequency
KO,50,60,1.94,4,3,100,1200,3,Quarterly
O,40,55,3.08,3,2,100,1500,3,Monthly
`

type mockArchiver struct {
	enabled bool
	err     error
	runID   string
	body    string
}

func (m *mockArchiver) Enabled() bool {
	return m.enabled
}

func (m *mockArchiver) Upload(ctx context.Context, runID string, body io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.runID = runID
	m.body = string(data)
	return "s3://archive/" + runID + "/" + export.CSVFilename, nil
}

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every pooled connection would get its own in-memory database
	db.SetMaxOpenConns(1)

	schema, err := database.Schema("projections")
	require.NoError(t, err)
	_, err = db.Exec(schema)
	require.NoError(t, err)

	return db
}

func setupHandler(t *testing.T, archiver Archiver) (*Handler, chi.Router) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	repo := projection.NewRunRepository(db, logger)
	service := projection.NewService(repo, projection.PolicyReinvestAll, []string{"SPAXX"}, logger)
	handler := NewHandler(service, archiver, projection.Request{Years: 3, QuarterlyContribution: 250, TopN: 5}, []string{"http://localhost:*"}, logger)

	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)
	return handler, router
}

func jsonRunBody(t *testing.T, body map[string]interface{}) *bytes.Reader {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func sampleHoldings() []projection.HoldingSpec {
	return []projection.HoldingSpec{
		{Symbol: "KO", StartingShares: 50, SharePrice: 60, Dividend: 1.94, DividendGrowthPct: 4, PriceGrowthPct: 3, ReinvestPct: 100, TargetIncome: 1200, InflationPct: 3},
		{Symbol: "SPAXX", StartingShares: 1000, SharePrice: 1, Dividend: 0.05, ReinvestPct: 100, TargetIncome: 100},
	}
}

// holdingJSON is a complete JSON holding with the given keys removed.
func holdingJSON(symbol string, without ...string) map[string]interface{} {
	h := map[string]interface{}{
		"symbol":           symbol,
		"starting_shares":  50,
		"share_price":      60,
		"dividend":         1.94,
		"div_growth_pct":   4,
		"price_growth_pct": 3,
		"reinvest_pct":     100,
		"target_income":    1200,
		"inflation_pct":    3,
		"payout_frequency": "Quarterly",
	}
	for _, key := range without {
		delete(h, key)
	}
	return h
}

type createResponse struct {
	ID      string                    `json:"id"`
	Records []projection.YearlyRecord `json:"records"`
	Summary projection.Summary        `json:"summary"`
}

func createRun(t *testing.T, router chi.Router) createResponse {
	req := httptest.NewRequest("POST", "/api/projections", jsonRunBody(t, map[string]interface{}{
		"holdings": sampleHoldings(),
	}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var response createResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestHandleCreate(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		validate       func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "defaults fill missing parameters",
			body:           map[string]interface{}{"holdings": sampleHoldings()},
			expectedStatus: http.StatusCreated,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var response createResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.NotEmpty(t, response.ID)
				assert.Len(t, response.Records, 3*2)
				assert.Equal(t, 3, response.Summary.FinalYear)

				// Cumulative income runs through every year for every holding
				require.Len(t, response.Summary.Cumulative, 3*2)
				var koIncome float64
				for _, rec := range response.Records {
					if rec.Symbol == "KO" {
						koIncome += rec.ActualIncome
					}
				}
				final := projection.FinalCumulative(response.Summary.Cumulative)
				require.Len(t, final, 2)
				assert.Equal(t, "KO", final[0].Symbol)
				assert.Equal(t, 3, final[0].Year)
				assert.InDelta(t, koIncome, final[0].CumulativeIncome, 0.02)
				assert.Greater(t, final[0].CumulativeTarget, 3*1200.0)
			},
		},
		{
			name: "explicit parameters",
			body: map[string]interface{}{
				"years":                  2,
				"quarterly_contribution": 0,
				"top_n":                  1,
				"holdings":               sampleHoldings(),
			},
			expectedStatus: http.StatusCreated,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var response createResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				require.Len(t, response.Records, 2*2)
				for _, rec := range response.Records {
					assert.Equal(t, 0.0, rec.Contribution)
				}
			},
		},
		{
			name:           "no holdings",
			body:           map[string]interface{}{"years": 5},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "invalid holding",
			body: map[string]interface{}{
				"holdings": []projection.HoldingSpec{{Symbol: "KO", StartingShares: 1, SharePrice: 0, Dividend: 1, TargetIncome: 10}},
			},
			expectedStatus: http.StatusBadRequest,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var response map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Contains(t, response["error"], "Share Price")
			},
		},
		{
			name: "holding without numeric fields",
			body: map[string]interface{}{
				"holdings": []interface{}{
					map[string]interface{}{"symbol": "KO", "share_price": 60, "target_income": 1200},
				},
			},
			expectedStatus: http.StatusBadRequest,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var response map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Contains(t, response["error"], `row 1 (KO): field "Starting Shares" is required`)
			},
		},
		{
			name: "second holding missing inflation",
			body: map[string]interface{}{
				"holdings": []interface{}{holdingJSON("KO"), holdingJSON("O", "inflation_pct")},
			},
			expectedStatus: http.StatusBadRequest,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var response map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Contains(t, response["error"], `row 2 (O): field "Inflation %" is required`)
			},
		},
		{
			name: "explicit zero growth is accepted",
			body: map[string]interface{}{
				"years": 2,
				"holdings": []interface{}{
					holdingJSON("KO"),
					map[string]interface{}{
						"symbol": "SPAXX", "starting_shares": 1000, "share_price": 1, "dividend": 0.05,
						"div_growth_pct": 0, "price_growth_pct": 0, "reinvest_pct": 0, "target_income": 100, "inflation_pct": 0,
					},
				},
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "price collapses during the run",
			body: map[string]interface{}{
				"years": 3,
				"holdings": []interface{}{
					func() map[string]interface{} {
						h := holdingJSON("KO")
						h["price_growth_pct"] = -100
						return h
					}(),
				},
			},
			expectedStatus: http.StatusUnprocessableEntity,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var response map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Contains(t, response["error"], projection.ErrNonPositivePrice.Error())
			},
		},
		{
			name:           "invalid years",
			body:           map[string]interface{}{"years": 0, "holdings": sampleHoldings()},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router := setupHandler(t, nil)

			data, err := json.Marshal(tt.body)
			require.NoError(t, err)
			req := httptest.NewRequest("POST", "/api/projections", bytes.NewReader(data))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.validate != nil {
				tt.validate(t, w)
			}
		})
	}
}

func TestHandleCreate_InvalidJSON(t *testing.T) {
	_, router := setupHandler(t, nil)

	req := httptest.NewRequest("POST", "/api/projections", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartRequest(t *testing.T, csvContent string, fields map[string]string) *http.Request {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "portfolio.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csvContent))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/projections", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleCreate_Multipart(t *testing.T) {
	t.Run("csv upload", func(t *testing.T) {
		_, router := setupHandler(t, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, multipartRequest(t, holdingsCSV, map[string]string{"years": "4"}))

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var response createResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response.Records, 4*2)
	})

	t.Run("missing column", func(t *testing.T) {
		_, router := setupHandler(t, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, multipartRequest(t, "Symbol,Starting Shares\nKO,10\n", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid form value", func(t *testing.T) {
		_, router := setupHandler(t, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, multipartRequest(t, holdingsCSV, map[string]string{"top_n": "many"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleListAndGet(t *testing.T) {
	_, router := setupHandler(t, nil)
	created := createRun(t, router)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/projections?limit=10", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Runs  []projection.Run `json:"runs"`
			Count int              `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, 1, response.Count)
		assert.Equal(t, created.ID, response.Runs[0].ID)
	})

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/projections/"+created.ID, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Run     projection.Run     `json:"run"`
			Summary projection.Summary `json:"summary"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, created.ID, response.Run.ID)
		assert.Equal(t, created.Summary.FinalYearIncome, response.Summary.FinalYearIncome)
	})

	t.Run("get unknown", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/projections/unknown", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleGetRecords(t *testing.T) {
	_, router := setupHandler(t, nil)
	created := createRun(t, router)
	path := "/api/projections/" + created.ID + "/records"

	t.Run("json", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Records []projection.YearlyRecord `json:"records"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, created.Records, response.Records)
	})

	t.Run("msgpack", func(t *testing.T) {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("Accept", export.ContentTypeMsgpack)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, export.ContentTypeMsgpack, w.Header().Get("Content-Type"))

		records, err := export.ReadMsgpack(w.Body)
		require.NoError(t, err)
		assert.Equal(t, created.Records, records)
	})

	t.Run("csv", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path+"?format=csv", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), export.CSVFilename)

		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		assert.Len(t, lines, len(created.Records)+1)
		assert.True(t, strings.HasPrefix(lines[0], "Year,Symbol,Shares"))
	})

	t.Run("unknown run", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/projections/unknown/records", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleDelete(t *testing.T) {
	_, router := setupHandler(t, nil)
	created := createRun(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/projections/"+created.ID, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/projections/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleArchive(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		_, router := setupHandler(t, &mockArchiver{enabled: false})
		created := createRun(t, router)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/projections/"+created.ID+"/archive", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("nil archiver", func(t *testing.T) {
		_, router := setupHandler(t, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/projections/any/archive", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("uploads csv export", func(t *testing.T) {
		archiver := &mockArchiver{enabled: true}
		_, router := setupHandler(t, archiver)
		created := createRun(t, router)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/projections/"+created.ID+"/archive", nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var response map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "s3://archive/"+created.ID+"/"+export.CSVFilename, response["location"])
		assert.Equal(t, created.ID, archiver.runID)
		assert.True(t, strings.HasPrefix(archiver.body, "Year,Symbol"))
	})

	t.Run("unknown run", func(t *testing.T) {
		_, router := setupHandler(t, &mockArchiver{enabled: true})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/projections/unknown/archive", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("upload failure", func(t *testing.T) {
		_, router := setupHandler(t, &mockArchiver{enabled: true, err: errors.New("bucket gone")})
		created := createRun(t, router)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/projections/"+created.ID+"/archive", nil))
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}
