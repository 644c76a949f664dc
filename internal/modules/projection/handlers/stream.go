package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/aristath/sentinel-income/internal/modules/projection"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const streamWriteTimeout = 10 * time.Second

// streamMessage is one frame sent to a stream client. Year frames carry the year's
// records, the last frame carries done and the run summary.
type streamMessage struct {
	Year        int                       `json:"year,omitempty"`
	Prioritized []string                  `json:"prioritized,omitempty"`
	Records     []projection.YearlyRecord `json:"records,omitempty"`
	Done        bool                      `json:"done,omitempty"`
	Summary     *projection.Summary       `json:"summary,omitempty"`
	Error       string                    `json:"error,omitempty"`
}

// HandleStream handles GET /api/projections/stream. The client sends one run request
// and receives every simulated year as it is produced. Streamed runs are not stored.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	// Same-origin and non-browser clients are always accepted
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Warn().Err(err).Str("origin", r.Header.Get("Origin")).Msg("Rejected websocket")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected server error")

	ctx := r.Context()

	var req runRequest
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		h.log.Debug().Err(err).Msg("Stream client sent no request")
		conn.Close(websocket.StatusUnsupportedData, "invalid run request")
		return
	}

	specs, err := req.holdingSpecs()
	if err != nil {
		h.fail(ctx, conn, err)
		return
	}

	engine, err := h.service.NewEngine(specs, h.resolve(req))
	if err != nil {
		h.fail(ctx, conn, err)
		return
	}

	var records []projection.YearlyRecord
	for !engine.Done() {
		// Cancellation is only honored between years
		if ctx.Err() != nil {
			h.log.Debug().Int("year", engine.Year()).Msg("Stream client went away")
			return
		}

		result, err := engine.Step()
		if err != nil {
			h.fail(ctx, conn, err)
			return
		}
		records = append(records, result.Records...)

		if err := h.send(ctx, conn, streamMessage{
			Year:        result.Year,
			Prioritized: result.Prioritized,
			Records:     result.Records,
		}); err != nil {
			h.log.Debug().Err(err).Int("year", result.Year).Msg("Failed to send stream year")
			return
		}
	}

	summary := projection.Summarize(records)
	if err := h.send(ctx, conn, streamMessage{Done: true, Summary: &summary}); err != nil {
		h.log.Debug().Err(err).Msg("Failed to send stream summary")
		return
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg streamMessage) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

// fail reports err to the client and closes the stream. Bad input, including holdings
// whose growth breaks the run, closes with a policy violation and anything else with an
// internal error.
func (h *Handler) fail(ctx context.Context, conn *websocket.Conn, err error) {
	status := websocket.StatusInternalError
	if isInputError(err) || isRunInputError(err) {
		status = websocket.StatusPolicyViolation
	} else {
		h.log.Error().Err(err).Msg("Stream projection failed")
	}

	if sendErr := h.send(ctx, conn, streamMessage{Error: err.Error()}); sendErr != nil {
		h.log.Debug().Err(sendErr).Msg("Failed to send stream error")
	}
	conn.Close(status, "projection failed")
}
