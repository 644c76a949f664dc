package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/aristath/sentinel-income/internal/database"
	"github.com/aristath/sentinel-income/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers contains system-related HTTP handlers
type SystemHandlers struct {
	log           zerolog.Logger
	dataDir       string
	projectionsDB *database.DB
	scheduler     *scheduler.Scheduler
	jobs          map[string]scheduler.Job
	startupTime   time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	projectionsDB *database.DB,
	sched *scheduler.Scheduler,
	jobs map[string]scheduler.Job,
) *SystemHandlers {
	return &SystemHandlers{
		log:           log.With().Str("service", "system").Logger(),
		dataDir:       dataDir,
		projectionsDB: projectionsDB,
		scheduler:     sched,
		jobs:          jobs,
		startupTime:   time.Now(),
	}
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	StoredRuns    int     `json:"stored_runs"`
	LastRun       string  `json:"last_run,omitempty"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Goroutines    int     `json:"goroutines"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// DBInfo represents database information
type DBInfo struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	SizeMB   float64 `json:"size_mb"`
	RowCount int     `json:"row_count,omitempty"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// JobStatus describes a job that can be triggered manually
type JobStatus struct {
	Name string `json:"name"`
}

// JobsStatusResponse lists the registered jobs
type JobsStatusResponse struct {
	Jobs  []JobStatus `json:"jobs"`
	Count int         `json:"count"`
}

// HandleSystemStatus returns comprehensive system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	var runCount int
	var lastRun *int64
	status := "healthy"
	if h.projectionsDB != nil {
		err := h.projectionsDB.Conn().QueryRow(`
			SELECT COUNT(*), MAX(created_at)
			FROM projection_runs
		`).Scan(&runCount, &lastRun)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to query projection runs")
			status = "degraded"
		}
	}

	var lastRunFormatted string
	if lastRun != nil {
		lastRunFormatted = time.Unix(*lastRun, 0).UTC().Format("2006-01-02 15:04")
	}

	cpuPercent, memPercent := h.getSystemStats()
	uptime := time.Since(h.startupTime)

	h.writeJSON(w, http.StatusOK, SystemStatusResponse{
		Status:        status,
		StoredRuns:    runCount,
		LastRun:       lastRunFormatted,
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
	})
}

// HandleDatabaseStats returns database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	databases := []DBInfo{}
	totalSizeMB := 0.0

	if h.projectionsDB != nil {
		info := DBInfo{
			Name: filepath.Base(h.projectionsDB.Path()),
			Path: h.projectionsDB.Path(),
		}
		if stat, err := os.Stat(h.projectionsDB.Path()); err == nil {
			info.SizeMB = float64(stat.Size()) / 1024 / 1024
			totalSizeMB += info.SizeMB
		}
		if err := h.projectionsDB.Conn().QueryRow("SELECT COUNT(*) FROM projection_records").Scan(&info.RowCount); err != nil {
			h.log.Warn().Err(err).Msg("Failed to count projection records")
		}
		databases = append(databases, info)
	}

	h.writeJSON(w, http.StatusOK, DatabaseStatsResponse{
		Databases:   databases,
		TotalSizeMB: totalSizeMB,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// HandleJobsStatus lists the jobs that can be triggered
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := make([]JobStatus, 0, len(h.jobs))
	for name := range h.jobs {
		jobs = append(jobs, JobStatus{Name: name})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	h.writeJSON(w, http.StatusOK, JobsStatusResponse{Jobs: jobs, Count: len(jobs)})
}

// HandleTriggerJob runs a registered job immediately
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request, name string) {
	job, ok := h.jobs[name]
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown job: " + name})
		return
	}

	var err error
	if h.scheduler != nil {
		err = h.scheduler.RunNow(job)
	} else {
		err = job.Run()
	}
	if err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": name + " completed",
	})
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a short interval (100ms) so the status call does not block for long
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	// Get memory statistics (instant, no blocking)
	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
