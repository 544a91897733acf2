package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Sriram-PR/product-scraper/pkg/jobs"
	"github.com/Sriram-PR/product-scraper/pkg/models"
	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// DownloadFileName is the attachment name of GET /download-data
const DownloadFileName = "product_urls.csv"

type startCrawlRequest struct {
	Websites json.RawMessage `json:"websites"`
}

type startCrawlResponse struct {
	Message      string                `json:"message"`
	RunID        string                `json:"runId"`
	DownloadLink string                `json:"downloadLink,omitempty"`
	ViewLink     string                `json:"viewLink,omitempty"`
	StatusLink   string                `json:"statusLink,omitempty"`
	Rejected     []models.RejectedSeed `json:"rejected,omitempty"`
	Dropped      []string              `json:"dropped,omitempty"`
}

type productEntry struct {
	URL string `json:"url"`
}

func (s *Server) handleStartCrawl(w http.ResponseWriter, r *http.Request) {
	websites, ok := decodeWebsites(r)
	if !ok {
		s.respondWithError(w, http.StatusBadRequest, "Please provide an array of website domains.")
		return
	}

	run, done, err := s.runs.Submit(websites)
	if errors.Is(err, utils.ErrCrawlInProgress) {
		s.respondWithError(w, http.StatusConflict, "A crawl is already in progress.")
		return
	}
	if err != nil {
		s.log.Errorf("Failed to submit crawl: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to start crawling.")
		return
	}

	base := baseURL(r)
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		s.respondWithJSON(w, http.StatusAccepted, startCrawlResponse{
			Message:    "Crawling started.",
			RunID:      run.ID,
			StatusLink: base + "/crawl/" + run.ID,
		})
		return
	}

	select {
	case <-done:
	case <-r.Context().Done():
		// Client went away; the run keeps going and can be polled
		s.log.WithField("run_id", run.ID).Info("Client disconnected before crawl finished")
		return
	}

	finished, err := s.runs.Get(run.ID)
	if err == nil && errors.Is(finished.Err, utils.ErrOutputReset) {
		s.respondWithError(w, http.StatusInternalServerError, "Failed to clear the file.")
		return
	}
	if err != nil || finished.Status != models.RunStatusCompleted {
		s.respondWithError(w, http.StatusInternalServerError, "Failed to start crawling.")
		return
	}

	resp := startCrawlResponse{
		Message:      "Crawling initiated successfully.",
		RunID:        run.ID,
		DownloadLink: base + "/download-data",
		ViewLink:     base + "/view-data",
	}
	if finished.Summary != nil {
		resp.Rejected = finished.Summary.RejectedSeeds
		resp.Dropped = finished.Summary.DroppedSeeds
	}
	s.respondWithJSON(w, http.StatusOK, resp)
}

// decodeWebsites accepts only a JSON array of strings under "websites"
func decodeWebsites(r *http.Request) ([]string, bool) {
	var req startCrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, false
	}
	if len(req.Websites) == 0 || req.Websites[0] != '[' {
		return nil, false
	}
	var websites []string
	if err := json.Unmarshal(req.Websites, &websites); err != nil {
		return nil, false
	}
	return websites, true
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.Get(chi.URLParam(r, "id"))
	if errors.Is(err, utils.ErrRunNotFound) {
		s.respondWithError(w, http.StatusNotFound, "Crawl run not found.")
		return
	}
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "Could not retrieve crawl status.")
		return
	}
	s.respondWithJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string][]jobs.Run{"runs": s.runs.List()})
}

func (s *Server) handleDownloadData(w http.ResponseWriter, r *http.Request) {
	path := s.output.Path()
	if _, err := os.Stat(path); err != nil {
		s.respondWithError(w, http.StatusNotFound, "No data available for download.")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+DownloadFileName+`"`)
	http.ServeFile(w, r, path)
}

func (s *Server) handleViewData(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.output.Path()); err != nil {
		s.respondWithError(w, http.StatusNotFound, "No data available to view.")
		return
	}
	entries, err := s.output.Entries()
	if err != nil {
		s.log.Errorf("Failed to read product URLs: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to read data.")
		return
	}

	data := make([]productEntry, 0, len(entries))
	for _, e := range entries {
		data = append(data, productEntry{URL: e})
	}
	s.respondWithJSON(w, http.StatusOK, data)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// baseURL rebuilds scheme://host of the incoming request for absolute links
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.log.Errorf("Failed to encode response: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
