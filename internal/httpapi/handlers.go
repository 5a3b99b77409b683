package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/upmesh/upmesh/internal/domain"
	"github.com/upmesh/upmesh/internal/ingest"
	"github.com/upmesh/upmesh/internal/repo"
)

const defaultTickPageSize = 100

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// websiteWithStatus is the read-side shape: the website record plus the
// derived latest tick (null when the website has no history yet).
type websiteWithStatus struct {
	domain.Website
	LastStatus *domain.Tick `json:"lastStatus"`
}

// handleReport is the ingestion boundary for validator reports.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var rep ingest.Report
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "Validation error", Error: "malformed JSON body"})
		return
	}

	tick, err := s.Ingest.Ingest(r.Context(), rep)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "tick": tick})
	case errors.Is(err, ingest.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errBody{Message: "Validation error", Error: err.Error()})
	case errors.Is(err, ingest.ErrWebsiteNotFound):
		writeJSON(w, http.StatusNotFound, errBody{Message: "Website not found"})
	case errors.Is(err, ingest.ErrValidatorNotFound):
		writeJSON(w, http.StatusNotFound, errBody{Message: "Validator not found"})
	default:
		s.Logger.Error("report_ingest_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errBody{Message: "Internal server error", Error: err.Error()})
	}
}

// handleTargets feeds validators the active probe targets.
func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	websites, err := s.Websites.ListActive(r.Context())
	if err != nil {
		s.Logger.Error("list_targets_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errBody{Message: "Internal server error"})
		return
	}
	targets := make([]string, 0, len(websites))
	for _, ws := range websites {
		targets = append(targets, ws.URL)
	}
	writeJSON(w, http.StatusOK, map[string]any{"targets": targets})
}

func (s *Server) handleWebsiteStatus(w http.ResponseWriter, r *http.Request) {
	id := domain.WebsiteID(r.URL.Query().Get("websiteId"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "Validation error", Error: "websiteId is required"})
		return
	}

	website, err := s.Websites.GetByID(r.Context(), id)
	if err != nil {
		s.Logger.Error("website_status_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errBody{Message: "Internal server error"})
		return
	}
	if website == nil || website.Disabled {
		writeJSON(w, http.StatusNotFound, errBody{Message: "Website not found"})
		return
	}

	ticks, err := s.Ticks.ListByWebsite(r.Context(), id)
	if err != nil {
		s.Logger.Error("website_status_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errBody{Message: "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, websiteWithStatus{
		Website:    *website,
		LastStatus: domain.LatestTick(ticks),
	})
}

// handleWebsiteTicks serves full history behind a separate, paged endpoint
// so the list route can stay lean.
func (s *Server) handleWebsiteTicks(w http.ResponseWriter, r *http.Request) {
	id := domain.WebsiteID(r.URL.Query().Get("websiteId"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "Validation error", Error: "websiteId is required"})
		return
	}
	limit := defaultTickPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errBody{Message: "Validation error", Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	website, err := s.Websites.GetByID(r.Context(), id)
	if err != nil {
		s.Logger.Error("website_ticks_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errBody{Message: "Internal server error"})
		return
	}
	if website == nil {
		// history of a disabled website stays reachable by direct id lookup
		writeJSON(w, http.StatusNotFound, errBody{Message: "Website not found"})
		return
	}

	ticks, err := s.Ticks.ListByWebsite(r.Context(), id)
	if err != nil {
		s.Logger.Error("website_ticks_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errBody{Message: "Internal server error"})
		return
	}

	// newest first, same tie-break as status derivation
	sort.Slice(ticks, func(i, j int) bool {
		if !ticks[i].CreatedAt.Equal(ticks[j].CreatedAt) {
			return ticks[i].CreatedAt.After(ticks[j].CreatedAt)
		}
		return ticks[i].ID > ticks[j].ID
	})
	if len(ticks) > limit {
		ticks = ticks[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"ticks": ticks})
}

func (s *Server) handleListWebsites(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "Validation error", Error: "userId is required"})
		return
	}

	websites, err := s.Websites.ListActiveByUser(r.Context(), userID)
	if err != nil {
		s.Logger.Error("list_websites_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errBody{Message: "Internal server error"})
		return
	}

	out := make([]websiteWithStatus, 0, len(websites))
	for _, ws := range websites {
		ticks, err := s.Ticks.ListByWebsite(r.Context(), ws.ID)
		if err != nil {
			s.Logger.Error("list_websites_error", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errBody{Message: "Internal server error"})
			return
		}
		out = append(out, websiteWithStatus{Website: ws, LastStatus: domain.LatestTick(ticks)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"websites": out})
}

type createWebsitePayload struct {
	URL    string `json:"url"`
	UserID string `json:"userId"`
}

func (s *Server) handleCreateWebsite(w http.ResponseWriter, r *http.Request) {
	var p createWebsitePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "Validation error", Error: "malformed JSON body"})
		return
	}
	if p.UserID == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "Validation error", Error: "userId is required"})
		return
	}
	if !isValidHTTPURL(p.URL) {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "Validation error", Error: "url must be http(s)"})
		return
	}

	website := &domain.Website{
		URL:       normalizeHTTPURL(p.URL),
		UserID:    p.UserID,
		CreatedAt: time.Now().UTC(),
	}
	err := s.Websites.Add(r.Context(), website)
	if errors.Is(err, repo.ErrDuplicateURL) {
		writeJSON(w, http.StatusConflict, errBody{Message: "Website already registered"})
		return
	}
	if err != nil {
		s.Logger.Error("create_website_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errBody{Message: "Internal server error"})
		return
	}

	s.Logger.Info("website_created",
		zap.String("website_id", string(website.ID)),
		zap.String("url", website.URL),
		zap.String("user_id", website.UserID),
	)
	writeJSON(w, http.StatusOK, map[string]any{"id": website.ID})
}

type deleteWebsitePayload struct {
	WebsiteID domain.WebsiteID `json:"websiteId"`
	UserID    string           `json:"userId"`
}

func (s *Server) handleDeleteWebsite(w http.ResponseWriter, r *http.Request) {
	var p deleteWebsitePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.WebsiteID == "" || p.UserID == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "Validation error", Error: "websiteId and userId are required"})
		return
	}

	if err := s.Websites.Disable(r.Context(), p.WebsiteID, p.UserID); err != nil {
		s.Logger.Error("delete_website_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errBody{Message: "Internal server error"})
		return
	}

	s.Logger.Info("website_disabled",
		zap.String("website_id", string(p.WebsiteID)),
		zap.String("user_id", p.UserID),
	)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Deleted website successfully"})
}

type registerValidatorPayload struct {
	PublicKey string `json:"publicKey"`
	Location  string `json:"location"`
}

func (s *Server) handleRegisterValidator(w http.ResponseWriter, r *http.Request) {
	var p registerValidatorPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.PublicKey == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "Validation error", Error: "publicKey is required"})
		return
	}

	v := &domain.Validator{PublicKey: p.PublicKey, Location: p.Location}
	err := s.Validators.Register(r.Context(), v)
	if errors.Is(err, repo.ErrDuplicateKey) {
		writeJSON(w, http.StatusConflict, errBody{Message: "Validator already registered"})
		return
	}
	if err != nil {
		s.Logger.Error("register_validator_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errBody{Message: "Internal server error"})
		return
	}

	s.Logger.Info("validator_registered",
		zap.String("validator_id", string(v.ID)),
		zap.String("location", v.Location),
	)
	writeJSON(w, http.StatusOK, v)
}

// isValidHTTPURL accepts absolute http(s) URLs with a host.
func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Hostname() != ""
}

// normalizeHTTPURL lowercases the host, drops default ports, and trims a
// bare trailing slash so duplicate detection isn't fooled by cosmetics.
func normalizeHTTPURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Hostname()
	}
	if u.Path == "/" && u.RawQuery == "" {
		u.Path = ""
	}
	return u.String()
}
