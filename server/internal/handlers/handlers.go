package handlers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/rs/zerolog"

	"github.com/openclaw/quotatop/internal/quota"
	"github.com/openclaw/quotatop/server/internal/auth"
	"github.com/openclaw/quotatop/server/internal/store"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db       *store.DB
	sessions *scs.SessionManager
	tmpl     *template.Template
	quotas   map[string]quota.Quota
	log      zerolog.Logger
}

// New creates a new Handler
func New(db *store.DB, sessions *scs.SessionManager, tmpl *template.Template, quotas map[string]quota.Quota, log zerolog.Logger) *Handler {
	return &Handler{
		db:       db,
		sessions: sessions,
		tmpl:     tmpl,
		quotas:   quotas,
		log:      log,
	}
}

// QuotaRow is one plan's line on the dashboard
type QuotaRow struct {
	Name    string
	Plan    string
	Ceiling string
	UsedPct float64
	Capped  bool
}

func (h *Handler) quotaRows(todayTokens int64) []QuotaRow {
	rows := make([]QuotaRow, 0, len(h.quotas))
	for _, q := range h.quotas {
		row := QuotaRow{Name: q.Name, Plan: q.Description}
		if q.Unlimited() {
			row.Ceiling = "unlimited"
		} else {
			row.Capped = true
			row.Ceiling = fmt.Sprintf("%d tokens/%dhr", q.Limit, q.PeriodHours)
			row.UsedPct = float64(todayTokens) / float64(q.Limit) * 100
		}
		rows = append(rows, row)
	}
	return rows
}

// Index shows the login page or, for a logged-in account, the dashboard
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	accountID := h.sessions.GetString(r.Context(), "accountID")
	if accountID == "" {
		h.render(w, map[string]any{"Page": "login"})
		return
	}

	account, err := h.db.AccountByID(accountID)
	if err != nil || account == nil {
		h.sessions.Destroy(r.Context())
		h.render(w, map[string]any{"Page": "login"})
		return
	}

	h.renderDashboard(w, account)
}

func (h *Handler) renderDashboard(w http.ResponseWriter, account *store.Account) {
	days, err := h.db.RecentDays(account.ID, 30)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load recent usage")
	}
	totals, err := h.db.Totals(account.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load totals")
	}
	today, err := h.db.UsageOnDay(account.ID, time.Now().UTC().Format("2006-01-02"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load today's usage")
	}

	h.render(w, map[string]any{
		"Page":    "dashboard",
		"Account": account,
		"Days":    days,
		"Totals":  totals,
		"Today":   today,
		"Quotas":  h.quotaRows(today.TotalTokens),
	})
}

func (h *Handler) render(w http.ResponseWriter, data map[string]any) {
	if err := h.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		h.log.Error().Err(err).Msg("template render failed")
	}
}

func (h *Handler) renderLoginError(w http.ResponseWriter, msg string) {
	h.render(w, map[string]any{"Page": "login", "Error": msg})
}

// Login handles dashboard sign-in
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, "Invalid form data")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		h.renderLoginError(w, "Username and password are required")
		return
	}

	account, err := h.db.AccountByUsername(username)
	if err != nil {
		h.renderLoginError(w, "An error occurred")
		return
	}
	if account == nil || !auth.CheckPassword(password, account.PasswordHash) {
		h.renderLoginError(w, "Invalid username or password")
		return
	}

	h.sessions.Put(r.Context(), "accountID", account.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Register handles account creation
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, "Invalid form data")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if len(username) < 3 {
		h.renderLoginError(w, "Username must be at least 3 characters")
		return
	}
	if len(password) < 8 {
		h.renderLoginError(w, "Password must be at least 8 characters")
		return
	}

	existing, err := h.db.AccountByUsername(username)
	if err != nil {
		h.renderLoginError(w, "An error occurred")
		return
	}
	if existing != nil {
		h.renderLoginError(w, "Username already taken")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		h.renderLoginError(w, "An error occurred")
		return
	}
	id, err := auth.GenerateID()
	if err != nil {
		h.renderLoginError(w, "An error occurred")
		return
	}
	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		h.renderLoginError(w, "An error occurred")
		return
	}

	account := &store.Account{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		APIKey:       apiKey,
		CreatedAt:    time.Now(),
	}
	if err := h.db.CreateAccount(account); err != nil {
		h.log.Error().Err(err).Msg("account creation failed")
		h.renderLoginError(w, "An error occurred")
		return
	}

	h.sessions.Put(r.Context(), "accountID", account.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout destroys the session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// PushRequest is the push API request body
type PushRequest struct {
	ClientID   string        `json:"client_id"`
	ClientName string        `json:"client_name"`
	Days       []DaySnapshot `json:"days"`
}

// DaySnapshot is one pushed calendar day
type DaySnapshot struct {
	Day          string  `json:"day"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalTokens  int64   `json:"total_tokens"`
	Records      int64   `json:"records"`
	Cost         float64 `json:"cost"`
}

// PushResponse is the push API response
type PushResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Updated int64  `json:"updated,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse is the push status response
type StatusResponse struct {
	LastPushAt *time.Time `json:"last_push_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// APIPush receives day snapshots from a device
func (h *Handler) APIPush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, PushResponse{Error: "POST required"})
		return
	}

	account := auth.GetAccount(r.Context())

	var req PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, PushResponse{Error: "invalid payload"})
		return
	}
	if req.ClientID == "" {
		writeJSON(w, http.StatusBadRequest, PushResponse{Error: "client_id required"})
		return
	}
	if len(req.Days) == 0 {
		writeJSON(w, http.StatusOK, PushResponse{Success: true, Message: "nothing to update"})
		return
	}

	rows := make([]store.DayUsage, 0, len(req.Days))
	for _, d := range req.Days {
		if _, err := time.Parse("2006-01-02", d.Day); err != nil {
			writeJSON(w, http.StatusBadRequest, PushResponse{Error: fmt.Sprintf("bad day %q", d.Day)})
			return
		}
		rows = append(rows, store.DayUsage{
			AccountID:    account.ID,
			DeviceID:     req.ClientID,
			Day:          d.Day,
			InputTokens:  d.InputTokens,
			OutputTokens: d.OutputTokens,
			TotalTokens:  d.TotalTokens,
			Records:      d.Records,
			Cost:         d.Cost,
		})
	}

	if _, err := h.db.GetOrCreateDevice(account.ID, req.ClientID, req.ClientName); err != nil {
		h.log.Error().Err(err).Msg("device registration failed")
		writeJSON(w, http.StatusInternalServerError, PushResponse{Error: "storage error"})
		return
	}

	updated, err := h.db.UpsertDays(rows)
	if err != nil {
		h.log.Error().Err(err).Msg("usage upsert failed")
		writeJSON(w, http.StatusInternalServerError, PushResponse{Error: "storage error"})
		return
	}

	if err := h.db.UpdateDevicePush(req.ClientID, time.Now()); err != nil {
		h.log.Warn().Err(err).Msg("failed to record push time")
	}

	h.log.Info().
		Str("account", account.Username).
		Str("device", req.ClientID).
		Int("days", len(rows)).
		Msg("usage pushed")

	writeJSON(w, http.StatusOK, PushResponse{Success: true, Updated: updated})
}

// APIPushStatus reports a device's last push time
func (h *Handler) APIPushStatus(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccount(r.Context())

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Error: "client_id required"})
		return
	}

	last, err := h.db.LastPush(account.ID, clientID)
	if err != nil {
		h.log.Error().Err(err).Msg("push status lookup failed")
		writeJSON(w, http.StatusInternalServerError, StatusResponse{Error: "storage error"})
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{LastPushAt: last})
}
