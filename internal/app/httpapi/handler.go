// Package httpapi exposes the REST API for the backend.
package httpapi

import (
	stderrors "errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	app "github.com/careconnect/backend/internal/app"
	"github.com/careconnect/backend/internal/app/domain/user"
	"github.com/careconnect/backend/internal/app/metrics"
	"github.com/careconnect/backend/internal/app/services/medicines"
	"github.com/careconnect/backend/internal/assets"
	"github.com/careconnect/backend/internal/errors"
	"github.com/careconnect/backend/internal/httputil"
	"github.com/careconnect/backend/internal/logging"
	"github.com/careconnect/backend/internal/middleware"
)

// Options configures the router beyond the application itself.
type Options struct {
	JWTSecret      []byte
	Assets         assets.Store
	AllowedOrigins []string
	RateLimit      RateLimitOptions
	MaxUploadBytes int64
	Logger         *logging.Logger
}

// RateLimitOptions configures the per-client limiter. Disabled when
// RequestsPerSecond is zero.
type RateLimitOptions struct {
	RequestsPerSecond int
	Burst             int
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app       *app.Application
	assets    assets.Store
	maxUpload int64
	log       *logging.Logger
}

// NewRouter returns the fully wired HTTP handler, middleware included.
func NewRouter(application *app.Application, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logging.NewDefault("httpapi")
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = assets.DefaultMaxBytes
	}

	h := &handler{
		app:       application,
		assets:    opts.Assets,
		maxUpload: opts.MaxUploadBytes,
		log:       log,
	}

	r := mux.NewRouter()

	r.HandleFunc("/", h.root).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/uploads/{filename}", h.serveUpload).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)

	api.HandleFunc("/medicines", h.listMedicines).Methods(http.MethodGet)
	api.HandleFunc("/medicines", h.createMedicine).Methods(http.MethodPost)
	api.HandleFunc("/medicines/{id}", h.getMedicine).Methods(http.MethodGet)
	api.HandleFunc("/medicines/{id}", h.updateMedicine).Methods(http.MethodPut)
	api.HandleFunc("/medicines/{id}", h.deleteMedicine).Methods(http.MethodDelete)
	api.HandleFunc("/medicines/{id}/take/{index}", h.takeDose).Methods(http.MethodPost)

	api.HandleFunc("/history", h.historySummary).Methods(http.MethodGet)
	api.HandleFunc("/history/{medicineId}", h.historyDetail).Methods(http.MethodGet)

	api.HandleFunc("/prescriptions", h.listPrescriptions).Methods(http.MethodGet)
	api.HandleFunc("/prescriptions", h.createPrescription).Methods(http.MethodPost)
	api.HandleFunc("/prescriptions/{id}", h.getPrescription).Methods(http.MethodGet)
	api.HandleFunc("/prescriptions/{id}", h.deletePrescription).Methods(http.MethodDelete)

	api.HandleFunc("/notifications/subscribe", h.subscribe).Methods(http.MethodPost)
	api.HandleFunc("/notifications/test", h.testNotification).Methods(http.MethodPost)
	api.HandleFunc("/notifications/remind/{medicineId}", h.remind).Methods(http.MethodPost)
	api.HandleFunc("/notifications/status", h.notificationStatus).Methods(http.MethodGet)

	r.Use(middleware.LoggingMiddleware(log))
	r.Use(middleware.MetricsMiddleware())

	cors := middleware.NewCORSMiddleware(opts.AllowedOrigins)
	r.Use(cors.Handler)

	if opts.RateLimit.RequestsPerSecond > 0 {
		rl := middleware.NewRateLimiter(opts.RateLimit.RequestsPerSecond, opts.RateLimit.Burst, log)
		r.Use(rl.Handler)
	}

	auth := middleware.NewAuthMiddleware(opts.JWTSecret, log,
		[]string{"/", "/health", "/metrics", "/api/auth/register", "/api/auth/login"},
		[]string{"/uploads/"},
	)
	r.Use(auth.Handler)

	return r
}

func (h *handler) root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("CareConnect API is running\n"))
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handler) serveUpload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]

	f, err := h.assets.Open(name)
	if err != nil {
		httputil.WriteError(w, errors.NotFound("File"))
		return
	}
	defer f.Close()

	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")

	if _, err := io.Copy(w, f); err != nil {
		h.log.WithError(err).Warn("serving upload interrupted")
	}
}

// Auth

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}

	u, token, err := h.app.Users.Register(r.Context(), payload.Email, payload.Password, payload.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  u,
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}

	u, token, err := h.app.Users.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  u,
	})
}

// Medicines

func (h *handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	meds, err := h.app.Medicines.List(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"medicines": meds})
}

func (h *handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var in medicines.CreateInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}

	med, err := h.app.Medicines.Create(r.Context(), userID, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{"medicine": med})
}

func (h *handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	med, err := h.app.Medicines.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"medicine": med})
}

func (h *handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	var in medicines.UpdateInput
	if !httputil.DecodeJSON(w, r, &in) {
		return
	}

	med, err := h.app.Medicines.Update(r.Context(), userID, mux.Vars(r)["id"], in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"medicine": med})
}

func (h *handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	if err := h.app.Medicines.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Medicine deleted")
}

func (h *handler) takeDose(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		httputil.BadRequest(w, "Invalid time index")
		return
	}

	med, err := h.app.Medicines.MarkTaken(r.Context(), userID, vars["id"], index)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	metrics.RecordDoseMarked()
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"medicine": med})
}

// History

func (h *handler) historySummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	entries, err := h.app.History.Summary(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

func (h *handler) historyDetail(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	detail, err := h.app.History.DoseHistory(r.Context(), userID, mux.Vars(r)["medicineId"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"medicine": detail.Medicine,
		"history":  detail.History,
	})
}

// Prescriptions

func (h *handler) listPrescriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	list, err := h.app.Prescriptions.List(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"prescriptions": list})
}

func (h *handler) createPrescription(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	// Allow some slack for the multipart framing and text fields.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+512*1024)

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) || stderrors.Is(err, multipart.ErrMessageTooLarge) {
			httputil.WriteError(w, errors.FileTooLarge(h.maxUpload))
			return
		}
		httputil.BadRequest(w, "Invalid multipart body")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.BadRequest(w, "No image file provided")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))

	p, err := h.app.Prescriptions.Create(r.Context(), userID, file, header.Filename, contentType, title, description)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	metrics.RecordUpload()
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{"prescription": p})
}

func (h *handler) getPrescription(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	p, err := h.app.Prescriptions.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"prescription": p})
}

func (h *handler) deletePrescription(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	if err := h.app.Prescriptions.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Prescription deleted")
}

// Notifications

func (h *handler) subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	// Browser clients post the descriptor wrapped in a "subscription" key;
	// the bare descriptor is accepted as well.
	var req struct {
		Subscription *user.Subscription    `json:"subscription"`
		Endpoint     string                `json:"endpoint"`
		Keys         user.SubscriptionKeys `json:"keys"`
	}
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	sub := req.Subscription
	if sub == nil {
		sub = &user.Subscription{Endpoint: req.Endpoint, Keys: req.Keys}
	}

	if err := h.app.Notifications.Subscribe(r.Context(), userID, sub); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Subscription saved")
}

func (h *handler) testNotification(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	if err := h.app.Notifications.SendTest(r.Context(), userID); err != nil {
		metrics.RecordReminder(false)
		httputil.WriteError(w, err)
		return
	}

	metrics.RecordReminder(true)
	httputil.WriteMessage(w, http.StatusOK, "Test notification sent")
}

func (h *handler) remind(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	if err := h.app.Notifications.Remind(r.Context(), userID, mux.Vars(r)["medicineId"]); err != nil {
		metrics.RecordReminder(false)
		httputil.WriteError(w, err)
		return
	}

	metrics.RecordReminder(true)
	httputil.WriteMessage(w, http.StatusOK, "Reminder sent")
}

func (h *handler) notificationStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	subscribed, endpoint, err := h.app.Notifications.Status(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"subscribed": subscribed,
		"endpoint":   endpoint,
	})
}
