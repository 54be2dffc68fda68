package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/turntable-server/turntable/internal/domain"
	"github.com/turntable-server/turntable/internal/protocol"
	"github.com/turntable-server/turntable/internal/service"
	"github.com/turntable-server/turntable/internal/websocket"
)

// UserStore fetches requesting players.
type UserStore interface {
	UserByID(ctx context.Context, id int) (*domain.User, error)
	UserByName(ctx context.Context, name string) (*domain.User, error)
}

// Presence answers connectivity questions about a player. The realtime
// server owns the underlying state.
type Presence interface {
	Online(ctx context.Context, userID int) (bool, error)
	Mode(ctx context.Context, userID int) (domain.GameMode, error)
}

// ActivitySink records that a player was just seen. Implementations must
// not block the request path.
type ActivitySink interface {
	Touch(userID int)
}

// EventPublisher forwards player state changes to the realtime server.
type EventPublisher interface {
	PublishUserUpdate(userID int, mode domain.GameMode)
}

// clientErrorBody is what malformed requests get. The legacy client never
// displays it.
const clientErrorBody = "error: invalid request"

// Handler serves the versioned leaderboard endpoints.
type Handler struct {
	leaderboard *service.Leaderboard
	users       UserStore
	presence    Presence
	activity    ActivitySink
	events      EventPublisher
	hub         *websocket.Hub
	version     string
	logger      *slog.Logger
}

// NewHandler creates a new HTTP handler. hub may be nil when the event feed
// is disabled.
func NewHandler(
	leaderboard *service.Leaderboard,
	users UserStore,
	presence Presence,
	activity ActivitySink,
	events EventPublisher,
	hub *websocket.Hub,
	version string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		leaderboard: leaderboard,
		users:       users,
		presence:    presence,
		activity:    activity,
		events:      events,
		hub:         hub,
		version:     version,
		logger:      logger,
	}
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.Index)
	r.Get("/health", h.HealthCheck)

	if h.hub != nil {
		r.Get("/ws", h.HandleWebSocket)
	}

	// One endpoint per historical client generation. The handlers parse
	// each generation's parameter set; the response shape itself lives in
	// the variant records.
	r.Route("/web", func(r chi.Router) {
		r.Get("/osu-osz2-getscores.php", h.GetScores)
		r.Get("/osu-getscores6.php", h.GetScores6)
		r.Get("/osu-getscores5.php", h.GetScores5)
		r.Get("/osu-getscores4.php", h.GetScores4)
		r.Get("/osu-getscores3.php", h.GetScores3)
		r.Get("/osu-getscores2.php", h.GetScores2)
		r.Get("/osu-getscores.php", h.GetScores1)
	})

	return r
}

// Index returns the server identity line.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.writeText(w, "turntable-"+h.version)
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeText(w, "ok")
}

// HandleWebSocket handles event feed upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetScores serves the newest client generations. The request version
// parameter selects timestamp encoding, the replay flag and the
// Ranked/Qualified code swap.
func (h *Handler) GetScores(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	requestVersion, err := intParam(q, "vv", 1)
	if err != nil {
		h.writeClientError(w)
		return
	}
	rankingRaw, err := intParam(q, "v", 1)
	if err != nil {
		h.writeClientError(w)
		return
	}
	rankingType, err := domain.ParseRankingType(rankingRaw)
	if err != nil {
		h.writeClientError(w)
		return
	}
	modeRaw, err := requiredIntParam(q, "m")
	if err != nil {
		h.writeClientError(w)
		return
	}
	mode, err := domain.ParseGameMode(modeRaw)
	if err != nil {
		h.writeClientError(w)
		return
	}
	mods, err := intParam(q, "mods", 0)
	if err != nil {
		h.writeClientError(w)
		return
	}
	checksum, filename := q.Get("c"), q.Get("f")
	if checksum == "" || filename == "" {
		h.writeClientError(w)
		return
	}

	player, err := h.authenticate(r.Context(), q)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.activity.Touch(player.ID)

	h.fetch(w, r, protocol.VariantCurrent, service.Request{
		Filename:       filename,
		Checksum:       checksum,
		Mode:           mode,
		RankingType:    rankingType,
		Mods:           domain.Mods(mods),
		SkipScores:     q.Get("s") == "1",
		RequestVersion: requestVersion,
		Requester:      player,
	})
}

// GetScores6 serves the last generation before the versioned endpoint.
func (h *Handler) GetScores6(w http.ResponseWriter, r *http.Request) {
	h.legacyScores(w, r, protocol.VariantGetScores6, false)
}

// GetScores5 additionally tells the realtime server when the player browses
// a different mode's leaderboard.
func (h *Handler) GetScores5(w http.ResponseWriter, r *http.Request) {
	h.legacyScores(w, r, protocol.VariantGetScores5, true)
}

// GetScores4 predates the beatmap metadata lines and only ever speaks the
// first game mode.
func (h *Handler) GetScores4(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	checksum, filename := q.Get("c"), q.Get("f")
	if checksum == "" || filename == "" {
		h.writeClientError(w)
		return
	}

	player, err := h.authenticateByID(r.Context(), q)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	res, ok := h.fetch(w, r, protocol.VariantGetScores4, service.Request{
		Filename:       filename,
		Checksum:       checksum,
		Mode:           domain.ModeOsu,
		SkipScores:     q.Get("s") == "1",
		RequestVersion: 1,
		Requester:      player,
	})
	if !ok || !res.Fresh {
		return
	}

	h.notifyModeChange(r.Context(), player.ID, domain.ModeOsu)
	h.activity.Touch(player.ID)
}

// GetScores3 has no player identity at all.
func (h *Handler) GetScores3(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	checksum, filename := q.Get("c"), q.Get("f")
	if checksum == "" || filename == "" {
		h.writeClientError(w)
		return
	}

	h.fetch(w, r, protocol.VariantGetScores3, service.Request{
		Filename:   filename,
		Checksum:   checksum,
		Mode:       domain.ModeOsu,
		SkipScores: q.Get("s") == "1",
	})
}

// GetScores2 is the gated-status generation; its skip parameter is
// optional.
func (h *Handler) GetScores2(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	checksum, filename := q.Get("c"), q.Get("f")
	if checksum == "" || filename == "" {
		h.writeClientError(w)
		return
	}

	h.fetch(w, r, protocol.VariantGetScores2, service.Request{
		Filename:   filename,
		Checksum:   checksum,
		Mode:       domain.ModeOsu,
		SkipScores: q.Get("s") == "1",
	})
}

// GetScores1 is the oldest generation: checksum only.
func (h *Handler) GetScores1(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	checksum := q.Get("c")
	if checksum == "" {
		h.writeClientError(w)
		return
	}

	h.fetch(w, r, protocol.VariantGetScores1, service.Request{
		Checksum: checksum,
		Mode:     domain.ModeOsu,
	})
}

// legacyScores covers the two generations that take a mode parameter and
// authenticate by user id.
func (h *Handler) legacyScores(w http.ResponseWriter, r *http.Request, v protocol.Variant, modeEvents bool) {
	q := r.URL.Query()

	modeRaw, err := intParam(q, "m", 0)
	if err != nil {
		h.writeClientError(w)
		return
	}
	mode, err := domain.ParseGameMode(modeRaw)
	if err != nil {
		h.writeClientError(w)
		return
	}
	checksum, filename := q.Get("c"), q.Get("f")
	if checksum == "" || filename == "" {
		h.writeClientError(w)
		return
	}

	player, err := h.authenticateByID(r.Context(), q)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	res, ok := h.fetch(w, r, v, service.Request{
		Filename:       filename,
		Checksum:       checksum,
		Mode:           mode,
		SkipScores:     q.Get("s") == "1",
		RequestVersion: 1,
		Requester:      player,
	})
	if !ok || !res.Fresh {
		return
	}

	// These generations only count as seen once the map checks out.
	if modeEvents {
		h.notifyModeChange(r.Context(), player.ID, mode)
	}
	h.activity.Touch(player.ID)
}

// fetch runs the leaderboard engine and writes the plain-text body. Store
// failures abort the whole response. The result lets callers gate side
// effects on a fresh beatmap.
func (h *Handler) fetch(w http.ResponseWriter, r *http.Request, v protocol.Variant, req service.Request) (service.Result, bool) {
	res, err := h.leaderboard.Fetch(r.Context(), v, req)
	if err != nil {
		h.logger.Error("failed to build leaderboard response",
			"variant", v.Name,
			"error", err,
		)
		http.Error(w, domain.ErrInternalError.Error(), http.StatusInternalServerError)
		return service.Result{}, false
	}
	h.writeText(w, res.Body)
	return res, true
}

// notifyModeChange publishes a user update when the requested mode differs
// from the player's current presence mode.
func (h *Handler) notifyModeChange(ctx context.Context, userID int, mode domain.GameMode) {
	current, err := h.presence.Mode(ctx, userID)
	if err != nil {
		// Presence state can lag a fresh login; nothing to forward.
		return
	}
	if current != mode {
		h.events.PublishUserUpdate(userID, mode)
	}
}

func (h *Handler) writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func (h *Handler) writeClientError(w http.ResponseWriter) {
	http.Error(w, clientErrorBody, http.StatusBadRequest)
}

func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidRequest) {
		h.writeClientError(w)
		return
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		http.Error(w, domain.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}
	h.logger.Error("authentication lookup failed", "error", err)
	http.Error(w, domain.ErrInternalError.Error(), http.StatusInternalServerError)
}

// intParam parses an optional integer query parameter. A present but
// malformed value is a client error, not a default.
func intParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidRequest
	}
	return v, nil
}

func requiredIntParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, domain.ErrInvalidRequest
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidRequest
	}
	return v, nil
}
