package rest

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
	"github.com/ewilliams-labs/groundswell/internal/core/garden"
)

const maxPreviewBody = 64 << 10

type previewRequest struct {
	Features *domain.FeatureInput `json:"features,omitempty"`
	Seed     string               `json:"seed,omitempty"`
}

type gardenSummary struct {
	Seed       int64                `json:"seed"`
	SeedSource string               `json:"seed_source"`
	Noise      string               `json:"noise"`
	Features   domain.FeatureVector `json:"features"`
	Palette    domain.ColorPalette  `json:"palette"`
	Waves      garden.WaveParams    `json:"waves"`
	Trees      int                  `json:"trees"`
	Fireflies  int                  `json:"fireflies"`
	Biomes     map[string]int       `json:"biomes"`
	MaxHeight  float64              `json:"max_height"`
}

func summarize(g *garden.Garden) gardenSummary {
	biomes := make(map[string]int)
	for b, n := range g.Terrain.BiomeCounts() {
		biomes[b.String()] = n
	}
	return gardenSummary{
		Seed:       g.Seed,
		SeedSource: g.SeedSource,
		Noise:      g.Noise,
		Features:   g.Features,
		Palette:    g.Palette,
		Waves:      g.Waves,
		Trees:      g.Trees(),
		Fireflies:  g.Fireflies(),
		Biomes:     biomes,
		MaxHeight:  g.Terrain.MaxHeight(),
	}
}

type entityPose struct {
	Kind     garden.EntityKind `json:"kind"`
	Vertex   int               `json:"vertex"`
	Position garden.Point      `json:"position"`
	Opacity  float64           `json:"opacity"`
	Scale    float64           `json:"scale"`
	Yaw      float64           `json:"yaw,omitempty"`
	Color    domain.Color      `json:"color"`
}

type entitiesResponse struct {
	T        float64      `json:"t"`
	Entities []entityPose `json:"entities"`
}

type oceanResponse struct {
	T         float64           `json:"t"`
	Size      float64           `json:"size"`
	Segments  int               `json:"segments"`
	BaseLevel float64           `json:"base_level"`
	Params    garden.WaveParams `json:"params"`
	Heights   []float64         `json:"heights"`
}

func writeGarden(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	if r.URL.Query().Get("view") == "summary" {
		writeJSON(w, http.StatusOK, summarize(g))
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// MyGarden handles GET /api/garden
func (h *Handler) MyGarden(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	g, err := h.svc.GardenFor(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeGarden(w, r, g)
}

// UserGarden handles GET /api/users/{id}/garden. It is public and reads
// stored listening data only.
func (h *Handler) UserGarden(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.CachedGardenFor(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeGarden(w, r, g)
}

// Preview handles POST /api/garden/preview
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if r.ContentLength != 0 {
		if !isJSONContentType(r) {
			writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPreviewBody)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	g, err := h.svc.Preview(r.Context(), req.Features, req.Seed)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeGarden(w, r, g)
}

// Entities handles GET /api/users/{id}/garden/entities?t=
func (h *Handler) Entities(w http.ResponseWriter, r *http.Request) {
	t, err := timeParam(r)
	if err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidArgument)
		return
	}

	g, err := h.svc.CachedGardenFor(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := entitiesResponse{T: t, Entities: make([]entityPose, len(g.Entities))}
	for i, e := range g.Entities {
		p := e.PoseAt(t)
		out.Entities[i] = entityPose{
			Kind:     e.Kind,
			Vertex:   e.Vertex,
			Position: garden.PointOf(p.Position),
			Opacity:  p.Opacity,
			Scale:    p.Scale,
			Yaw:      e.Yaw,
			Color:    e.Color,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Ocean handles GET /api/garden/ocean?t=. Signed-in callers get their own
// swell; anyone else gets the swell for the danceability query parameter,
// or the default.
func (h *Handler) Ocean(w http.ResponseWriter, r *http.Request) {
	t, err := timeParam(r)
	if err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidArgument)
		return
	}

	danceability := domain.DefaultDanceability
	if s, ok := h.session(r); ok && s.Authenticated() {
		f, err := h.svc.Features(r.Context(), s.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		danceability = f.Danceability
	} else if raw := r.URL.Query().Get("danceability"); raw != "" {
		danceability, err = finiteFloat(raw)
		if err != nil {
			writeErrorWithCode(w, http.StatusBadRequest, "invalid danceability", errCodeInvalidArgument)
			return
		}
	}

	opts := h.svc.GardenOptions()
	ocean := garden.NewOcean(opts.Terrain.Size, opts.OceanSegments, garden.WaveParamsFor(danceability))
	writeJSON(w, http.StatusOK, oceanResponse{
		T:         t,
		Size:      ocean.Size,
		Segments:  ocean.Segments,
		BaseLevel: ocean.BaseLevel,
		Params:    ocean.Params,
		Heights:   ocean.Fill(t, nil),
	})
}

// Features handles GET /api/users/{id}/features
func (h *Handler) Features(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.Features(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// Tracks handles GET /api/users/{id}/tracks
func (h *Handler) Tracks(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErrorWithCode(w, http.StatusBadRequest, "invalid limit", errCodeInvalidArgument)
			return
		}
		limit = n
	}

	tracks, err := h.svc.Tracks(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tracks == nil {
		tracks = []domain.Track{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks, "total": len(tracks)})
}

// Refresh handles POST /api/users/{id}/refresh. Only the signed-in owner
// may spend their token on a refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	userID := r.PathValue("id")
	if current != userID {
		writeErrorWithCode(w, http.StatusForbidden, "cannot refresh another user's listening data", errCodeForbidden)
		return
	}
	if err := h.svc.QueueRefresh(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "user_id": userID})
}

// timeParam reads the elapsed-time query parameter, defaulting to 0.
func timeParam(r *http.Request) (float64, error) {
	raw := r.URL.Query().Get("t")
	if raw == "" {
		return 0, nil
	}
	t, err := finiteFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid t: %w", err)
	}
	return t, nil
}

func finiteFloat(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", raw)
	}
	return v, nil
}
