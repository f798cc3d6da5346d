package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-ledstrip/internal/history"
	"github.com/nerrad567/gray-logic-ledstrip/internal/light"
)

// maxQueryParamLen limits path and query parameter length.
const maxQueryParamLen = 100

// lightView is the JSON representation of a light.
type lightView struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	State        light.State     `json:"state"`
	Features     []string        `json:"features"`
	EffectList   []string        `json:"effect_list,omitempty"`
	AssumedState bool            `json:"assumed_state"`
	Optimistic   map[string]bool `json:"optimistic"`
}

func viewOf(l *light.Light) lightView {
	v := lightView{
		ID:           l.ID(),
		Name:         l.Name(),
		State:        l.State(),
		Features:     []string{},
		AssumedState: l.AssumedState(),
		Optimistic:   make(map[string]bool, len(light.Channels)),
	}
	f := l.Features()
	if f.Has(light.SupportBrightness) {
		v.Features = append(v.Features, "brightness")
	}
	if f.Has(light.SupportColor) {
		v.Features = append(v.Features, "color")
	}
	if f.Has(light.SupportEffect) {
		v.Features = append(v.Features, "effect")
		v.EffectList = l.EffectList()
	}
	for _, ch := range light.Channels {
		v.Optimistic[ch.String()] = l.Optimistic(ch)
	}
	return v
}

// lightStates snapshots every light in ID order for new WebSocket subscribers.
func (s *Server) lightStates() []LightStateEvent {
	events := make([]LightStateEvent, 0, len(s.order))
	for _, id := range s.order {
		events = append(events, LightStateEvent{LightID: id, State: s.lights[id].State()})
	}
	return events
}

// turnOnRequest is the body of POST /lights/{id}/turn_on. Every field is
// optional. Color may be given as an object or as RRGGBB hex, not both.
type turnOnRequest struct {
	Brightness *int        `json:"brightness"`
	RGBColor   *rgbRequest `json:"rgb_color"`
	HexColor   *string     `json:"hex_color"`
	Effect     *string     `json:"effect"`
}

// rgbRequest decodes wide so out-of-range components are reported as
// validation errors rather than malformed JSON.
type rgbRequest struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

func (c rgbRequest) color() (light.Color, error) {
	for _, v := range []int{c.R, c.G, c.B} {
		if v < 0 || v > 255 {
			return light.Color{}, errors.New("rgb_color components must be between 0 and 255")
		}
	}
	//nolint:gosec // range checked above
	return light.Color{R: uint8(c.R), G: uint8(c.G), B: uint8(c.B)}, nil
}

func (req turnOnRequest) attributes() (light.Attributes, error) {
	var attrs light.Attributes

	if req.Brightness != nil {
		b := *req.Brightness
		if b < 0 || b > light.MaxBrightness {
			return attrs, fmt.Errorf("brightness must be between 0 and %d", light.MaxBrightness)
		}
		u := uint8(b) //nolint:gosec // range checked above
		attrs.Brightness = &u
	}

	switch {
	case req.RGBColor != nil && req.HexColor != nil:
		return attrs, errors.New("rgb_color and hex_color are mutually exclusive")
	case req.RGBColor != nil:
		c, err := req.RGBColor.color()
		if err != nil {
			return attrs, err
		}
		attrs.Color = &c
	case req.HexColor != nil:
		c, err := light.ParseHexColor(*req.HexColor)
		if err != nil {
			return attrs, fmt.Errorf("hex_color: %w", err)
		}
		attrs.Color = &c
	}

	if req.Effect != nil {
		e := *req.Effect
		attrs.Effect = &e
	}
	return attrs, nil
}

// commandResponse reports the state believed after a command. Error is set
// when one or more publishes failed; optimistic changes are still applied.
type commandResponse struct {
	Light lightView `json:"light"`
	Error string    `json:"error,omitempty"`
}

func (s *Server) handleListLights(w http.ResponseWriter, _ *http.Request) {
	views := make([]lightView, 0, len(s.order))
	for _, id := range s.order {
		views = append(views, viewOf(s.lights[id]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"lights": views, "count": len(views)})
}

func (s *Server) handleGetLight(w http.ResponseWriter, r *http.Request) {
	l, ok := s.lookupLight(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(l))
}

func (s *Server) handleTurnOn(w http.ResponseWriter, r *http.Request) {
	l, ok := s.lookupLight(w, r)
	if !ok {
		return
	}

	// An absent body, chunked or not, means turn on with no attributes.
	var req turnOnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	attrs, err := req.attributes()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), codeValidation)
		return
	}

	s.respondCommand(w, r, l, "turn_on", l.TurnOn(r.Context(), attrs))
}

func (s *Server) handleTurnOff(w http.ResponseWriter, r *http.Request) {
	l, ok := s.lookupLight(w, r)
	if !ok {
		return
	}
	s.respondCommand(w, r, l, "turn_off", l.TurnOff(r.Context()))
}

// respondCommand maps a command result to a response. Publish failures are
// 502 because the bridge could not reach the broker; the body still carries
// the believed state.
func (s *Server) respondCommand(w http.ResponseWriter, r *http.Request, l *light.Light, command string, err error) {
	resp := commandResponse{Light: viewOf(l)}
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, resp)
	case errors.Is(err, light.ErrPublishFailed):
		s.logger.Warn("light command partially failed",
			"light", l.ID(),
			"command", command,
			"error", err,
			"request_id", requestID(r.Context()),
		)
		resp.Error = err.Error()
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

func (s *Server) handleLightHistory(w http.ResponseWriter, r *http.Request) {
	l, ok := s.lookupLight(w, r)
	if !ok {
		return
	}
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "state history is not enabled")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := s.history.List(r.Context(), l.ID(), limit)
	if err != nil {
		s.logger.Error("failed to list light history", "light", l.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"light_id": l.ID(),
		"entries":  entries,
		"count":    len(entries),
	})
}

func (s *Server) lookupLight(w http.ResponseWriter, r *http.Request) (*light.Light, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeError(w, http.StatusBadRequest, "invalid light ID")
		return nil, false
	}
	l, ok := s.lights[id]
	if !ok {
		writeError(w, http.StatusNotFound, "light not found")
		return nil, false
	}
	return l, true
}

func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return history.DefaultLimit, nil
	}
	if len(raw) > maxQueryParamLen {
		return 0, errors.New("invalid limit")
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.New("invalid limit")
	}
	if limit > history.MaxLimit {
		return 0, errors.New("limit exceeds maximum")
	}
	return limit, nil
}
