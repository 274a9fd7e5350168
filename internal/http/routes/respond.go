package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/lazyboycode/rawg-game-hub/filters"
	"github.com/lazyboycode/rawg-game-hub/rawg"
	"github.com/lazyboycode/rawg-game-hub/view"
)

type errorBody struct {
	Error string `json:"error"`
}

type selectionBody struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type filtersBody struct {
	Genre      *selectionBody `json:"genre"`
	Platform   *selectionBody `json:"platform"`
	Heading    string         `json:"heading"`
	Generation uint64         `json:"generation"`
}

type listingBody struct {
	Heading string      `json:"heading"`
	Key     string      `json:"key"`
	Filters filtersBody `json:"filters"`
	Count   int         `json:"count"`
	Next    string      `json:"next,omitempty"`
	Games   []rawg.Game `json:"games"`
}

type developerBody struct {
	Ref            string          `json:"ref"`
	Developer      *rawg.Developer `json:"developer"`
	PublishedCount int             `json:"published_count"`
	Games          []rawg.Game     `json:"games"`
}

func toSelection(s *filters.Selection) *selectionBody {
	if s == nil {
		return nil
	}
	return &selectionBody{ID: s.ID, Name: s.Name}
}

func filtersResponse(f filters.Filters) filtersBody {
	return filtersBody{
		Genre:      toSelection(f.Genre),
		Platform:   toSelection(f.Platform),
		Heading:    f.Heading(),
		Generation: f.Generation,
	}
}

func listingResponse(st view.ListingState) listingBody {
	games := st.Games
	if games == nil {
		games = []rawg.Game{}
	}
	return listingBody{
		Heading: st.Heading,
		Key:     st.Key.String(),
		Filters: filtersResponse(st.Filters),
		Count:   st.Count,
		Next:    st.Next,
		Games:   games,
	}
}

func developerResponse(st view.DeveloperState) developerBody {
	games := st.Games
	if games == nil {
		games = []rawg.Game{}
	}
	return developerBody{
		Ref:            st.Ref,
		Developer:      st.Developer,
		PublishedCount: st.PublishedCount,
		Games:          games,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	ev := hlog.FromRequest(r).Warn()
	if status >= http.StatusInternalServerError {
		ev = hlog.FromRequest(r).Error()
	}
	ev.Err(err).Int("status", status).Msg("request failed")
	s.writeJSON(w, r, status, errorBody{Error: err.Error()})
}

// writeView renders a terminal view state. A failed upstream fetch maps
// to 404 when RAWG said so and to 502 otherwise.
func (s *Server) writeView(w http.ResponseWriter, r *http.Request, isError bool, err error, body any) {
	if !isError {
		s.writeJSON(w, r, http.StatusOK, body)
		return
	}
	if rawg.IsNotFound(err) {
		s.writeError(w, r, http.StatusNotFound, err)
		return
	}
	s.writeError(w, r, http.StatusBadGateway, err)
}

// writeSelectionError answers a rejected filter selection: 400 for bad
// input, 504 when the catalog list timed out and the view mapping for any
// other upstream failure.
func (s *Server) writeSelectionError(w http.ResponseWriter, r *http.Request, err error) {
	var ue *upstreamError
	switch {
	case !errors.As(err, &ue):
		s.writeError(w, r, http.StatusBadRequest, err)
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, r, http.StatusGatewayTimeout, err)
	default:
		s.writeView(w, r, true, err, nil)
	}
}
