package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/lazyboycode/rawg-game-hub/cache"
	"github.com/lazyboycode/rawg-game-hub/filters"
	"github.com/lazyboycode/rawg-game-hub/view"
)

// Source is everything the API reads from the catalog.
type Source interface {
	view.DeveloperSource
	view.CatalogSource
}

type Server struct {
	Router  *chi.Mux
	Sess    *scs.SessionManager
	Engine  *cache.Engine
	Src     Source
	Log     zerolog.Logger
	Timeout time.Duration // upper bound for awaiting a view
}

type ServerOptions struct {
	Sess    *scs.SessionManager
	Engine  *cache.Engine
	Src     Source
	Log     zerolog.Logger
	Timeout time.Duration
}

// Session keys holding the filter selection.
const (
	sessGenreID      = "genre_id"
	sessGenreName    = "genre_name"
	sessPlatformID   = "platform_id"
	sessPlatformName = "platform_name"
)

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(opts.Log))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("took", d).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, Sess: opts.Sess, Engine: opts.Engine, Src: opts.Src, Log: opts.Log, Timeout: opts.Timeout}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("write health check response")
		}
	})

	r.Group(func(sr chi.Router) {
		sr.Use(s.Sess.LoadAndSave)
		sr.Get("/games", s.handleGames)
		sr.Get("/filters", s.handleGetFilters)
		sr.Post("/filters", s.handleSetFilters)
	})
	r.Get("/genres", s.handleGenres)
	r.Get("/platforms", s.handlePlatforms)
	r.Get("/developers/{ref}", s.handleDeveloper)
	r.Get("/cache/stats", s.handleStats)

	return s
}

func (s *Server) awaitCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.Timeout)
}

// sessionChanges replays the visitor's stored selection as filter changes.
func (s *Server) sessionChanges(ctx context.Context) []filters.Change {
	var changes []filters.Change
	if s.Sess.Exists(ctx, sessGenreID) {
		changes = append(changes, filters.SetGenre(filters.Selection{
			ID:   s.Sess.GetInt(ctx, sessGenreID),
			Name: s.Sess.GetString(ctx, sessGenreName),
		}))
	}
	if s.Sess.Exists(ctx, sessPlatformID) {
		changes = append(changes, filters.SetPlatform(filters.Selection{
			ID:   s.Sess.GetInt(ctx, sessPlatformID),
			Name: s.Sess.GetString(ctx, sessPlatformName),
		}))
	}
	return changes
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.awaitCtx(r)
	defer cancel()

	store := filters.NewStore(s.sessionChanges(r.Context())...)

	// query parameters override the session selection for this request only
	changes, err := s.parseSelection(ctx, r.URL.Query().Get("genre"), r.URL.Query().Get("platform"))
	if err != nil {
		s.writeSelectionError(w, r, err)
		return
	}
	if len(changes) > 0 {
		store.Update(changes...)
	}

	l := view.NewListing(s.Engine, s.Src, store, view.WithLogger(*hlog.FromRequest(r)))
	defer l.Close()

	st, err := l.Await(ctx)
	if err != nil {
		s.writeError(w, r, http.StatusGatewayTimeout, err)
		return
	}
	s.writeView(w, r, st.IsError, st.Err, listingResponse(st))
}

func (s *Server) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	f := filters.NewStore(s.sessionChanges(r.Context())...).Get()
	s.writeJSON(w, r, http.StatusOK, filtersResponse(f))
}

// handleSetFilters stores the selection in the session. An empty value
// clears that filter; a missing one leaves it untouched.
func (s *Server) handleSetFilters(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	ctx, cancel := s.awaitCtx(r)
	defer cancel()

	genre, hasGenre := formValue(r, "genre")
	platform, hasPlatform := formValue(r, "platform")

	changes, err := s.parseSelection(ctx, genre, platform)
	if err != nil {
		s.writeSelectionError(w, r, err)
		return
	}

	store := filters.NewStore(s.sessionChanges(r.Context())...)
	if hasGenre && genre == "" {
		changes = append(changes, filters.ClearGenre())
	}
	if hasPlatform && platform == "" {
		changes = append(changes, filters.ClearPlatform())
	}
	f := store.Update(changes...)

	sess := r.Context()
	if f.Genre != nil {
		s.Sess.Put(sess, sessGenreID, f.Genre.ID)
		s.Sess.Put(sess, sessGenreName, f.Genre.Name)
	} else {
		s.Sess.Remove(sess, sessGenreID)
		s.Sess.Remove(sess, sessGenreName)
	}
	if f.Platform != nil {
		s.Sess.Put(sess, sessPlatformID, f.Platform.ID)
		s.Sess.Put(sess, sessPlatformName, f.Platform.Name)
	} else {
		s.Sess.Remove(sess, sessPlatformID)
		s.Sess.Remove(sess, sessPlatformName)
	}

	s.writeJSON(w, r, http.StatusOK, filtersResponse(f))
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.awaitCtx(r)
	defer cancel()

	res, err := view.Genres(ctx, s.Engine, s.Src)
	if err != nil {
		s.writeError(w, r, http.StatusGatewayTimeout, err)
		return
	}
	s.writeView(w, r, res.IsError, res.Err, res.Data)
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.awaitCtx(r)
	defer cancel()

	res, err := view.Platforms(ctx, s.Engine, s.Src)
	if err != nil {
		s.writeError(w, r, http.StatusGatewayTimeout, err)
		return
	}
	s.writeView(w, r, res.IsError, res.Err, res.Data)
}

func (s *Server) handleDeveloper(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.awaitCtx(r)
	defer cancel()

	d := view.NewDeveloperDetail(s.Engine, s.Src, chi.URLParam(r, "ref"), view.WithLogger(*hlog.FromRequest(r)))
	defer d.Close()

	st, err := d.Await(ctx)
	if err != nil {
		s.writeError(w, r, http.StatusGatewayTimeout, err)
		return
	}
	s.writeView(w, r, st.IsError, st.Err, developerResponse(st))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.Engine.Stats())
}

// upstreamError marks a selection that could not be checked because the
// catalog list itself failed to load.
type upstreamError struct {
	what string
	err  error
}

func (e *upstreamError) Error() string { return fmt.Sprintf("load %s: %v", e.what, e.err) }
func (e *upstreamError) Unwrap() error { return e.err }

// parseSelection turns genre/platform ids into filter changes, taking the
// names from the cached lists. Empty values yield no change. Failures to
// load a list are returned as *upstreamError.
func (s *Server) parseSelection(ctx context.Context, genre, platform string) ([]filters.Change, error) {
	var changes []filters.Change

	if genre != "" {
		id, err := strconv.Atoi(genre)
		if err != nil {
			return nil, errors.New("genre must be a numeric id")
		}
		res, err := view.Genres(ctx, s.Engine, s.Src)
		if err != nil {
			return nil, &upstreamError{what: "genres", err: err}
		}
		if res.IsError {
			return nil, &upstreamError{what: "genres", err: res.Err}
		}
		sel, ok := view.FindGenre(res.Data, id)
		if !ok {
			return nil, fmt.Errorf("unknown genre %d", id)
		}
		changes = append(changes, filters.SetGenre(sel))
	}

	if platform != "" {
		id, err := strconv.Atoi(platform)
		if err != nil {
			return nil, errors.New("platform must be a numeric id")
		}
		res, err := view.Platforms(ctx, s.Engine, s.Src)
		if err != nil {
			return nil, &upstreamError{what: "platforms", err: err}
		}
		if res.IsError {
			return nil, &upstreamError{what: "platforms", err: res.Err}
		}
		sel, ok := view.FindPlatform(res.Data, id)
		if !ok {
			return nil, fmt.Errorf("unknown platform %d", id)
		}
		changes = append(changes, filters.SetPlatform(sel))
	}
	return changes, nil
}

func formValue(r *http.Request, name string) (string, bool) {
	vs, ok := r.PostForm[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}
