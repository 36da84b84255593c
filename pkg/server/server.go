// Package server provides the HTTP page API over a photo library.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"k8s.io/klog/v2"

	"github.com/tstromberg/fotovy/pkg/library"
	"github.com/tstromberg/fotovy/pkg/media"
	"github.com/tstromberg/fotovy/pkg/timeline"
)

// Library is the part of library.Library the server uses.
type Library interface {
	MediaPage(offset, limit int, onlyFavorites bool) []media.Item
	TimelinePage(offset, limit int) []timeline.Row
	SetFavorite(id string, fav bool) (media.Item, error)
	Image(id string) (*library.Image, bool)
}

// Blobs serves cached thumbnail bytes.
type Blobs interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Server serves pages of media and timeline rows as JSON.
type Server struct {
	lib      Library
	blobs    Blobs
	pageSize int
}

// New creates a new server. pageSize is the limit used when a request names none.
func New(lib Library, blobs Blobs, pageSize int) *Server {
	return &Server{lib: lib, blobs: blobs, pageSize: pageSize}
}

// Page is one page of a list.
type Page[T any] struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Items  []T `json:"items"`
}

// Handler returns the router for all endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logRequests)

	r.Get("/api/media", s.MediaHandler())
	r.Post("/api/media/{id}/favorite", s.FavoriteHandler())
	r.Get("/api/timeline", s.TimelineHandler())
	r.Get("/api/timeline/groups", s.GroupsHandler())
	r.Get("/thumb/{size}/*", s.ThumbHandler())
	r.Get("/original/*", s.OriginalHandler())
	return r
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		klog.Infof("Listening on %s...", addr)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(sctx)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		klog.V(1).Infof("%s %s -> %d (%s)", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

// pageParams reads offset and limit from the query string.
func (s *Server) pageParams(r *http.Request) (int, int, error) {
	offset, limit := 0, s.pageSize
	q := r.URL.Query()

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", v)
		}
		offset = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, 0, fmt.Errorf("invalid limit %q", v)
		}
		limit = n
	}
	return offset, limit, nil
}

// MediaHandler returns a page of the media stream.
func (s *Server) MediaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit, err := s.pageParams(r)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}

		favs := false
		if v := r.URL.Query().Get("favorites"); v != "" {
			favs, err = strconv.ParseBool(v)
			if err != nil {
				jsonError(w, fmt.Sprintf("invalid favorites %q", v), http.StatusBadRequest)
				return
			}
		}

		jsonResponse(w, Page[media.Item]{Offset: offset, Limit: limit, Items: s.lib.MediaPage(offset, limit, favs)})
	}
}

// TimelineHandler returns a page of timeline rows.
func (s *Server) TimelineHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit, err := s.pageParams(r)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		jsonResponse(w, Page[timeline.Row]{Offset: offset, Limit: limit, Items: s.lib.TimelinePage(offset, limit)})
	}
}

// GroupsHandler returns a page of timeline rows grouped by day.
func (s *Server) GroupsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit, err := s.pageParams(r)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		groups := timeline.Convert(s.lib.TimelinePage(offset, limit))
		if frags := timeline.Fragmented(groups); len(frags) > 0 {
			klog.Warningf("timeline page at %d has split albums: %v", offset, frags)
		}
		jsonResponse(w, Page[timeline.Group]{Offset: offset, Limit: limit, Items: groups})
	}
}

type favoriteRequest struct {
	Favorite bool `json:"favorite"`
}

// FavoriteHandler sets or clears the favorite flag of a media item.
func (s *Server) FavoriteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := url.PathUnescape(chi.URLParam(r, "id"))
		if err != nil {
			jsonError(w, "invalid id", http.StatusBadRequest)
			return
		}

		var req favoriteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		it, err := s.lib.SetFavorite(id, req.Favorite)
		if errors.Is(err, library.ErrNotFound) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			klog.Errorf("favorite %s: %v", id, err)
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		jsonResponse(w, it)
	}
}

// ThumbHandler serves a thumbnail through the blob cache.
func (s *Server) ThumbHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size := chi.URLParam(r, "size")
		id := chi.URLParam(r, "*")
		if !library.ValidThumbSize(size) {
			jsonError(w, fmt.Sprintf("unknown size %q", size), http.StatusBadRequest)
			return
		}
		if _, ok := s.lib.Image(id); !ok {
			http.NotFound(w, r)
			return
		}

		bs, err := s.blobs.Get(r.Context(), library.ThumbKey(size, id))
		if err != nil {
			klog.Errorf("thumb %s/%s: %v", size, id, err)
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Write(bs)
	}
}

// OriginalHandler serves the original file of a media item.
func (s *Server) OriginalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := s.lib.Image(chi.URLParam(r, "*"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, i.InPath)
	}
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		klog.Errorf("encode: %v", err)
	}
}

func jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
