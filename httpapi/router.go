package httpapi

import (
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RouterOptions configures NewRouter
type RouterOptions struct {
	// PublicDir holds static files; empty disables static serving
	PublicDir string
	// MaxBodyBytes caps the body of every operation route
	MaxBodyBytes int64
	// EnableUpgrade registers POST /upgrade
	EnableUpgrade bool
}

// Router dispatches in a fixed order: status routes, static files, then the
// proof operations. The first match wins.
type Router struct {
	mux    *chi.Mux
	public http.FileSystem
	static http.Handler
}

// NewRouter builds the service's request router around api
func NewRouter(api *API, opts RouterOptions) *Router {
	rt := &Router{mux: chi.NewRouter()}
	if opts.PublicDir != "" {
		rt.public = http.Dir(opts.PublicDir)
		rt.static = http.FileServer(rt.public)
	}

	rt.mux.Use(assignRequestID)

	rt.mux.HandleFunc("/verify2", HandleLiveness)
	rt.mux.HandleFunc("/health", HandleHealth)
	rt.mux.HandleFunc("/docs", HandleDocsUI)
	rt.mux.HandleFunc("/docs/swagger.json", HandleDocsJSON)

	// A public file of the same name is served to GET/HEAD instead of the
	// operation; the handlers answer any other method themselves
	rt.mux.Group(func(ops chi.Router) {
		ops.Use(rt.staticFirst, limitBody(opts.MaxBodyBytes))
		ops.HandleFunc("/timestamp", api.HandleTimestamp)
		ops.HandleFunc("/verify", api.HandleVerify)
		if opts.EnableUpgrade {
			ops.HandleFunc("/upgrade", api.HandleUpgrade)
		}
	})

	rt.mux.NotFound(rt.staticFirst(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})).ServeHTTP)
	return rt
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}

func assignRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

func (rt *Router) staticFirst(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt.servesStatic(r) {
			rt.static.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// servesStatic reports whether a GET or HEAD names an existing public file,
// or a directory with an index.html
func (rt *Router) servesStatic(r *http.Request) bool {
	if rt.public == nil || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		return false
	}
	name := path.Clean("/" + r.URL.Path)
	f, err := rt.public.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return true
	}
	index, err := rt.public.Open(path.Join(name, "index.html"))
	if err != nil {
		return false
	}
	index.Close()
	return true
}

// limitBody rejects bodies above limit before the handler runs and caps what
// the handler can read when the length is not announced
func limitBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				writeError(w, http.StatusRequestEntityTooLarge, ErrBodyTooLarge.Error())
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
