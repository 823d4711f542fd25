package demoapp

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const searchTTL = 5 * time.Minute

// Server serves the demo pages
type Server struct {
	store Store
	cache Cache
	tmpl  *template.Template
}

// NewServer creates a server. cache may be nil.
func NewServer(store Store, cache Cache) *Server {
	return &Server{
		store: store,
		cache: cache,
		tmpl:  template.Must(template.New("pages").Parse(pages)),
	}
}

// Handler returns the routes of the demo app
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /login", s.loginForm)
	mux.HandleFunc("POST /login", s.login)
	mux.HandleFunc("GET /search", s.search)
	mux.HandleFunc("GET /{$}", s.index)
	return logRequests(mux)
}

type pageData struct {
	Title    string
	Username string
	Error    string
	Welcome  string
	Query    string
	Searched bool
	Results  []string
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("failed to render page")
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		status["status"], status["store"] = "unhealthy", err.Error()
		code = http.StatusServiceUnavailable
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			status["status"], status["cache"] = "unhealthy", err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index", pageData{Title: "Demo"})
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "login", pageData{Title: "Log in"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")

	data := pageData{Title: "Log in", Username: username}
	if username == "" || password == "" {
		data.Error = "Username and password are required"
		s.render(w, http.StatusBadRequest, "login", data)
		return
	}

	user, err := s.store.Authenticate(r.Context(), username, password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		data.Error = "Invalid username or password"
		s.render(w, http.StatusUnauthorized, "login", data)
		return
	case err != nil:
		log.Error().Err(err).Msg("authentication failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data.Welcome = "Welcome, " + user.Username
	s.render(w, http.StatusOK, "login", data)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	data := pageData{Title: "Search", Query: query, Searched: query != ""}
	if query == "" {
		s.render(w, http.StatusOK, "search", data)
		return
	}

	results, hit, err := s.cachedSearch(r.Context(), query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("search failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if s.cache != nil {
		if hit {
			w.Header().Set("X-Cache", "HIT")
		} else {
			w.Header().Set("X-Cache", "MISS")
		}
	}

	data.Results = results
	s.render(w, http.StatusOK, "search", data)
}

// cachedSearch reads through the cache. Cache failures fall back to the store.
func (s *Server) cachedSearch(ctx context.Context, query string) ([]string, bool, error) {
	if s.cache == nil {
		results, err := s.store.Search(ctx, query)
		return results, false, err
	}

	key := "search:" + strings.ToLower(query)
	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if ok {
		var results []string
		if err := json.Unmarshal([]byte(cached), &results); err == nil {
			return results, true, nil
		}
	}

	results, err := s.store.Search(ctx, query)
	if err != nil {
		return nil, false, err
	}
	data, err := json.Marshal(results)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, key, string(data), searchTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return results, false, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

const pages = `
{{define "head"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 640px; margin: 40px auto; }
        .error-message { color: #c0392b; }
        .success-message { color: #27ae60; }
        .result { padding: 4px 0; }
    </style>
</head>
<body>
    <nav><a href="/login">Log in</a> | <a href="/search">Search</a></nav>
{{end}}

{{define "foot"}}</body>
</html>
{{end}}

{{define "index"}}{{template "head" .}}
    <h1>Demo</h1>
    <p>Log in or search the catalog.</p>
{{template "foot" .}}{{end}}

{{define "login"}}{{template "head" .}}
    <h1>Log in</h1>
    {{if .Error}}<p class="error-message">{{.Error}}</p>{{end}}
    {{if .Welcome}}<p class="success-message">{{.Welcome}}</p>{{end}}
    <form method="post" action="/login">
        <label>Username <input id="username" name="username" value="{{.Username}}"></label>
        <label>Password <input id="password" name="password" type="password"></label>
        <button type="submit">Log in</button>
    </form>
{{template "foot" .}}{{end}}

{{define "search"}}{{template "head" .}}
    <h1>Search</h1>
    <form method="get" action="/search">
        <input name="q" value="{{.Query}}" placeholder="Search the catalog">
        <button type="submit">Search</button>
    </form>
    {{if .Results}}
    <ul id="results">
        {{range .Results}}<li class="result">{{.}}</li>
        {{end}}
    </ul>
    {{else if .Searched}}
    <p class="no-results">No results for "{{.Query}}"</p>
    {{end}}
{{template "foot" .}}{{end}}
`
