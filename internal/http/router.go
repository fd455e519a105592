package http

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type RouterConfig struct {
	Auth       *AuthHandler
	Dashboard  *DashboardHandler
	Meetings   *MeetingAPIHandler
	Events     http.Handler
	Health     http.Handler
	Static     http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Health != nil {
		mux.Handle("/healthz", cfg.Health)
	}
	if cfg.Static != nil {
		mux.Handle("/static/", cfg.Static)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
	})

	if cfg.Auth != nil {
		mux.HandleFunc(signInPath, func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Auth.SignInPage(w, r)
			case http.MethodPost:
				cfg.Auth.SignIn(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/auth/sign-up", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Auth.SignUpPage(w, r)
			case http.MethodPost:
				cfg.Auth.SignUp(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/auth/sign-out", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.SignOut(w, r)
		})
		mux.HandleFunc("/api/session/refresh", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.RefreshSession(w, r)
		})
		mux.HandleFunc("/api/me/password", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				methodNotAllowed(w, http.MethodPut)
				return
			}
			cfg.Auth.UpdatePassword(w, r)
		})
	}

	if cfg.Dashboard != nil {
		mux.HandleFunc(dashboardPath, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Dashboard.Index(w, r)
		})
		mux.HandleFunc("/dashboard/meetings", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Dashboard.Create(w, r)
		})
		mux.HandleFunc("/dashboard/meetings/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/dashboard/meetings/")
			switch id {
			case "":
				http.NotFound(w, r)
			case "new":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Dashboard.New(w, r)
			case "reset":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Dashboard.Reset(w, r)
			default:
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Dashboard.Show(w, r, id)
			}
		})
	}

	if cfg.Meetings != nil {
		mux.HandleFunc("/api/meetings", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Meetings.List(w, r)
			case http.MethodPost:
				cfg.Meetings.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/api/meetings/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/api/meetings/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Meetings.Get(w, r, id)
		})
	}

	if cfg.Events != nil {
		mux.Handle("/events", cfg.Events)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers 200 when the database responds and 503 otherwise.
func HealthHandler(db Pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responder := newResponder(nil)
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				responder.loggerFor(r.Context()).WarnContext(ctx, "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	})
}

type healthResponse struct {
	Status string `json:"status"`
}
