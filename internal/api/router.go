package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/harborview/taskboard/internal/config"
	"github.com/harborview/taskboard/internal/middleware"
	"github.com/harborview/taskboard/internal/store"
	"github.com/harborview/taskboard/internal/ws"
)

var startTime = time.Now()

type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// NewRouter wires the full HTTP surface: board CRUD, sub-resources, the
// work-done ledger, attachment serving, and the websocket hub.
func NewRouter(db *sql.DB, cfg config.Config) http.Handler {
	r := chi.NewRouter()

	hub := ws.NewHub()
	go hub.Run()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Org-ID", "X-User-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Get("/", handleRoot)
	r.Handle("/ws", &ws.Handler{Hub: hub})

	tasks := &TasksHandler{
		Store:   store.NewTaskStore(db),
		Users:   store.NewUserStore(db),
		Uploads: cfg.Uploads,
		Hub:     hub,
	}
	comments := &CommentsHandler{Store: store.NewCommentStore(db), Hub: hub}
	reports := &ReportsHandler{Store: store.NewReportStore(db), Hub: hub}
	ledger := &LedgerHandler{Store: store.NewLedgerStore(db)}
	projects := &ProjectsHandler{Store: store.NewProjectStore(db)}
	users := &UsersHandler{Store: store.NewUserStore(db)}
	attachments := &AttachmentsHandler{Uploads: cfg.Uploads}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireWorkspace)

		r.Get("/tasks", tasks.List)
		r.Post("/tasks", tasks.Create)
		r.Get("/tasks/{id}", tasks.Get)
		r.Patch("/tasks/{id}", tasks.Update)
		r.Patch("/tasks/{id}/status", tasks.UpdateStatus)
		r.Delete("/tasks/{id}", tasks.Delete)

		r.Get("/tasks/{id}/comments", comments.ListForTask)
		r.Post("/tasks/{id}/comments", comments.Create)
		r.Patch("/comments/{id}", comments.Update)
		r.Delete("/comments/{id}", comments.Delete)

		r.Get("/tasks/{id}/reports", reports.Summary)
		r.Post("/tasks/{id}/reports", reports.Create)

		r.Post("/ledger", ledger.Create)
		r.Get("/ledger/task/{id}", ledger.GetForTask)
		r.Delete("/ledger/task/{id}", ledger.DeleteForTask)
		r.Get("/projects/{id}/ledger", ledger.ListForProject)

		r.Get("/projects", projects.List)
		r.Post("/projects", projects.Create)
		r.Get("/projects/{id}", projects.Get)

		r.Get("/users", users.List)
		r.Get("/users/me", users.Me)

		r.Get("/attachments/{org}/{key}", attachments.Serve)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Version:   getVersion(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"name":   "Harborview Task Board",
		"health": "/health",
	})
}

func getVersion() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	return "dev"
}
