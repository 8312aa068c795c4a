package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/koldby/designsurvey/internal/api"
	"github.com/koldby/designsurvey/internal/middleware"
	"github.com/koldby/designsurvey/internal/services"
	"github.com/koldby/designsurvey/internal/store"
	"github.com/koldby/designsurvey/internal/utils"
)

const cleanupInterval = time.Hour

func main() {
	addr := utils.SafeEnv("SURVEY_ADDR", ":8080")
	dataDir := utils.SafeEnv("SURVEY_DATA_DIR", "./data")
	commit := os.Getenv("SURVEY_COMMIT")
	buildTime := os.Getenv("SURVEY_BUILD_TIME")

	sessionStore, surveyStore, statsStore, err := openStores(dataDir)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	sessions := services.NewSessionService(sessionStore, surveyStore)
	surveys := services.NewSurveyService(surveyStore)
	stats := services.NewStatsService(statsStore)
	auth := services.NewAuthService(
		utils.SafeEnv("SURVEY_ADMIN_USER", "admin"),
		utils.SafeEnv("SURVEY_ADMIN_HASH", services.DefaultAdminHash),
		middleware.SignToken,
	)

	mux := http.NewServeMux()
	api.NewRouter(sessions, surveys, stats, auth).Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "Design Survey API",
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	// Website designs under evaluation are plain static pages.
	designsDir := utils.SafeEnv("SURVEY_DESIGNS_DIR", filepath.Join(dataDir, "designs"))
	if err := os.MkdirAll(designsDir, 0o755); err != nil {
		log.Fatalf("create designs dir: %v", err)
	}
	mux.Handle("/designs/", http.StripPrefix("/designs/", http.FileServer(http.Dir(designsDir))))

	// Survey client build, when served from the same process.
	if staticDir := os.Getenv("SURVEY_STATIC_DIR"); staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := sessions.Cleanup(); err != nil {
				log.Printf("periodic cleanup: %v", err)
			}
		}
	}()

	handler := middleware.NoStore(middleware.SecureHeaders(middleware.CORS(middleware.WithAuth(mux))))

	log.Printf("survey server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openStores picks the persistence backend: sqlite when SURVEY_SQLITE_PATH is
// set, otherwise one JSON file per session under the data dir.
func openStores(dataDir string) (services.SessionStore, services.SurveyStore, services.StatsStore, error) {
	if sqlitePath := os.Getenv("SURVEY_SQLITE_PATH"); sqlitePath != "" {
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(sqlitePath))
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := store.RunMigrations(db); err != nil {
			return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		st, err := store.NewSQLiteStore(db)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Printf("using sqlite store at %s", sqlitePath)
		return st, st, st, nil
	}
	st, err := store.NewFileStore(dataDir)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Printf("using file store under %s", dataDir)
	return st, st, st, nil
}
