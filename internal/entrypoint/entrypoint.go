package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookexchange/internal/auth"
	"github.com/mrlokans/bookexchange/internal/config"
	"github.com/mrlokans/bookexchange/internal/crypto"
	http_controllers "github.com/mrlokans/bookexchange/internal/http"
	"github.com/mrlokans/bookexchange/internal/scheduler"
	"github.com/mrlokans/bookexchange/internal/services"
	"github.com/mrlokans/bookexchange/internal/storage"
	"github.com/mrlokans/bookexchange/internal/storage/backend"
	"github.com/mrlokans/bookexchange/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// csrfKeyLength is the key size gorilla/csrf expects.
const csrfKeyLength = 32

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for SIGINT/SIGTERM, then shut down within the configured timeout.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// OpenStore builds the configured storage adapter and connects it, retrying
// transient connection failures.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Manager, error) {
	hasher := crypto.NewHasher(cfg.Auth.BcryptCost)
	store, err := backend.Open(ctx, cfg.Database, backend.WithHasher(hasher))
	if err != nil {
		return nil, err
	}
	log.Printf("Storage backend ready: %s", store.Kind())
	return store, nil
}

// DecodeCSRFSecret accepts the secret as hex or as raw bytes. An empty
// secret returns nil, which disables CSRF protection.
func DecodeCSRFSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(secret)
	if err != nil {
		// Not hex, use as raw bytes
		key = []byte(secret)
	}
	if len(key) != csrfKeyLength {
		return nil, fmt.Errorf("AUTH_CSRF_SECRET must be %d bytes (or %d hex characters), got %d bytes",
			csrfKeyLength, csrfKeyLength*2, len(key))
	}
	return key, nil
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Book Exchange v%s", version)

	csrfSecret, err := DecodeCSRFSecret(cfg.Auth.CSRFSecret)
	if err != nil {
		log.Fatalf("Invalid CSRF secret: %v", err)
	}
	if csrfSecret == nil {
		log.Printf("WARNING: AUTH_CSRF_SECRET is not set. CSRF protection is disabled.")
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), connectBudget(cfg.Database))
	store, err := OpenStore(connectCtx, cfg)
	cancelConnect()
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Disconnect(context.Background()); err != nil {
			log.Printf("Error closing storage: %v", err)
		}
	}()

	// Sessions live in their own SQLite file regardless of the backend kind.
	sessionDB, err := auth.OpenSessionDB(cfg.Auth.SessionDBPath)
	if err != nil {
		log.Fatalf("Failed to open session database: %v", err)
	}
	defer sessionDB.Close()

	sessionManager, err := auth.NewSessionManager(sessionDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	routerCfg := http_controllers.RouterConfig{
		Store:          store,
		SessionManager: sessionManager,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		Version:        version,
	}

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var snapshotScheduler *scheduler.ReportSnapshotScheduler
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}

		taskClient, err = tasks.NewClient(cfg.Tasks.DBPath, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewReportSnapshotQueue(services.NewReportService(store)),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		routerCfg.Snapshots = taskClient
		routerCfg.Tasks = taskClient

		snapshotScheduler = scheduler.NewReportSnapshotScheduler(taskClient, cfg.Reports)
		if err := snapshotScheduler.Start(taskCtx); err != nil {
			log.Fatalf("Failed to start report snapshot scheduler: %v", err)
		}
	} else if cfg.Reports.SnapshotEnabled {
		log.Printf("WARNING: REPORT_SNAPSHOT_ENABLED is set but the task queue is disabled; snapshots will not run.")
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		if snapshotScheduler != nil {
			snapshotScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}

// connectBudget bounds the whole connect-with-retry sequence: every attempt
// may use the full per-attempt timeout plus the capped backoff between
// attempts.
func connectBudget(cfg config.Database) time.Duration {
	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	perAttempt := cfg.Timeout
	if perAttempt <= 0 {
		perAttempt = 10 * time.Second
	}
	return time.Duration(attempts) * (perAttempt + storage.DefaultRetryConfig().MaxDelay)
}
