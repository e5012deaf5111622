package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"work_orders/report"
)

var (
	db       *sql.DB
	store    *sessions.CookieStore
	logger   = zap.NewNop()
	composer reportComposer

	idleTimeout               = 5 * time.Minute
	notificationRetentionDays = 30
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	writeTemplate := flag.String("write-template", "", "write the default report template to this path and exit")
	renderID := flag.Int64("render", 0, "render the report for this work order id and exit")
	renderOut := flag.String("out", "", "output file for -render")
	flag.Parse()

	if *writeTemplate != "" {
		if err := writeDefaultTemplate(*writeTemplate); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger, err = newLogger(cfg.Logging)
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer logger.Sync()

	if err := run(cfg, *renderID, *renderOut); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func writeDefaultTemplate(path string) error {
	data, err := report.BuildDefaultTemplate(report.DefaultSheetName)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	fmt.Println("Template written to", path)
	return nil
}

func openDatabase(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

func run(cfg *Config, renderID int64, renderOut string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	db, err = openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.Name))

	tmpl, err := report.LoadTemplate(cfg.Report.TemplatePath, cfg.Report.SheetName)
	if err != nil {
		return err
	}
	c := report.NewComposer(report.NewPostgresSource(db), tmpl, logger.Named("report"))
	composer = c

	if renderID > 0 {
		return renderToFile(ctx, c, renderID, renderOut)
	}

	store = newSessionStore(cfg.Server)
	idleTimeout = time.Duration(cfg.Server.IdleTimeoutMinutes) * time.Minute
	notificationRetentionDays = cfg.Notifications.RetentionDays

	scheduler, err := newCleanupScheduler(cfg.Notifications.CleanupSchedule, db, logger.Named("cleanup"))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		<-scheduler.Stop().Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func renderToFile(ctx context.Context, c *report.Composer, id int64, out string) error {
	data, err := c.Compose(ctx, id)
	if err != nil {
		return err
	}
	if out == "" {
		out = fmt.Sprintf("work_order_%d.xlsx", id)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logger.Info("report written", zap.String("path", out), zap.Int("bytes", len(data)))
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := db.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func newRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, accessLogMiddleware)

	r.HandleFunc("/healthz", healthHandler).Methods("GET")
	r.HandleFunc("/login", loginHandler).Methods("POST")
	r.HandleFunc("/logout", logoutHandler).Methods("POST")
	r.HandleFunc("/api/check-auth", requireAuth(checkAuthHandler)).Methods("GET")

	r.HandleFunc("/api/users", requireAdmin(getUsersHandler)).Methods("GET")
	r.HandleFunc("/api/users", requireAdmin(createUserHandler)).Methods("POST")
	r.HandleFunc("/api/users/{id}", requireAdmin(updateUserHandler)).Methods("PUT")
	r.HandleFunc("/api/users/{id}", requireAdmin(deleteUserHandler)).Methods("DELETE")

	r.HandleFunc("/api/work-orders", requireAuth(getWorkOrdersHandler)).Methods("GET")
	r.HandleFunc("/api/work-orders", requireAuth(createWorkOrderHandler)).Methods("POST")
	r.HandleFunc("/api/work-orders/{id}", requireAuth(getWorkOrderHandler)).Methods("GET")
	r.HandleFunc("/api/work-orders/{id}", requireAuth(updateWorkOrderHandler)).Methods("PUT")
	r.HandleFunc("/api/work-orders/{id}", requireAdmin(deleteWorkOrderHandler)).Methods("DELETE")
	r.HandleFunc("/api/work-orders/{id}/approve", requireAdmin(approveWorkOrderHandler)).Methods("PUT")
	r.HandleFunc("/api/work-orders/{id}/reject", requireAdmin(rejectWorkOrderHandler)).Methods("PUT")
	r.HandleFunc("/api/work-orders/{id}/resubmit", requireAuth(resubmitWorkOrderHandler)).Methods("PUT")

	r.HandleFunc("/api/work-orders/{id}/findings", requireAuth(getFindingsHandler)).Methods("GET")
	r.HandleFunc("/api/work-orders/{id}/findings", requireAuth(createFindingHandler)).Methods("POST")
	r.HandleFunc("/api/findings/{id}", requireAuth(updateFindingHandler)).Methods("PUT")
	r.HandleFunc("/api/findings/{id}", requireAuth(deleteFindingHandler)).Methods("DELETE")

	r.HandleFunc("/api/findings/{id}/actions", requireAuth(getActionsHandler)).Methods("GET")
	r.HandleFunc("/api/findings/{id}/actions", requireAuth(createActionHandler)).Methods("POST")
	r.HandleFunc("/api/actions/{id}", requireAuth(updateActionHandler)).Methods("PUT")
	r.HandleFunc("/api/actions/{id}", requireAuth(deleteActionHandler)).Methods("DELETE")

	r.HandleFunc("/api/actions/{id}/dates", requireAuth(getActionDatesHandler)).Methods("GET")
	r.HandleFunc("/api/actions/{id}/dates", requireAuth(createActionDateHandler)).Methods("POST")
	r.HandleFunc("/api/actions/{id}/dates", requireAuth(setActionDateCompletionHandler)).Methods("PUT")
	r.HandleFunc("/api/actions/{id}/dates", deleteActionDatesCollectionHandler).Methods("DELETE")
	r.HandleFunc("/api/actions/{id}/dates/{dateId}", requireAuth(updateActionDateHandler)).Methods("PUT")
	r.HandleFunc("/api/actions/{id}/dates/{dateId}", requireAdmin(deleteActionDateHandler)).Methods("DELETE")

	r.HandleFunc("/api/actions/{id}/spare-parts", requireAuth(getSparePartsHandler)).Methods("GET")
	r.HandleFunc("/api/actions/{id}/spare-parts", requireAuth(createSparePartHandler)).Methods("POST")
	r.HandleFunc("/api/spare-parts/{id}", requireAuth(updateSparePartHandler)).Methods("PUT")
	r.HandleFunc("/api/spare-parts/{id}", requireAuth(deleteSparePartHandler)).Methods("DELETE")

	r.HandleFunc("/api/actions/{id}/technicians", requireAuth(getTechniciansHandler)).Methods("GET")
	r.HandleFunc("/api/actions/{id}/technicians", requireAuth(createTechnicianHandler)).Methods("POST")
	r.HandleFunc("/api/technicians/{id}", requireAuth(updateTechnicianHandler)).Methods("PUT")
	r.HandleFunc("/api/technicians/{id}", requireAuth(deleteTechnicianHandler)).Methods("DELETE")

	r.HandleFunc("/api/notifications", requireAuth(getNotificationsHandler)).Methods("GET")
	r.HandleFunc("/api/notifications/read-all", requireAuth(markAllNotificationsReadHandler)).Methods("PUT")
	r.HandleFunc("/api/notifications/{id}/read", requireAuth(markNotificationReadHandler)).Methods("PUT")
	r.HandleFunc("/api/notifications/cleanup", requireAdmin(cleanupNotificationsHandler)).Methods("POST")

	r.HandleFunc("/api/reports/work-order-sheet", requireAuth(workOrderSheetHandler)).Methods("GET")

	return r
}
