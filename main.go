package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	alertsapp "fleetwatch/internal/alerts/application"
	alerts "fleetwatch/internal/alerts/domain"
	alertexcel "fleetwatch/internal/alerts/infrastructure/excel"
	alertmem "fleetwatch/internal/alerts/infrastructure/memory"
	alertpg "fleetwatch/internal/alerts/infrastructure/postgres"
	"fleetwatch/internal/alerts/notify"
	anomalyapp "fleetwatch/internal/anomalies/application"
	anomalies "fleetwatch/internal/anomalies/domain"
	anomalyexcel "fleetwatch/internal/anomalies/infrastructure/excel"
	anomalymem "fleetwatch/internal/anomalies/infrastructure/memory"
	anomalypg "fleetwatch/internal/anomalies/infrastructure/postgres"
	apihttp "fleetwatch/internal/api/http"
	"fleetwatch/internal/asyncwriter"
	"fleetwatch/internal/audit"
	"fleetwatch/internal/auth"
	"fleetwatch/internal/fitbit"
	fleetapp "fleetwatch/internal/fleet/application"
	fleet "fleetwatch/internal/fleet/domain"
	fleetexcel "fleetwatch/internal/fleet/infrastructure/excel"
	fleetmem "fleetwatch/internal/fleet/infrastructure/memory"
	fleetpg "fleetwatch/internal/fleet/infrastructure/postgres"
	"fleetwatch/internal/observability/metrics"
	storage "fleetwatch/internal/storage/excel"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	metrics.Init()

	stores, cleanup, err := buildStores(cfg, logger)
	if err != nil {
		logger.Fatalf("store init error: %v", err)
	}
	defer cleanup()

	pollCfg, err := fleetapp.LoadConfig()
	if err != nil {
		logger.Fatalf("poll config error: %v", err)
	}

	source, err := fitbit.NewClient(pollCfg.FitbitBaseURL)
	if err != nil {
		logger.Fatalf("fitbit client error: %v", err)
	}

	channel, err := buildNotifyChannel(cfg)
	if err != nil {
		logger.Fatalf("notify channel error: %v", err)
	}
	var template *notify.Template
	if cfg.AlertTemplatePath != "" {
		data, err := os.ReadFile(cfg.AlertTemplatePath)
		if err != nil {
			logger.Fatalf("alert template error: %v", err)
		}
		template, err = notify.NewTemplate(string(data))
		if err != nil {
			logger.Fatalf("alert template error: %v", err)
		}
	}
	dispatcher, err := alertsapp.NewDispatcher(channel, template, logger)
	if err != nil {
		logger.Fatalf("alert dispatcher error: %v", err)
	}

	snapshot, err := fleetapp.NewActivitySnapshot(pollCfg.SnapshotPath)
	if err != nil {
		logger.Fatalf("activity snapshot error: %v", err)
	}
	collector, err := fleetapp.NewCollector(source, stores.logs, stores.inventory, stores.configs, snapshot, logger,
		fleetapp.WithAlertSink(fleetapp.NewDispatcherSink(dispatcher)))
	if err != nil {
		logger.Fatalf("collector error: %v", err)
	}
	scheduler := fleetapp.NewScheduler(collector, pollCfg.Schedule.Interval, pollCfg.Schedule.DailyAt, logger)
	go scheduler.Start(context.Background())

	writer := asyncwriter.New(logger, asyncwriter.WithQueueSize(cfg.WriterQueueSize))
	writer.Start(context.Background())
	defer writer.Close()

	anomalyService, err := anomalyapp.NewService(stores.anomalies, logger,
		anomalyapp.WithWriter(writer),
		anomalyapp.WithAudit(stores.audit))
	if err != nil {
		logger.Fatalf("anomaly service error: %v", err)
	}
	fleetService, err := fleetapp.NewService(stores.logs, stores.audit)
	if err != nil {
		logger.Fatalf("fleet service error: %v", err)
	}
	configService, err := alertsapp.NewConfigService(stores.configs, stores.audit)
	if err != nil {
		logger.Fatalf("config service error: %v", err)
	}

	devicesHandler, err := apihttp.NewDevicesHandler(fleetService)
	if err != nil {
		logger.Fatalf("devices handler error: %v", err)
	}
	configHandler, err := apihttp.NewConfigHandler(configService)
	if err != nil {
		logger.Fatalf("config handler error: %v", err)
	}
	anomaliesHandler, err := apihttp.NewAnomaliesHandler(anomalyService)
	if err != nil {
		logger.Fatalf("anomalies handler error: %v", err)
	}
	reportsHandler, err := apihttp.NewReportsHandler(fleetService)
	if err != nil {
		logger.Fatalf("reports handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/devices", devicesHandler)
	mux.Handle("/api/v1/devices/", devicesHandler)
	mux.Handle("/api/v1/alerts/config", configHandler)
	mux.Handle("/api/v1/anomalies/", anomaliesHandler)
	mux.Handle("/api/v1/reports/", reportsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	StoreDriver       string
	WorkbookPath      string
	DatabaseURL       string
	HTTPAddr          string
	JWTSecret         string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SMTPFrom          string
	AlertWebhookURL   string
	AlertTemplatePath string
	WriterQueueSize   int
}

func loadConfig() config {
	cfg := config{
		StoreDriver:       getenvDefault("STORE_DRIVER", "excel"),
		WorkbookPath:      getenvDefault("WORKBOOK_PATH", "fleetwatch.xlsx"),
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		SMTPHost:          getenvDefault("SMTP_HOST", ""),
		SMTPPort:          getenvIntDefault("SMTP_PORT", 587),
		SMTPUsername:      getenvDefault("SMTP_USERNAME", ""),
		SMTPPassword:      getenvDefault("SMTP_PASSWORD", ""),
		SMTPFrom:          getenvDefault("SMTP_FROM", ""),
		AlertWebhookURL:   getenvDefault("ALERT_WEBHOOK_URL", ""),
		AlertTemplatePath: getenvDefault("ALERT_TEMPLATE_PATH", ""),
		WriterQueueSize:   getenvIntDefault("WRITER_QUEUE_SIZE", 256),
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required with STORE_DRIVER=postgres")
	}
	return cfg
}

type stores struct {
	logs      fleet.LogRepository
	inventory fleet.InventoryRepository
	configs   alerts.ConfigRepository
	anomalies anomalies.Store
	audit     audit.Logger
}

func buildStores(cfg config, logger *log.Logger) (stores, func(), error) {
	switch cfg.StoreDriver {
	case "excel":
		workbook, err := storage.NewWorkbook(cfg.WorkbookPath)
		if err != nil {
			return stores{}, nil, err
		}
		logs, err := fleetexcel.NewLogRepository(workbook)
		if err != nil {
			return stores{}, nil, err
		}
		inventory, err := fleetexcel.NewInventoryRepository(workbook)
		if err != nil {
			return stores{}, nil, err
		}
		configs, err := alertexcel.NewConfigRepository(workbook)
		if err != nil {
			return stores{}, nil, err
		}
		anomalyStore, err := anomalyexcel.NewStore(workbook)
		if err != nil {
			return stores{}, nil, err
		}
		logger.Printf("store: excel workbook at %s", cfg.WorkbookPath)
		return stores{
			logs:      logs,
			inventory: inventory,
			configs:   configs,
			anomalies: anomalyStore,
			audit:     audit.NopLogger{},
		}, func() {}, nil

	case "postgres":
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return stores{}, nil, err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return stores{}, nil, err
		}
		logger.Printf("store: postgres")
		return stores{
			logs:      fleetpg.NewLogRepository(db),
			inventory: fleetpg.NewInventoryRepository(db),
			configs:   alertpg.NewConfigRepository(db),
			anomalies: anomalypg.NewStore(db),
			audit:     audit.NewRepository(db),
		}, func() { db.Close() }, nil

	case "memory":
		logger.Printf("store: in-memory")
		return stores{
			logs:      fleetmem.NewLogRepository(),
			inventory: fleetmem.NewInventoryRepository(nil),
			configs:   alertmem.NewConfigRepository(),
			anomalies: anomalymem.NewStore(),
			audit:     audit.NopLogger{},
		}, func() {}, nil
	}
	return stores{}, nil, errUnknownDriver(cfg.StoreDriver)
}

type errUnknownDriver string

func (e errUnknownDriver) Error() string { return "unknown STORE_DRIVER " + string(e) }

func buildNotifyChannel(cfg config) (notify.Channel, error) {
	var channels []notify.Channel
	if cfg.SMTPHost != "" {
		email, err := notify.NewEmailChannel(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		if err != nil {
			return nil, err
		}
		channels = append(channels, email)
	}
	if cfg.AlertWebhookURL != "" {
		webhook, err := notify.NewWebhookChannel(cfg.AlertWebhookURL)
		if err != nil {
			return nil, err
		}
		channels = append(channels, webhook)
	}
	return notify.NewMultiChannel(channels...), nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
