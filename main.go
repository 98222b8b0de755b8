package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"courier-reconciliation-service/internal/cache"
	"courier-reconciliation-service/internal/changefeed"
	"courier-reconciliation-service/internal/config"
	httpapi "courier-reconciliation-service/internal/http"
	"courier-reconciliation-service/internal/http/handlers"
	"courier-reconciliation-service/internal/importer"
	"courier-reconciliation-service/internal/logger"
	"courier-reconciliation-service/internal/queue"
	"courier-reconciliation-service/internal/reconcile"
	"courier-reconciliation-service/internal/services"
	"courier-reconciliation-service/internal/storage"
	"courier-reconciliation-service/internal/store"
	"courier-reconciliation-service/internal/utils"
	"courier-reconciliation-service/internal/ws"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	orders := store.NewOrderStore(pool)
	if cfg.AutoMigrate {
		if err := orders.Migrate(ctx); err != nil {
			log.Fatal("database migration failed", zap.Error(err))
		}
	}

	reconcile.SetDefaultNormalizer(reconcile.NewNormalizer(logger.Named(log, "normalizer"), cfg.CollectorMarkers))
	loc := utils.LoadLocation(cfg.BusinessTimezone)

	cacheStore := cache.New(cfg.CacheStaleAfter)
	courierFees := cache.NewCourierFees(cacheStore)
	modified := cache.NewModifiedOrders(cacheStore, cfg.CacheStaleAfter)
	suppressor := changefeed.NewSuppressor(cfg.EchoSuppressWindow)

	queueClient := connectQueue(ctx, cfg, log)
	if queueClient != nil {
		defer queueClient.Close()
	}

	publishers := []changefeed.Publisher{}
	if queueClient != nil {
		publishers = append(publishers, changefeed.AMQPPublisher{Client: queueClient})
	}
	if cfg.NATSURL != "" {
		np, err := changefeed.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			log.Warn("nats connection failed; continuing without nats fan-out", zap.Error(err))
		} else {
			log.Info("nats fan-out enabled", zap.String("subject", np.Subject))
			defer np.Close()
			publishers = append(publishers, np)
		}
	}
	fanout := changefeed.Fanout{Publishers: publishers, Logger: logger.Named(log, "fanout")}

	recomputer := services.NewRecomputer(orders, logger.Named(log, "recompute"))
	hub := ws.NewHub(logger.Named(log, "ws"), cfg.JWTSecret, cfg.WSHeartbeatInterval, recomputer, suppressor, loc)

	listener := &changefeed.Listener{
		DB:     pool,
		Logger: logger.Named(log, "changefeed"),
		Handle: func(ctx context.Context, evt changefeed.Event) {
			_ = fanout.Publish(ctx, evt)
			hub.HandleEvent(ctx, evt)
		},
	}
	go listener.Run(ctx)

	h := &handlers.Handler{
		Orders:      orders,
		Logger:      logger.Named(log, "http"),
		Config:      cfg,
		CourierFees: courierFees,
		Modified:    modified,
		Suppressor:  suppressor,
		Location:    loc,
	}

	if cfg.ObjectStoreEnabled() {
		objectStore, err := storage.NewObjectStore(ctx, storage.Config{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKeyID,
			SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
			Bucket:          cfg.ObjectStoreBucket,
			PublicBaseURL:   cfg.ObjectStorePublicBaseURL,
			StorageClass:    cfg.ObjectStoreStorageClass,
			CDNBaseURL:      cfg.ImageCDNBaseURL,
		})
		if err != nil {
			log.Warn("object store init failed; proof uploads disabled", zap.Error(err))
		} else {
			h.Proofs = objectStore
		}
	} else {
		log.Info("proof uploads disabled (object store not configured)")
	}

	var importJob *importer.Job
	if cfg.ImportEnabled() {
		importJob = &importer.Job{
			Source:   importer.NewClient(cfg.ShopifyBaseURL, cfg.ShopifyAccessToken, cfg.ShopifyAPIVersion, cfg.ImportTimeout),
			Sink:     orders,
			Logger:   logger.Named(log, "importer"),
			Lookback: cfg.ImportLookback,
		}
		if queueClient != nil {
			importJob.Publisher = queueClient
		}
		h.Importer = importJob
	} else {
		log.Info("order import disabled (SHOPIFY_BASE_URL or SHOPIFY_ACCESS_TOKEN is empty)")
	}

	if queueClient != nil && importJob != nil {
		h.Queue = queueClient
		if cfg.RabbitMQWorkerMode == "daemon" {
			log.Info("import worker enabled", zap.String("mode", "daemon"), zap.String("queue", queue.ImportJobsQueue))
			go runImportWorker(ctx, queueClient, importJob, logger.Named(log, "import-worker"))
		} else {
			log.Info("import worker disabled", zap.String("mode", cfg.RabbitMQWorkerMode))
		}
	}

	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(h, log, cfg, hub),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("reconciliation api ready", zap.String("base", "/api"))
		log.Info("dashboard ws ready", zap.String("path", "/ws/dashboard"))
		log.Info("reconciliation service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelRoot()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}

// connectQueue dials RabbitMQ and declares the topology. Outside production a
// broker failure only disables the queue-backed features.
func connectQueue(ctx context.Context, cfg config.Config, log *zap.Logger) *queue.Client {
	if cfg.RabbitMQURL == "" {
		log.Info("rabbitmq disabled (RABBITMQ_URL is empty)")
		return nil
	}

	fail := func(msg string, err error) {
		if cfg.Env == "production" {
			log.Fatal(msg, zap.Error(err))
		}
		log.Warn(msg+"; continuing without rabbitmq", zap.Error(err))
	}

	qc, err := queue.New(cfg.RabbitMQURL)
	if err != nil {
		fail("rabbitmq connection failed", err)
		return nil
	}
	if err := queue.EnsureEventsTopology(ctx, qc); err != nil {
		fail("rabbitmq events topology failed", err)
		_ = qc.Close()
		return nil
	}
	if err := queue.EnsureImportJobsTopology(ctx, qc); err != nil {
		fail("rabbitmq import_jobs topology failed", err)
		_ = qc.Close()
		return nil
	}
	log.Info("rabbitmq enabled", zap.String("exchange", queue.EventsExchange), zap.String("jobs", queue.ImportJobsQueue))
	return qc
}

func runImportWorker(ctx context.Context, qc *queue.Client, job *importer.Job, log *zap.Logger) {
	err := qc.ConsumeWithRetry(ctx, queue.ImportJobsQueue, func(ctx context.Context, body []byte) error {
		var msg queue.ImportJob
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Warn("dropping malformed import job", zap.Error(err))
			return nil
		}
		if msg.Kind != "" && msg.Kind != queue.ImportJobKind {
			log.Warn("dropping unknown job kind", zap.String("kind", msg.Kind))
			return nil
		}

		var since *time.Time
		if v := strings.TrimSpace(msg.Since); v != "" {
			if parsed, err := time.Parse(time.RFC3339, v); err == nil {
				since = &parsed
			}
		}
		summary, err := job.Run(ctx, since)
		if err != nil {
			return err
		}
		log.Info("import job finished",
			zap.Int("fetched", summary.Fetched),
			zap.Int("inserted", summary.Inserted),
			zap.Int("updated", summary.Updated),
			zap.Int("guarded", summary.Guarded),
			zap.Int("failed", summary.Failed),
		)
		return nil
	}, 5, 5*time.Second)
	if err != nil && ctx.Err() == nil {
		log.Error("import worker stopped", zap.Error(err))
	}
}
