package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	manualBookingHandler "github.com/tomgachter/sg-montagerechner-sub000/internal/api/handlers/manual_booking"
	prefillHandler "github.com/tomgachter/sg-montagerechner-sub000/internal/api/handlers/prefill"
	webhookHandler "github.com/tomgachter/sg-montagerechner-sub000/internal/api/handlers/webhook"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/api/middleware"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/config"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/infra/locks"
	countersRepo "github.com/tomgachter/sg-montagerechner-sub000/internal/infra/storage/counters"
	eventLedgerRepo "github.com/tomgachter/sg-montagerechner-sub000/internal/infra/storage/eventledger"
	recordsRepo "github.com/tomgachter/sg-montagerechner-sub000/internal/infra/storage/records"
	roundRobinRepo "github.com/tomgachter/sg-montagerechner-sub000/internal/infra/storage/roundrobin"
	routerLogRepo "github.com/tomgachter/sg-montagerechner-sub000/internal/infra/storage/routerlog"
	calendarAPIClient "github.com/tomgachter/sg-montagerechner-sub000/internal/integrations/calendarapi"
	distanceClient "github.com/tomgachter/sg-montagerechner-sub000/internal/integrations/distance"
	orderServiceClient "github.com/tomgachter/sg-montagerechner-sub000/internal/integrations/orderservice"
	routingService "github.com/tomgachter/sg-montagerechner-sub000/internal/service/routing"
	slotSearchService "github.com/tomgachter/sg-montagerechner-sub000/internal/service/slotsearch"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/signature"
	handleWebhookUC "github.com/tomgachter/sg-montagerechner-sub000/internal/usecase/handle_webhook"
	manualBookingUC "github.com/tomgachter/sg-montagerechner-sub000/internal/usecase/manual_booking"
	prefillUC "github.com/tomgachter/sg-montagerechner-sub000/internal/usecase/prefill"
	"github.com/tomgachter/sg-montagerechner-sub000/pkg/logger"
	"github.com/tomgachter/sg-montagerechner-sub000/pkg/metrics"
	"github.com/tomgachter/sg-montagerechner-sub000/pkg/txmanager"
)

// ledgerRetentionDays хранение журнала идемпотентности
// Дольше окна валидности подписи, чтобы поздние повторы оставались no-op
const ledgerRetentionDays = 90

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SG-Montagerechner SUB000...")
	log.Info("Configuration loaded from config.toml")

	timezone, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		log.Fatal("Failed to load timezone %s: %v", cfg.Booking.Timezone, err)
	}

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Подключаемся к Redis (именованные блокировки счетчиков)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to ping redis: %v", err)
	}
	lockManager := locks.NewManager(redisClient, "sub000:counters")
	log.Info("Successfully connected to redis (addr=%s)", cfg.Redis.Addr)

	// Инициализируем интеграционных клиентов
	calendarClient := calendarAPIClient.NewClient(
		cfg.CalendarAPI.URL,
		cfg.CalendarAPI.Token,
		time.Duration(cfg.CalendarAPI.Timeout)*time.Second,
		log,
	)
	driveTimeClient := distanceClient.NewClient(
		cfg.DistanceService.URL,
		time.Duration(cfg.DistanceService.Timeout)*time.Second,
		log,
	)
	orderClient := orderServiceClient.NewClient(
		cfg.OrderService.URL,
		time.Duration(cfg.OrderService.Timeout)*time.Second,
		log,
	)
	log.Info("Integration clients initialized (CalendarAPI=%s, DistanceService=%s, OrderService=%s)",
		cfg.CalendarAPI.URL, cfg.DistanceService.URL, cfg.OrderService.URL)

	// Инициализируем репозитории
	counters := countersRepo.NewRepository(db, lockManager, countersRepo.Limits{
		Montage: cfg.Booking.MontageDailyLimit,
		Etage:   cfg.Booking.EtageDailyLimit,
	}, log)
	roundRobin := roundRobinRepo.NewRepository(db, log)
	records := recordsRepo.NewRepository(db)
	eventLedger := eventLedgerRepo.NewRepository(db)
	routerLog := routerLogRepo.NewRepository(db)
	txMgr := txmanager.NewTransactionManager(db)

	if cfg.Metrics.Enabled {
		counters.OnLockFailure(func(key string) {
			metricsCollector.LockFailuresTotal.Inc()
		})
	}

	// Доменные справочники
	calendar := domain.NewSlotCalendar(
		cfg.Booking.DayStart,
		cfg.Booking.SlotDurationMinutes,
		cfg.Booking.SlotCount,
		cfg.Booking.MontageMinutesPerUnit,
		cfg.Booking.EtageMinutesPerUnit,
	)
	regions := buildRegions(cfg.Regions)
	log.Info("Loaded %d routable regions", len(regions))

	// Инициализируем сервисы
	signatures := signature.NewService(
		cfg.Booking.SignatureSecret,
		time.Duration(cfg.Booking.SignatureTTLSeconds)*time.Second,
		cfg.Booking.LegacySignatures,
	)
	router := routingService.NewService(counters, roundRobin, driveTimeClient, routingService.Config{
		RoundRobinThresholdMinutes: cfg.Booking.RoundRobinThresholdMinutes,
		CapacityHorizonDays:        cfg.Booking.CapacityHorizonDays,
	}, log)
	slotSearch := slotSearchService.NewSearch(calendar, records, log)

	// Инициализируем use cases
	handleWebhookUseCase := handleWebhookUC.NewUseCase(
		regions,
		calendar,
		handleWebhookUC.Config{
			Timezone:              timezone,
			MontageManualLimit:    cfg.Booking.MontageManualLimit,
			RescheduleHorizonDays: cfg.Booking.RescheduleHorizonDays,
			KeepSelectorBooking:   cfg.Booking.KeepSelectorBooking,
		},
		signatures,
		router,
		slotSearch,
		records,
		eventLedger,
		routerLog,
		counters,
		calendarClient,
		orderClient,
		txMgr,
		log,
	)
	manualBookingUseCase := manualBookingUC.NewUseCase(
		regions,
		calendar,
		manualBookingUC.Config{
			Timezone:           timezone,
			MontageManualLimit: cfg.Booking.MontageManualLimit,
		},
		slotSearch,
		records,
		routerLog,
		counters,
		calendarClient,
		orderClient,
		txMgr,
		log,
	)
	prefillUseCase := prefillUC.NewUseCase(
		regions,
		calendar,
		signatures,
		orderClient,
		router,
		log,
	)

	// Инициализируем handlers
	var webhookUseCase webhookHandler.HandleWebhookUseCase = handleWebhookUseCase
	if cfg.Metrics.Enabled {
		webhookUseCase = &observedWebhookUseCase{next: handleWebhookUseCase, metrics: metricsCollector}
	}
	webhook := webhookHandler.NewHandler(webhookUseCase, log)
	prefill := prefillHandler.NewHandler(prefillUseCase, log)
	manualBooking := manualBookingHandler.NewHandler(manualBookingUseCase, timezone, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded","component":"database"}`))
			return
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded","component":"redis"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// SIGNED ROUTES (подпись заказа внутри payload)
	// ============================================================

	// Webhook жизненного цикла бронирования
	api.HandleFunc("/webhook", webhook.Handle).Methods(http.MethodPost)

	// Префилл формы бронирования (ссылка из письма - GET, UI - POST)
	api.HandleFunc("/prefill", prefill.Handle).Methods(http.MethodGet, http.MethodPost)

	// ============================================================
	// PROTECTED ROUTES (bearer токен диспетчерского UI)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.BearerAuth(cfg.Server.APIToken))

	// Ручное композитное бронирование
	protected.HandleFunc("/manual-booking", manualBooking.Handle).Methods(http.MethodPost)

	// Ежедневная зачистка устаревших счетчиков и журнала идемпотентности
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go runDailySweep(sweepCtx, counters, eventLedger, cfg.Booking.CounterRetentionDays, log)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}

// observedWebhookUseCase пишет доменные метрики по результатам webhook use case
type observedWebhookUseCase struct {
	next    *handleWebhookUC.UseCase
	metrics *metrics.Metrics
}

func (o *observedWebhookUseCase) Execute(ctx context.Context, req *handleWebhookUC.Request) (*handleWebhookUC.Result, error) {
	result, err := o.next.Execute(ctx, req)
	if err != nil || result == nil {
		return result, err
	}

	switch {
	case result.Status == handleWebhookUC.StatusDuplicate:
		o.metrics.DuplicateEventsTotal.Inc()
	case !result.Handled:
		// Проигнорированные события в доменные метрики не попадают
	case result.Event == domain.EventBookingCancelled:
		o.metrics.BookingsCancelledTotal.Inc()
	case result.Event == domain.EventBookingRescheduled:
		o.metrics.BookingsRescheduledTotal.Inc()
	default:
		o.metrics.BookingsCreatedTotal.WithLabelValues(result.Strategy).Inc()
	}

	return result, err
}

// buildRegions конвертирует конфигурацию регионов в доменные справочники
func buildRegions(configured map[string]config.Region) map[string]*domain.Region {
	regions := make(map[string]*domain.Region, len(configured))
	for key, rc := range configured {
		region := &domain.Region{
			Key:       key,
			Label:     rc.Label,
			DayPolicy: domain.DayPolicy(rc.DayPolicy),
			Priority:  rc.Priority,
		}
		if region.DayPolicy == "" {
			region.DayPolicy = domain.PolicyReschedule
		}
		for _, d := range rc.AllowedDays {
			region.AllowedDays = append(region.AllowedDays, domain.WeekdayFromISO(d))
		}
		for _, t := range rc.MontageTeams {
			region.MontageTeams = append(region.MontageTeams, domain.Team{Key: t.Key, Label: t.Label, CalendarID: t.CalendarID})
		}
		for _, t := range rc.EtageTeams {
			region.EtageTeams = append(region.EtageTeams, domain.Team{Key: t.Key, Label: t.Label, CalendarID: t.CalendarID})
		}
		regions[key] = region
	}
	return regions
}

// runDailySweep раз в сутки удаляет счетчики емкости за прошедшие даты
// и старые записи журнала идемпотентности
func runDailySweep(
	ctx context.Context,
	counters *countersRepo.Repository,
	ledger *eventLedgerRepo.Repository,
	counterRetentionDays int,
	log *logger.Logger,
) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if purged, err := counters.PurgeOlderThan(ctx, counterRetentionDays); err != nil {
				log.Error("Daily sweep: failed to purge counters: %v", err)
			} else {
				log.Info("Daily sweep: purged %d stale capacity counters", purged)
			}

			if purged, err := ledger.PurgeOlderThan(ctx, ledgerRetentionDays); err != nil {
				log.Error("Daily sweep: failed to purge event ledger: %v", err)
			} else {
				log.Info("Daily sweep: purged %d old ledger entries", purged)
			}
		}
	}
}
