package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config конфигурация сервиса, загружается из config.toml
type Config struct {
	Server          Server            `toml:"server"`
	Database        Database          `toml:"database"`
	Redis           Redis             `toml:"redis"`
	Logs            Logs              `toml:"logs"`
	Metrics         Metrics           `toml:"metrics"`
	CalendarAPI     CalendarAPI       `toml:"calendar_api"`
	DistanceService DistanceService   `toml:"distance_service"`
	OrderService    OrderService      `toml:"order_service"`
	Booking         Booking           `toml:"booking"`
	Regions         map[string]Region `toml:"regions"`
}

// Server настройки HTTP сервера
type Server struct {
	HTTPPort        int    `toml:"http_port"`
	ReadTimeout     int    `toml:"read_timeout"`
	WriteTimeout    int    `toml:"write_timeout"`
	IdleTimeout     int    `toml:"idle_timeout"`
	ShutdownTimeout int    `toml:"shutdown_timeout"`
	APIToken        string `toml:"api_token"` // Bearer токен диспетчерских маршрутов
}

// Database настройки подключения к PostgreSQL
type Database struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"`
}

// DSN возвращает строку подключения к PostgreSQL
func (d *Database) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// Redis настройки подключения к Redis (менеджер блокировок)
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Logs настройки логирования
type Logs struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// Metrics настройки prometheus метрик
type Metrics struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// CalendarAPI настройки внешнего календарного сервиса бронирований
type CalendarAPI struct {
	URL     string `toml:"url"`
	Token   string `toml:"token"`
	Timeout int    `toml:"timeout"`
}

// DistanceService настройки сервиса расчета времени в пути по индексу
type DistanceService struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"`
}

// OrderService настройки сервиса заказов (внешний магазин)
type OrderService struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"`
}

// Booking бизнес-параметры планирования
// Все значения инжектируются, магических чисел в коде нет
type Booking struct {
	Timezone                   string `toml:"timezone"`                      // Таймзона календарного дня, например "Europe/Zurich"
	DayStart                   string `toml:"day_start"`                     // Начало первого слота, "07:00"
	SlotDurationMinutes        int    `toml:"slot_duration_minutes"`         // Длительность слота
	SlotCount                  int    `toml:"slot_count"`                    // Количество слотов в дне
	MontageMinutesPerUnit      int    `toml:"montage_minutes_per_unit"`      // Минут на единицу монтажа
	EtageMinutesPerUnit        int    `toml:"etage_minutes_per_unit"`        // Минут на единицу этажной доставки
	MontageDailyLimit          int    `toml:"montage_daily_limit"`           // Лимит монтажей на календарь в день
	EtageDailyLimit            int    `toml:"etage_daily_limit"`             // Лимит этажных доставок на календарь в день
	MontageManualLimit         int    `toml:"montage_manual_limit"`          // С этого количества монтажей - только ручное планирование
	RoundRobinThresholdMinutes int    `toml:"round_robin_threshold_minutes"` // Граница времени в пути для round-robin
	CapacityHorizonDays        int    `toml:"capacity_horizon_days"`         // Горизонт поиска свободной команды
	RescheduleHorizonDays      int    `toml:"reschedule_horizon_days"`       // Горизонт переноса на разрешенный день
	CounterRetentionDays       int    `toml:"counter_retention_days"`        // Хранение счетчиков емкости
	SignatureSecret            string `toml:"signature_secret"`              // Секрет HMAC подписи
	SignatureTTLSeconds        int    `toml:"signature_ttl_seconds"`         // Окно валидности подписи
	LegacySignatures           bool   `toml:"legacy_signatures"`             // Принимать подписи со старыми именами параметров (m/e)
	KeepSelectorBooking        bool   `toml:"keep_selector_booking"`         // Не отменять selector-бронирование после подтверждения
}

// Region конфигурация региона маршрутизации
type Region struct {
	Label        string   `toml:"label"`
	AllowedDays  []int    `toml:"allowed_days"`  // Дни недели 1=Пн ... 7=Вс
	DayPolicy    string   `toml:"day_policy"`    // "reschedule" или "strict"
	MontageTeams []Team   `toml:"montage_teams"` // Состав команд монтажа (порядок = естественный порядок ростера)
	EtageTeams   []Team   `toml:"etage_teams"`
	Priority     []string `toml:"priority"` // Порядок команд для priority-маршрутизации
}

// Team команда с привязкой к календарю внешнего сервиса
type Team struct {
	Key        string `toml:"key"`
	Label      string `toml:"label"`
	CalendarID string `toml:"calendar_id"`
}

// Load загружает и валидирует конфигурацию из TOML файла
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate %s: %w", path, err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15
	}
	if cfg.Booking.Timezone == "" {
		cfg.Booking.Timezone = "Europe/Zurich"
	}
	if cfg.Booking.DayStart == "" {
		cfg.Booking.DayStart = "07:00"
	}
	if cfg.Booking.SlotDurationMinutes == 0 {
		cfg.Booking.SlotDurationMinutes = 120
	}
	if cfg.Booking.SlotCount == 0 {
		cfg.Booking.SlotCount = 8
	}
	if cfg.Booking.MontageMinutesPerUnit == 0 {
		cfg.Booking.MontageMinutesPerUnit = 60
	}
	if cfg.Booking.EtageMinutesPerUnit == 0 {
		cfg.Booking.EtageMinutesPerUnit = 30
	}
	if cfg.Booking.MontageDailyLimit == 0 {
		cfg.Booking.MontageDailyLimit = 5
	}
	if cfg.Booking.EtageDailyLimit == 0 {
		cfg.Booking.EtageDailyLimit = 4
	}
	if cfg.Booking.MontageManualLimit == 0 {
		cfg.Booking.MontageManualLimit = 4
	}
	if cfg.Booking.RoundRobinThresholdMinutes == 0 {
		cfg.Booking.RoundRobinThresholdMinutes = 20
	}
	if cfg.Booking.CapacityHorizonDays == 0 {
		cfg.Booking.CapacityHorizonDays = 14
	}
	if cfg.Booking.RescheduleHorizonDays == 0 {
		cfg.Booking.RescheduleHorizonDays = 21
	}
	if cfg.Booking.CounterRetentionDays == 0 {
		cfg.Booking.CounterRetentionDays = 7
	}
	if cfg.Booking.SignatureTTLSeconds == 0 {
		cfg.Booking.SignatureTTLSeconds = 7 * 24 * 3600
	}
}

func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 {
		return fmt.Errorf("server.http_port must be positive")
	}
	if cfg.Booking.SignatureSecret == "" {
		return fmt.Errorf("booking.signature_secret is required")
	}
	if _, err := time.LoadLocation(cfg.Booking.Timezone); err != nil {
		return fmt.Errorf("booking.timezone: %w", err)
	}
	for key, region := range cfg.Regions {
		if region.DayPolicy != "" && region.DayPolicy != "reschedule" && region.DayPolicy != "strict" {
			return fmt.Errorf("regions.%s.day_policy must be \"reschedule\" or \"strict\"", key)
		}
		for _, d := range region.AllowedDays {
			if d < 1 || d > 7 {
				return fmt.Errorf("regions.%s.allowed_days: day %d out of range 1..7", key, d)
			}
		}
	}
	return nil
}
