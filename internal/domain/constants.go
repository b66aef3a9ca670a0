package domain

// Default business parameters
// Реальные значения инжектируются из конфигурации, это значения по умолчанию
const (
	DefaultSlotDurationMinutes   = 120
	DefaultSlotCount             = 8
	DefaultDayStart              = "07:00"
	DefaultMontageMinutesPerUnit = 60
	DefaultEtageMinutesPerUnit   = 30
	DefaultMontageDailyLimit     = 5
	DefaultEtageDailyLimit       = 4
	DefaultMontageManualLimit    = 4
	DefaultEtageSlotShareLimit   = 2 // Максимум etage-бронирований в одном слоте
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// RegionOnRequest специальное значение региона "по запросу"
// Такие заказы не планируются автоматически
const RegionOnRequest = "on_request"

// DistanceUnknownMinutes сентинел времени в пути, когда индекс не разрешился
const DistanceUnknownMinutes = 999
