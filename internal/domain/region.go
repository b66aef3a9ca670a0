package domain

import "time"

// DayPolicy политика обработки запрещенного дня недели
type DayPolicy string

const (
	// PolicyReschedule искать ближайший разрешенный день вперед
	PolicyReschedule DayPolicy = "reschedule"
	// PolicyStrict отклонять запрос с ошибкой
	PolicyStrict DayPolicy = "strict"
)

// Team команда с привязкой к календарю внешнего сервиса
type Team struct {
	Key        string
	Label      string
	CalendarID string
}

// Region конфигурация региона маршрутизации
// Владелец - конфигурация (админ регионов и команд), ядро планирования читает
type Region struct {
	Key          string
	Label        string
	AllowedDays  []time.Weekday // Разрешенные дни недели для бронирования
	DayPolicy    DayPolicy
	MontageTeams []Team   // Ростер команд монтажа в естественном порядке
	EtageTeams   []Team   // Ростер команд этажной доставки
	Priority     []string // Порядок команд для priority-маршрутизации
}

// Teams возвращает ростер команд региона для вида услуги
func (r *Region) Teams(service ServiceKind) []Team {
	if service == ServiceEtage {
		return r.EtageTeams
	}
	return r.MontageTeams
}

// CalendarIDs возвращает упорядоченный список календарей ростера
func (r *Region) CalendarIDs(service ServiceKind) []string {
	teams := r.Teams(service)
	ids := make([]string, len(teams))
	for i, team := range teams {
		ids[i] = team.CalendarID
	}
	return ids
}

// TeamByKey ищет команду в ростере по ключу
func (r *Region) TeamByKey(service ServiceKind, key string) (Team, bool) {
	for _, team := range r.Teams(service) {
		if team.Key == key {
			return team, true
		}
	}
	return Team{}, false
}

// IsDayAllowed возвращает true, если в этот день недели регион принимает бронирования
// Пустой список разрешенных дней трактуется как "все дни разрешены"
func (r *Region) IsDayAllowed(date time.Time) bool {
	if len(r.AllowedDays) == 0 {
		return true
	}
	weekday := date.Weekday()
	for _, allowed := range r.AllowedDays {
		if allowed == weekday {
			return true
		}
	}
	return false
}

// NextAllowedDay ищет первый разрешенный день начиная с from (включительно)
// в пределах horizonDays дней. ok=false, если в горизонте такого дня нет.
func (r *Region) NextAllowedDay(from time.Time, horizonDays int) (time.Time, bool) {
	for i := 0; i <= horizonDays; i++ {
		candidate := from.AddDate(0, 0, i)
		if r.IsDayAllowed(candidate) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// PriorityOrder возвращает ростер, упорядоченный по списку приоритетов
// Команды без явного приоритета идут следом в естественном порядке ростера
func (r *Region) PriorityOrder(service ServiceKind) []Team {
	roster := r.Teams(service)
	if len(r.Priority) == 0 {
		return roster
	}

	ordered := make([]Team, 0, len(roster))
	seen := make(map[string]bool, len(roster))

	for _, key := range r.Priority {
		for _, team := range roster {
			if team.Key == key && !seen[key] {
				ordered = append(ordered, team)
				seen[key] = true
			}
		}
	}
	for _, team := range roster {
		if !seen[team.Key] {
			ordered = append(ordered, team)
		}
	}

	return ordered
}

// WeekdayFromISO конвертирует ISO номер дня (1=Пн ... 7=Вс) в time.Weekday
func WeekdayFromISO(day int) time.Weekday {
	if day == 7 {
		return time.Sunday
	}
	return time.Weekday(day)
}
