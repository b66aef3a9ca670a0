package routing

import "github.com/tomgachter/sg-montagerechner-sub000/internal/domain"

// Strategy стратегия выбора команды
type Strategy string

const (
	// StrategyRoundRobin циклический обход ростера - для близких выездов
	StrategyRoundRobin Strategy = "round_robin"
	// StrategyPriority настроенный порядок приоритетов - для дальних выездов
	StrategyPriority Strategy = "priority"
)

// Assignment кандидат назначения с метаданными маршрутизации
type Assignment struct {
	Team         domain.Team
	Region       string
	Service      domain.ServiceKind
	Strategy     Strategy
	DriveMinutes int
}
