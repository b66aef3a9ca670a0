package routing

import "errors"

var (
	// ErrEmptyRoster возвращается, когда у региона нет команд для вида услуги
	ErrEmptyRoster = errors.New("routing: region has no teams for service")

	// ErrNoTeamAvailable возвращается, когда ни у одной команды нет емкости
	// в пределах горизонта - вызывающий предлагает другую дату
	ErrNoTeamAvailable = errors.New("routing: no team has capacity within horizon")

	// ErrInternal возвращается при внутренних ошибках маршрутизатора
	ErrInternal = errors.New("routing: internal error")
)
