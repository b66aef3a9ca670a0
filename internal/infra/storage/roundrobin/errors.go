package roundrobin

import "errors"

var (
	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("roundrobin repository: build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("roundrobin repository: execute query")

	// ErrScanRow возвращается при ошибке чтения строки результата
	ErrScanRow = errors.New("roundrobin repository: scan row")

	// ErrEmptyRoster возвращается при пустом списке календарей
	ErrEmptyRoster = errors.New("roundrobin repository: empty calendar roster")
)
