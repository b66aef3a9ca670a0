package prefill

import (
	"context"

	prefillUC "github.com/tomgachter/sg-montagerechner-sub000/internal/usecase/prefill"
)

type PrefillUseCase interface {
	Execute(ctx context.Context, req *prefillUC.Request) (*prefillUC.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
