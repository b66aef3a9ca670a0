package webhook

import (
	"context"

	handleWebhook "github.com/tomgachter/sg-montagerechner-sub000/internal/usecase/handle_webhook"
)

type HandleWebhookUseCase interface {
	Execute(ctx context.Context, req *handleWebhook.Request) (*handleWebhook.Result, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
