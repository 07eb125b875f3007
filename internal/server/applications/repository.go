package applications

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, app *Application) (*Application, error)
	GetByClientID(ctx context.Context, clientID string) (*Application, error)
}
