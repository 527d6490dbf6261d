package app

import (
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/lumenapp/admin-backend/internal/platform/logger"
	"github.com/lumenapp/admin-backend/internal/temporalx"
)

func temporalClient(log *logger.Logger) (temporalsdkclient.Client, error) {
	tc, err := temporalx.NewClient(log)
	if err != nil {
		return nil, fmt.Errorf("init temporal client: %w", err)
	}
	return tc, nil
}
