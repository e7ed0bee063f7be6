package collection

import (
	"context"
	"fmt"

	"github.com/timgluz/abfuhrplan/street"
)

var (
	ErrTokenNotFound    = fmt.Errorf("token not found in script content")
	ErrNoContent        = fmt.Errorf("no content available")
	ErrResourceNotFound = fmt.Errorf("resource not found")
	ErrProviderNotReady = fmt.Errorf("provider is not ready")
)

type Provider interface {
	GetSchedule(ctx context.Context, address Address) (*Schedule, error)
	GetStreets(ctx context.Context) (*street.Directory, error)

	IsReady() bool
}
