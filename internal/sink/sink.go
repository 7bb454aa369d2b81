// Package sink ships a sweep's collected measurements somewhere durable:
// a JSON file, an Arrow IPC file, or an Arrow Flight endpoint.
package sink

import (
	"context"

	"github.com/23skdu/longbow-gauntlet/internal/measure"
)

type Sink interface {
	Name() string
	Write(ctx context.Context, ms []measure.Measurement) error
}
