package sink

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/23skdu/longbow-gauntlet/internal/measure"
)

// flightPath is the descriptor a longbow collector files sweep results
// under.
const flightPath = "benchmarks"

// Flight publishes the measurement batch to an Arrow Flight endpoint via
// DoPut. Connection problems are returned as sink errors; the caller
// decides whether they are fatal (the CLI only logs them).
type Flight struct {
	Addr string
}

func (s *Flight) Name() string { return "flight" }

func (s *Flight) Write(ctx context.Context, ms []measure.Measurement) error {
	client, err := flight.NewClientWithMiddleware(s.Addr, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connect to flight server %s: %w", s.Addr, err)
	}
	defer client.Close()

	stream, err := client.DoPut(ctx)
	if err != nil {
		return fmt.Errorf("open DoPut stream: %w", err)
	}

	mem := memory.DefaultAllocator
	rec := buildRecord(mem, ms)
	defer rec.Release()

	w := flight.NewRecordWriter(stream, ipc.WithSchema(benchSchema), ipc.WithAllocator(mem))
	w.SetFlightDescriptor(&flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{flightPath},
	})
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("write flight record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close flight writer: %w", err)
	}
	return stream.CloseSend()
}
