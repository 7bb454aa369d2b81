package sink

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/23skdu/longbow-gauntlet/internal/measure"
)

// benchSchema is the record batch layout shared by the Arrow and Flight
// sinks: one row per measurement.
var benchSchema = arrow.NewSchema([]arrow.Field{
	{Name: "op", Type: arrow.BinaryTypes.String},
	{Name: "iterations", Type: arrow.PrimitiveTypes.Int64},
	{Name: "ns_per_op", Type: arrow.PrimitiveTypes.Float64},
	{Name: "total_ns", Type: arrow.PrimitiveTypes.Int64},
	{Name: "min_ns", Type: arrow.PrimitiveTypes.Int64},
	{Name: "max_ns", Type: arrow.PrimitiveTypes.Int64},
	{Name: "gflops", Type: arrow.PrimitiveTypes.Float64},
	{Name: "alloc_bytes", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// buildRecord packs measurements into one record batch. The caller releases
// the record.
func buildRecord(mem memory.Allocator, ms []measure.Measurement) arrow.Record {
	b := array.NewRecordBuilder(mem, benchSchema)
	defer b.Release()

	opB := b.Field(0).(*array.StringBuilder)
	iterB := b.Field(1).(*array.Int64Builder)
	nsOpB := b.Field(2).(*array.Float64Builder)
	totalB := b.Field(3).(*array.Int64Builder)
	minB := b.Field(4).(*array.Int64Builder)
	maxB := b.Field(5).(*array.Int64Builder)
	gflopsB := b.Field(6).(*array.Float64Builder)
	allocB := b.Field(7).(*array.Int64Builder)

	for _, m := range ms {
		opB.Append(m.Op)
		iterB.Append(int64(m.Iterations))
		nsOpB.Append(m.NsPerOp)
		totalB.Append(m.TotalNs)
		minB.Append(m.MinNs)
		maxB.Append(m.MaxNs)
		gflopsB.Append(m.GFLOPS)
		allocB.Append(m.AllocBytes)
	}
	return b.NewRecord()
}

// Arrow writes the measurements as a single-batch Arrow IPC file.
type Arrow struct {
	Path string
}

func (s *Arrow) Name() string { return "arrow" }

func (s *Arrow) Write(_ context.Context, ms []measure.Measurement) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	mem := memory.DefaultAllocator
	rec := buildRecord(mem, ms)
	defer rec.Release()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(benchSchema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("create arrow writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	return w.Close()
}
