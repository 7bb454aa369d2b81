package sink

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"time"

	"golang.org/x/sys/cpu"

	"github.com/23skdu/longbow-gauntlet/internal/measure"
)

// HostInfo describes the machine a sweep ran on, so result files from
// different boxes stay comparable.
type HostInfo struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	NumCPU    int    `json:"num_cpu"`
	GoVersion string `json:"go_version"`
	HasAVX2   bool   `json:"has_avx2"`
	HasAVX512 bool   `json:"has_avx512"`
	HasNEON   bool   `json:"has_neon"`
}

func DetectHost() HostInfo {
	return HostInfo{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
		GoVersion: runtime.Version(),
		HasAVX2:   cpu.X86.HasAVX2,
		HasAVX512: cpu.X86.HasAVX512F,
		HasNEON:   cpu.ARM64.HasASIMD,
	}
}

type suite struct {
	Timestamp    time.Time             `json:"timestamp"`
	Host         HostInfo              `json:"host"`
	Measurements []measure.Measurement `json:"measurements"`
}

// JSON writes the whole suite as one indented JSON document.
type JSON struct {
	Path string
}

func (s *JSON) Name() string { return "json" }

func (s *JSON) Write(_ context.Context, ms []measure.Measurement) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(suite{
		Timestamp:    time.Now(),
		Host:         DetectHost(),
		Measurements: ms,
	})
}
