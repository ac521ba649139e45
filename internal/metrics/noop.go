package metrics

import (
	"time"

	"github.com/kcenon/cleanupengine/internal/core"
)

// Noop is a no-op implementation of core.Metrics. Use this when metrics
// collection is disabled (the default).
type Noop struct{}

// NewNoop creates a new no-op metrics collector.
func NewNoop() *Noop {
	return &Noop{}
}

func (Noop) IncFilesScanned(string)                         {}
func (Noop) IncDirsScanned(string)                          {}
func (Noop) ObserveScanDuration(string, time.Duration)      {}
func (Noop) IncGradeDecision(core.SafetyGrade, core.Category) {}
func (Noop) SetBytesEligible(int64)                         {}
func (Noop) SetFilesEligible(int)                           {}
func (Noop) IncFilesDeleted(string)                         {}
func (Noop) IncDirsDeleted(string)                          {}
func (Noop) AddBytesFreed(int64)                            {}
func (Noop) IncDeleteErrors(string)                         {}

// Ensure Noop implements core.Metrics.
var _ core.Metrics = (*Noop)(nil)
