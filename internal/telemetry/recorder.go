// Package telemetry exports the step metrics of a swarm run: one CSV row per
// decided step and a protobuf Struct snapshot of each decision.
package telemetry

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-swarm-pursuit/internal/swarm"
	"gonum.org/v1/gonum/stat"
)

// StepRow is the CSV summary of one decided step.
type StepRow struct {
	RunID          string  `csv:"run_id"`
	Step           int     `csv:"step"`
	MaxCJ          float64 `csv:"max_cj"`
	TargetDist     float64 `csv:"target_dist"`
	ActivatedCount int     `csv:"activated_count"`
	WarnNum        int     `csv:"warn_num"`

	// Means over the agents that recorded a value this step
	MeanEntropy         float64 `csv:"mean_entropy"`
	MeanMST             float64 `csv:"mean_mst"`
	MeanActivationRatio float64 `csv:"mean_activation_ratio"`

	NewlyActivated int    `csv:"newly_activated"`
	Deactivated    int    `csv:"deactivated"`
	ActivatedIDs   string `csv:"activated_ids"` // id:src pairs, space separated
	WarnIDs        string `csv:"warn_ids"`
}

// Recorder accumulates rows for one run.
type Recorder struct {
	RunID uuid.UUID
	rows  []*StepRow
}

func NewRecorder() *Recorder {
	return &Recorder{RunID: uuid.New()}
}

// Record appends the summary of decision d, read back from the metrics of s.
func (r *Recorder) Record(s *swarm.RuntimeState, d *swarm.Decision) *StepRow {
	m := s.Metrics
	i := d.SimStep - 1
	row := &StepRow{
		RunID:               r.RunID.String(),
		Step:                d.SimStep,
		MaxCJ:               at(m.MaxCJ, i),
		TargetDist:          at(m.TargetDist, i),
		MeanEntropy:         finiteMean(swarm.Row(m.EntropyValues, d.SimStep)),
		MeanMST:             finiteMean(swarm.Row(m.MSTValues, d.SimStep)),
		MeanActivationRatio: finiteMean(swarm.Row(m.ActivationRatios, d.SimStep)),
		NewlyActivated:      len(d.NewlyActivated),
		Deactivated:         len(d.Deactivated),
		ActivatedIDs:        joinActivations(d.Active),
		WarnIDs:             joinInts(d.Escaping),
	}
	if i >= 0 && i < len(m.ActivatedCount) {
		row.ActivatedCount = m.ActivatedCount[i]
		row.WarnNum = m.WarnNum[i]
	}
	r.rows = append(r.rows, row)
	return row
}

// Rows returns the recorded rows in record order.
func (r *Recorder) Rows() []*StepRow {
	return r.rows
}

// WriteCSV writes every recorded row with a header line.
func (r *Recorder) WriteCSV(w io.Writer) error {
	if err := gocsv.Marshal(&r.rows, w); err != nil {
		return fmt.Errorf("writing telemetry csv: %w", err)
	}
	return nil
}

func at(s []float64, i int) float64 {
	if i < 0 || i >= len(s) {
		return math.NaN()
	}
	return s[i]
}

// finiteMean is the mean of the non-NaN values, NaN when there are none.
func finiteMean(values []float64) float64 {
	kept := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return math.NaN()
	}
	return stat.Mean(kept, nil)
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, " ")
}

func joinActivations(acts []swarm.Activation) string {
	parts := make([]string, len(acts))
	for i, a := range acts {
		parts[i] = fmt.Sprintf("%d:%d", a.ID, a.Src)
	}
	return strings.Join(parts, " ")
}
