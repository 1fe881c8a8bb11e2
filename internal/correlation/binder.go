package correlation

import (
	"errors"
	"sync"
)

// ErrNoData signals that there is not enough history to build a chart.
// The caller keeps whatever it showed before instead of rendering a
// degenerate chart.
var ErrNoData = errors.New("correlation: no data points to bind")

// ThresholdLine is a fixed horizontal guide line on the correlation chart.
type ThresholdLine struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
	Color string  `json:"color"`
}

// RegimeSummary describes the most recent point only, for the status badge.
type RegimeSummary struct {
	Date        string  `json:"date"`
	Correlation float64 `json:"correlation"`
	Regime      string  `json:"regime"`
	Label       string  `json:"label"`
	Color       string  `json:"color"`
}

// ChartBinding is the presentation-ready form of a correlation series:
// labels, values, one precomputed color per point, the two threshold guide
// lines, and the last-point summary. It is rebuilt from scratch on every
// refresh and holds no state.
type ChartBinding struct {
	Labels     []string        `json:"labels"`
	Values     []float64       `json:"values"`
	Colors     []string        `json:"colors"`
	Thresholds []ThresholdLine `json:"thresholds"`
	Summary    RegimeSummary   `json:"summary"`
}

// BindSeries derives a ChartBinding from a correlation series. A rendered
// segment takes the color of its later endpoint, so each point's color is
// the regime of that point's own value; the adapter colors segment
// (i-1, i) with Colors[i] and the color changes exactly at a threshold
// crossing. Returns ErrNoData on empty input.
func BindSeries(points []Point) (*ChartBinding, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}

	binding := &ChartBinding{
		Labels: make([]string, len(points)),
		Values: make([]float64, len(points)),
		Colors: make([]string, len(points)),
		Thresholds: []ThresholdLine{
			{Value: CouplingThreshold, Label: "동조화 기준 (0.7)", Color: RegimeCoupling.Color()},
			{Value: WeakThreshold, Label: "약화 기준 (0.3)", Color: RegimeWeak.Color()},
		},
	}

	for i, p := range points {
		regime := Classify(p.Correlation)
		binding.Labels[i] = p.Date.Format("2006-01-02")
		binding.Values[i] = p.Correlation
		binding.Colors[i] = regime.Color()
	}

	last := points[len(points)-1]
	lastRegime := Classify(last.Correlation)
	binding.Summary = RegimeSummary{
		Date:        last.Date.Format("2006-01-02"),
		Correlation: last.Correlation,
		Regime:      lastRegime.String(),
		Label:       lastRegime.Label(),
		Color:       lastRegime.Color(),
	}

	return binding, nil
}

// ChartHandle is a live rendered chart owned by the hosting view. Close
// releases its canvas/render resources.
type ChartHandle interface {
	Close() error
}

// Renderer turns a binding into a live chart handle. The UI adapter
// implements this; the core never touches presentation surfaces directly.
type Renderer interface {
	Render(binding *ChartBinding) (ChartHandle, error)
}

// ChartManager owns the single live chart handle for one chart surface.
// Refresh binds a series, renders a replacement handle and disposes the
// previous one; on ErrNoData the current handle is left untouched. A mutex
// backstops the caller's obligation to serialize refresh cycles.
type ChartManager struct {
	mu       sync.Mutex
	renderer Renderer
	current  ChartHandle
}

// NewChartManager creates a manager with no chart attached.
func NewChartManager(renderer Renderer) *ChartManager {
	return &ChartManager{renderer: renderer}
}

// Refresh rebuilds the chart from points. The old handle is closed only
// after the replacement renders successfully, so a render failure keeps
// the previous chart alive.
func (m *ChartManager) Refresh(points []Point) (*ChartBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	binding, err := BindSeries(points)
	if err != nil {
		return nil, err
	}

	next, err := m.renderer.Render(binding)
	if err != nil {
		return nil, err
	}

	if m.current != nil {
		_ = m.current.Close()
	}
	m.current = next

	return binding, nil
}

// Close disposes the live handle on view teardown.
func (m *ChartManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.current = nil
	return err
}
