package optimization

// FrontierPoint is one efficient portfolio of a sweep.
type FrontierPoint struct {
	TargetReturn float64
	Return       float64 // achieved μ'w
	Risk         float64 // sqrt(w'Σw)
	Weights      []float64
	Sharpe       *float64 // nil when Risk is zero
	VaR95        float64  // parametric 95% value at risk, as a return
	CVaR95       float64  // parametric 95% expected shortfall, as a return
}

func (p FrontierPoint) clone() FrontierPoint {
	cp := p
	cp.Weights = append([]float64(nil), p.Weights...)
	if p.Sharpe != nil {
		s := *p.Sharpe
		cp.Sharpe = &s
	}
	return cp
}

// PortfolioSnapshot describes a caller-supplied allocation, typically the
// current portfolio, for comparison against the frontier.
type PortfolioSnapshot struct {
	Weights []float64
	Return  float64
	Risk    float64
	Sharpe  *float64
	VaR95   float64
	CVaR95  float64
}

func (s PortfolioSnapshot) clone() PortfolioSnapshot {
	cp := s
	cp.Weights = append([]float64(nil), s.Weights...)
	if s.Sharpe != nil {
		v := *s.Sharpe
		cp.Sharpe = &v
	}
	return cp
}

// FrontierDataset is the result of one sweep: the efficient portfolios in
// sweep order plus run metadata. It is never mutated after construction and
// all accessors return copies.
type FrontierDataset struct {
	runID        string
	assets       []string
	points       []FrontierPoint
	requested    int
	riskFreeRate float64
	optimalIndex int
	minRiskIndex int
	current      *PortfolioSnapshot
}

func newFrontierDataset(
	runID string,
	assets []string,
	points []FrontierPoint,
	requested int,
	riskFreeRate float64,
	current *PortfolioSnapshot,
) *FrontierDataset {
	return &FrontierDataset{
		runID:        runID,
		assets:       assets,
		points:       points,
		requested:    requested,
		riskFreeRate: riskFreeRate,
		optimalIndex: maxSharpeIndex(points),
		minRiskIndex: minRiskIndex(points),
		current:      current,
	}
}

// maxSharpeIndex returns the first point with the largest defined Sharpe
// ratio, or -1 when no point has one.
func maxSharpeIndex(points []FrontierPoint) int {
	best := -1
	for i, p := range points {
		if p.Sharpe == nil {
			continue
		}
		if best < 0 || *p.Sharpe > *points[best].Sharpe {
			best = i
		}
	}
	return best
}

func minRiskIndex(points []FrontierPoint) int {
	best := -1
	for i, p := range points {
		if best < 0 || p.Risk < points[best].Risk {
			best = i
		}
	}
	return best
}

// RunID identifies the sweep that produced the dataset.
func (d *FrontierDataset) RunID() string {
	return d.runID
}

// Assets returns the asset names; every weight vector uses this order.
func (d *FrontierDataset) Assets() []string {
	return append([]string(nil), d.assets...)
}

// Points returns all frontier points in sweep order.
func (d *FrontierDataset) Points() []FrontierPoint {
	out := make([]FrontierPoint, len(d.points))
	for i, p := range d.points {
		out[i] = p.clone()
	}
	return out
}

// Point returns the i-th point. It panics if i is out of range.
func (d *FrontierDataset) Point(i int) FrontierPoint {
	return d.points[i].clone()
}

// Len returns the number of retained points.
func (d *FrontierDataset) Len() int {
	return len(d.points)
}

// Requested returns the number of target returns swept.
func (d *FrontierDataset) Requested() int {
	return d.requested
}

// Dropped returns the number of target returns without a solution.
func (d *FrontierDataset) Dropped() int {
	return d.requested - len(d.points)
}

// RiskFreeRate returns the rate used for Sharpe ratios.
func (d *FrontierDataset) RiskFreeRate() float64 {
	return d.riskFreeRate
}

// Optimal returns the point with the highest Sharpe ratio. ok is false when
// no point has a defined Sharpe ratio.
func (d *FrontierDataset) Optimal() (FrontierPoint, bool) {
	if d.optimalIndex < 0 {
		return FrontierPoint{}, false
	}
	return d.points[d.optimalIndex].clone(), true
}

// OptimalIndex returns the position of Optimal() in Points(), or -1.
func (d *FrontierDataset) OptimalIndex() int {
	return d.optimalIndex
}

// MinRisk returns the lowest-risk point of the sweep.
func (d *FrontierDataset) MinRisk() (FrontierPoint, bool) {
	if d.minRiskIndex < 0 {
		return FrontierPoint{}, false
	}
	return d.points[d.minRiskIndex].clone(), true
}

// MinRiskIndex returns the position of MinRisk() in Points(), or -1.
func (d *FrontierDataset) MinRiskIndex() int {
	return d.minRiskIndex
}

// Current returns the snapshot of the comparison portfolio, if one was given.
func (d *FrontierDataset) Current() (PortfolioSnapshot, bool) {
	if d.current == nil {
		return PortfolioSnapshot{}, false
	}
	return d.current.clone(), true
}
