package metrics

import "github.com/san-kum/femdyn/internal/sim"

// PlasticActivity is the mean number of yielding elements per step.
type PlasticActivity struct {
	name    string
	sum     int
	samples int
}

func NewPlasticActivity() *PlasticActivity {
	return &PlasticActivity{
		name: "plastic_activity",
	}
}

func (p *PlasticActivity) Name() string {
	return p.name
}

func (p *PlasticActivity) OnStep(step int, res *sim.Result, yields int) {
	p.sum += yields
	p.samples++
}

func (p *PlasticActivity) Value() float64 {
	if p.samples == 0 {
		return 0
	}
	return float64(p.sum) / float64(p.samples)
}

func (p *PlasticActivity) Reset() {
	p.sum = 0
	p.samples = 0
}
