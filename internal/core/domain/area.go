package domain

type Area struct {
	AreaNumber    int    `json:"areaNumber"`
	Plots         []Plot `json:"plots"`
	IsComplete    bool   `json:"isComplete"`
	NextPlotIndex int    `json:"nextPlotIndex"`
}

func newArea(number, firstPlot, lastPlot int) *Area {
	plots := make([]Plot, 0, lastPlot-firstPlot+1)
	for n := firstPlot; n <= lastPlot; n++ {
		plots = append(plots, Plot{
			ID:         PlotID(number, n),
			AreaNumber: number,
			PlotNumber: n,
		})
	}

	return &Area{
		AreaNumber: number,
		Plots:      plots,
	}
}

func (a *Area) next() (*Plot, bool) {
	if a.NextPlotIndex >= len(a.Plots) {
		return nil, false
	}

	return &a.Plots[a.NextPlotIndex], true
}

func (a *Area) indexOf(plotNumber int) (int, bool) {
	if len(a.Plots) == 0 {
		return 0, false
	}

	i := plotNumber - a.Plots[0].PlotNumber
	if i < 0 || i >= len(a.Plots) {
		return 0, false
	}

	return i, true
}

func (a *Area) Sold() int {
	return a.NextPlotIndex
}

func (a *Area) Remaining() int {
	return len(a.Plots) - a.NextPlotIndex
}

func (a Area) clone() Area {
	c := a
	c.Plots = make([]Plot, len(a.Plots))
	for i, p := range a.Plots {
		c.Plots[i] = p.clone()
	}

	return c
}
