package autotune

// ramp moves a control value linearly to its target across one block.
type ramp struct {
	current float64
	target  float64
}

func (r *ramp) jump(v float64) {
	r.current = v
	r.target = v
}

func (r *ramp) settled() bool { return r.current == r.target }

// at returns the value for sample i of an n-sample block; the last sample
// reaches the target.
func (r *ramp) at(i, n int) float64 {
	if n <= 0 || r.settled() {
		return r.target
	}

	return r.current + (r.target-r.current)*float64(i+1)/float64(n)
}

// advance ends the block.
func (r *ramp) advance() { r.current = r.target }
