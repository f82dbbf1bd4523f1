package mathhammer

// killStage maps damage instances onto whole models slain. Each
// instance lands entirely on the current model: damage beyond its
// remaining wounds is lost, never carried over, and the next model
// steps up at full wounds. The walk is a small chain over (models
// down, wounds left on the current model), advanced one instance at a
// time and mixed over the instance-count distribution, so overkill is
// priced exactly rather than approximated by dividing total damage.
func killStage(dmg damageOutcome, wounds, models int) Dist {
	kills := make(Dist, models+1)

	// state[j][r]: j models down, current model at r wounds.
	// state[models][0] is the absorbing all-dead state.
	state := make([][]float64, models+1)
	for j := range state {
		state[j] = make([]float64, wounds+1)
	}
	state[0][wounds] = 1

	maxK := len(dmg.instances) - 1
	for k := 0; k <= maxK; k++ {
		if pk := dmg.instances[k]; pk > 0 {
			for j := 0; j <= models; j++ {
				var sum float64
				for _, p := range state[j] {
					sum += p
				}
				kills[j] += pk * sum
			}
		}
		if k == maxK {
			break
		}

		next := make([][]float64, models+1)
		for j := range next {
			next[j] = make([]float64, wounds+1)
		}
		next[models][0] = state[models][0]
		for j := 0; j < models; j++ {
			for r := 1; r <= wounds; r++ {
				p := state[j][r]
				if p == 0 {
					continue
				}
				for v, pv := range dmg.perInstance {
					if pv == 0 {
						continue
					}
					switch {
					case v == 0:
						next[j][r] += p * pv
					case v >= r:
						if j+1 == models {
							next[models][0] += p * pv
						} else {
							next[j+1][wounds] += p * pv
						}
					default:
						next[j][r-v] += p * pv
					}
				}
			}
		}
		state = next
	}

	return kills.Normalize()
}
