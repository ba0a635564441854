package pattern

// degradeDraw produces a deterministic draw in [0, 1) for a degrade decision.
// The inputs pin down one event occurrence: the pattern seed, the degrade
// node's identity, and the event onset (which encodes both the cycle index
// and the position within it). Querying the same occurrence from any arc
// always yields the same draw.
func degradeDraw(seed uint64, nodeID int, onset Rat) float64 {
	h := seed
	h = mix64(h ^ uint64(nodeID))
	h = mix64(h ^ uint64(onset.Num()))
	h = mix64(h ^ uint64(onset.Den()))
	return float64(h>>11) / float64(1<<53)
}

// mix64 is the splitmix64 finalizer.
func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
