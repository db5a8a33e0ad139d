package gitauth

// nextSource picks the next chain entry to try: the first source, in chain
// order, whose method bits overlap the advertised set and whose retry
// budget is not yet spent. The walk restarts from the front every round, so
// a high-priority source with budget left is preferred even after a
// lower-priority source was tried.
//
// Returns (-1, false) when no source is eligible, including when the
// advertised set is empty; the chain is not consulted in that case.
func nextSource(a *Attempt, chain Chain) (int, bool) {
	if a.allowed == 0 {
		return -1, false
	}
	for i, src := range chain {
		if src.Methods()&a.allowed == 0 {
			continue
		}
		if a.timesTried(i) >= src.MaxAttempts() {
			continue
		}
		return i, true
	}
	return -1, false
}
