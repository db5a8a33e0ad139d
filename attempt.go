package gitauth

import "fmt"

// Attempt tracks one authentication session: the sequence of credential
// rounds a transport runs against a single remote during one operation.
// Handlers create an Attempt on the first Negotiate call and mutate it on
// every round; callers get read-only access through Handler.Attempt.
type Attempt struct {
	url      string
	username string
	allowed  Methods

	// counts[i] is how many times chain[i] was tried. Sized to the chain at
	// creation so an out-of-range index is unrepresentable state.
	counts []int

	// tried holds each source's name once, in first-attempt order.
	tried []string

	lastSource string
	lastErr    error

	// issued tracks the source whose credential is outstanding with the
	// transport. The next round records an implicit rejection against it.
	issued     int
	issuedName string
}

func newAttempt(url, username string, allowed Methods, chainLen int) *Attempt {
	return &Attempt{
		url:      url,
		username: username,
		allowed:  allowed,
		counts:   make([]int, chainLen),
		issued:   -1,
	}
}

// URL returns the remote URL this attempt is bound to.
func (a *Attempt) URL() string { return a.url }

// Username returns the most recent username hint seen for this attempt.
func (a *Attempt) Username() string { return a.username }

// Allowed returns the method set advertised on the most recent round.
func (a *Attempt) Allowed() Methods { return a.allowed }

// Tried returns the names of sources tried so far, in first-attempt order.
// Each source appears once regardless of retries, so the result never has
// more entries than the chain has sources.
func (a *Attempt) Tried() []string {
	out := make([]string, len(a.tried))
	copy(out, a.tried)
	return out
}

// LastSource returns the name of the source that most recently failed, or
// "" when none has.
func (a *Attempt) LastSource() string { return a.lastSource }

// LastError returns the most recent source failure, or nil when none has
// occurred.
func (a *Attempt) LastError() error { return a.lastErr }

// beginRound updates the attempt for a new Negotiate call: the advertised
// set is replaced, a non-empty hint replaces the remembered username, and
// any outstanding credential is recorded as rejected.
func (a *Attempt) beginRound(username string, allowed Methods) {
	a.allowed = allowed
	if username != "" {
		a.username = username
	}
	if a.issued >= 0 {
		a.recordFailure(a.issued, a.issuedName, ErrRejected)
		a.issued = -1
		a.issuedName = ""
	}
}

// recordFailure charges one try to the source at idx and remembers the
// error. An index outside the chain means the tracker and chain disagree
// about the chain's shape, which is a programming error, not a runtime
// condition.
func (a *Attempt) recordFailure(idx int, name string, err error) {
	if idx < 0 || idx >= len(a.counts) {
		panic(fmt.Sprintf("gitauth: attempt references source index %d outside chain of length %d", idx, len(a.counts)))
	}
	if a.counts[idx] == 0 {
		a.tried = append(a.tried, name)
	}
	a.counts[idx]++
	a.lastSource = name
	a.lastErr = err
}

// noteIssued marks idx as the source whose credential the transport is now
// holding. Issuing counts as a try the moment the next round begins.
func (a *Attempt) noteIssued(idx int, name string) {
	if idx < 0 || idx >= len(a.counts) {
		panic(fmt.Sprintf("gitauth: attempt references source index %d outside chain of length %d", idx, len(a.counts)))
	}
	a.issued = idx
	a.issuedName = name
}

// timesTried returns how many tries the source at idx has consumed.
func (a *Attempt) timesTried(idx int) int {
	if idx < 0 || idx >= len(a.counts) {
		panic(fmt.Sprintf("gitauth: attempt references source index %d outside chain of length %d", idx, len(a.counts)))
	}
	return a.counts[idx]
}
