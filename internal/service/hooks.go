package service

// afterCommit collects side effects that must only run once the
// surrounding transaction has committed, usage sync and event
// publishing mostly. Run never reports errors back; post-commit
// effects are best effort.
type afterCommit struct {
	fns []func()
}

// Add queues a post-commit effect
func (a *afterCommit) Add(fn func()) {
	a.fns = append(a.fns, fn)
}

// Run fires the queued effects in order
func (a *afterCommit) Run() {
	for _, fn := range a.fns {
		fn()
	}
}
