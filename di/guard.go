package di

// guard confines all container state to a single executor goroutine.
// Callers submit work with do and block until it has run. Work submitted to
// the executor must not block: factories run elsewhere and report back
// through do.
type guard struct {
	requests chan *request
	done     chan struct{}
}

type request struct {
	fn       func()
	last     bool
	finished chan struct{}
	panicked any
}

func newGuard() *guard {
	g := &guard{
		requests: make(chan *request),
		done:     make(chan struct{}),
	}
	go g.loop()
	return g
}

// loop runs requests in arrival order until a final request has run.
func (g *guard) loop() {
	defer close(g.done)
	for req := range g.requests {
		g.run(req)
		if req.last {
			return
		}
	}
}

func (g *guard) run(req *request) {
	defer func() {
		req.panicked = recover()
		close(req.finished)
	}()
	req.fn()
}

// do runs fn on the executor and waits for it to finish. It returns false if
// the executor has stopped and fn did not run. A panic in fn is re-raised on
// the calling goroutine.
func (g *guard) do(fn func()) bool {
	return g.submit(&request{fn: fn, finished: make(chan struct{})})
}

// stop runs fn as the executor's final request. Nothing submitted afterwards
// runs. It returns false if the executor had already stopped.
func (g *guard) stop(fn func()) bool {
	ok := g.submit(&request{fn: fn, last: true, finished: make(chan struct{})})
	<-g.done
	return ok
}

func (g *guard) submit(req *request) bool {
	select {
	case g.requests <- req:
	case <-g.done:
		return false
	}
	<-req.finished
	if req.panicked != nil {
		panic(req.panicked)
	}
	return true
}
