package concurrency

// GoLimit bounds the number of goroutines working at once.
type GoLimit struct {
	ch chan struct{}
}

// NewGoLimit new go limit
func NewGoLimit(max int) *GoLimit {
	return &GoLimit{ch: make(chan struct{}, max)}
}

// Add acquires a slot, blocking while max workers are busy
func (g *GoLimit) Add() {
	g.ch <- struct{}{}
}

// Done releases a slot
func (g *GoLimit) Done() {
	<-g.ch
}
