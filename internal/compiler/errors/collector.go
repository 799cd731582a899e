package errors

// Sink receives diagnostics as a pass reports them
type Sink interface {
	Report(err *CompilerError) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(err *CompilerError) error

// Report calls f(err)
func (f SinkFunc) Report(err *CompilerError) error {
	return f(err)
}

// Collector is a Sink that keeps every reported diagnostic in order
type Collector struct {
	errors ErrorList
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Report appends err to the collected list
func (c *Collector) Report(err *CompilerError) error {
	c.errors = append(c.errors, err)
	return nil
}

// Errors returns the diagnostics collected so far
func (c *Collector) Errors() ErrorList {
	return c.errors
}
