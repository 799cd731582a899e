package mediation

// Context carries the request being mediated.
type Context struct {
	Headers map[string][]string
}

// Setenv is a public helper without annotations.
func Setenv(key, value string) {}
