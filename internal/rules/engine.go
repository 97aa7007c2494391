package rules

// Engine compiles loan rules with a fixed set of Options.
// Safe for concurrent use: every call owns its parser and scope stack.
type Engine struct {
	opts Options
}

// NewEngine creates a compiler engine after validating opts.
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Engine{opts: opts}, nil
}

// Options returns the engine's compile options.
func (e *Engine) Options() Options {
	return e.opts
}

// Compile compiles rule text into a RuleSet.
func (e *Engine) Compile(text string) (*RuleSet, error) {
	return Compile(text, e.opts)
}

// Drools compiles rule text straight to Drools source.
func (e *Engine) Drools(text string) (string, error) {
	rs, err := e.Compile(text)
	if err != nil {
		return "", err
	}
	return rs.Drools(), nil
}
