package dao

// Parameter is a named filter value passed to List. Stores interpret the
// names they understand and ignore the rest.
type Parameter struct {
	Name  string
	Value interface{}
}

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

// Lookup returns the first parameter with the given name, or nil.
func Lookup(parameters []*Parameter, name string) *Parameter {
	for _, p := range parameters {
		if p != nil && p.Name == name {
			return p
		}
	}
	return nil
}

// MatchString reports whether actual satisfies the parameter value, which
// may be a single string or a string slice (any-of semantics). A nil
// parameter matches everything.
func (p *Parameter) MatchString(actual string) bool {
	if p == nil {
		return true
	}
	switch expect := p.Value.(type) {
	case string:
		return actual == expect
	case []string:
		for _, s := range expect {
			if actual == s {
				return true
			}
		}
		return false
	}
	return true
}
