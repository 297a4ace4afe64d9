package plugin

// ArgumentSpec declares one construction option for help and
// introspection tooling. The JSON field names are consumed by external
// tools (autocomplete, documentation generators) and are part of the
// metadata contract.
type ArgumentSpec struct {
	Name     string `json:"name"`
	Short    string `json:"short,omitempty"`
	Help     string `json:"help,omitempty"`
	Type     string `json:"type,omitempty"`
	Default  any    `json:"default,omitempty"`
	Critical bool   `json:"critical,omitempty"`
}

// Declaration collects a class's declared arguments and resource
// requirements. The metadata database runs a class's declaration chain
// against one of these instead of a real argument parser.
//
// When two capabilities declare the same key the last writer wins, in
// place: the later spec replaces the earlier one at its original position.
type Declaration struct {
	args     []ArgumentSpec
	argIndex map[string]int
	reqs     []string
	reqIndex map[string]int
}

// NewDeclaration returns an empty declaration collector.
func NewDeclaration() *Declaration {
	return &Declaration{
		argIndex: make(map[string]int),
		reqIndex: make(map[string]int),
	}
}

// Argument records an option declaration.
func (d *Declaration) Argument(spec ArgumentSpec) {
	if idx, ok := d.argIndex[spec.Name]; ok {
		d.args[idx] = spec
		return
	}
	d.argIndex[spec.Name] = len(d.args)
	d.args = append(d.args, spec)
}

// Requirement records a named resource requirement ("profile",
// "physical_address_space").
func (d *Declaration) Requirement(name string) {
	if _, ok := d.reqIndex[name]; ok {
		return
	}
	d.reqIndex[name] = len(d.reqs)
	d.reqs = append(d.reqs, name)
}

// Arguments returns declared arguments in declaration order.
func (d *Declaration) Arguments() []ArgumentSpec {
	return append([]ArgumentSpec(nil), d.args...)
}

// Requirements returns declared requirements in declaration order.
func (d *Declaration) Requirements() []string {
	return append([]string(nil), d.reqs...)
}
