package model

// Variable flags as they appear in reports.
const (
	FlagConstant           = "constant"
	FlagMayBeDefined       = "may_be_defined"
	FlagCheckedAsDefined   = "checked_as_defined"
	FlagCheckedAsUndefined = "checked_as_undefined"
	FlagUsedWithDefault    = "used_with_default"
)

// Variable is one node of an inferred schema.
//
// Dictionary properties are children named after their key, a list has a
// single child named "[]" and tuple items are named by their position.
type Variable struct {
	Name     string     `yaml:"name" json:"name"`
	Type     string     `yaml:"type" json:"type"`
	Label    string     `yaml:"label,omitempty" json:"label,omitempty"`
	Lines    []int      `yaml:"lines,flow,omitempty" json:"lines,omitempty"`
	Flags    []string   `yaml:"flags,flow,omitempty" json:"flags,omitempty"`
	Children []Variable `yaml:"children,omitempty" json:"children,omitempty"`
}

// HasFlag reports whether flag is set on v.
func (v Variable) HasFlag(flag string) bool {
	for _, f := range v.Flags {
		if f == flag {
			return true
		}
	}

	return false
}

// Required reports whether the caller must always supply v.
func (v Variable) Required() bool {
	return !v.HasFlag(FlagMayBeDefined) && !v.HasFlag(FlagUsedWithDefault)
}
