package schema

import "fmt"

// ContainerKind selects the container a non-negative integer subscript implies.
type ContainerKind string

// Container kinds.
const (
	ContainerList  ContainerKind = "list"
	ContainerTuple ContainerKind = "tuple"
)

// Config holds the inference switches.
type Config struct {
	// ConditionsAsBoolean types every if/elif/for-filter condition as Boolean.
	ConditionsAsBoolean bool
	// IndexContainer decides whether x[0] makes x a list or a tuple.
	IndexContainer ContainerKind
}

// DefaultConfig returns the default inference switches.
func DefaultConfig() Config {
	return Config{IndexContainer: ContainerList}
}

// Fingerprint identifies the switches in the form stored with each report,
// so that a report inferred under other switches is not reused.
func (c Config) Fingerprint() string {
	container := c.IndexContainer
	if container == "" {
		container = ContainerList
	}

	return fmt.Sprintf("conditions_as_boolean=%t,index_container=%s", c.ConditionsAsBoolean, container)
}

// ParseContainerKind parses "list" or "tuple".
func ParseContainerKind(s string) (ContainerKind, error) {
	switch ContainerKind(s) {
	case ContainerList, "":
		return ContainerList, nil
	case ContainerTuple:
		return ContainerTuple, nil
	}

	return "", fmt.Errorf("invalid index container %q: must be list or tuple", s)
}
