package pipeline

// StageSpec names a registered stage and its parameters.
type StageSpec struct {
	Name   StageName `yaml:"name" json:"name"`
	Params Params    `yaml:"params,omitempty" json:"params,omitempty"`
}

// SessionConfig declares one pipeline instantiation. A config is treated as
// immutable once a session starts; use Clone before handing it out.
type SessionConfig struct {
	Source  StageSpec   `yaml:"source" json:"source"`
	Filters []StageSpec `yaml:"filters,omitempty" json:"filters,omitempty"`
	Sorter  StageSpec   `yaml:"sorter" json:"sorter"`
	Limiter *StageSpec  `yaml:"limiter,omitempty" json:"limiter,omitempty"`
}

// Validate checks the shape of the config. Stage names are resolved later
// against a registry.
func (c SessionConfig) Validate() error {
	if c.Source.Name == "" {
		return invalid("source is required")
	}
	for i, f := range c.Filters {
		if f.Name == "" {
			return invalid("filter %d has no name", i)
		}
	}
	if c.Limiter != nil && c.Limiter.Name == "" {
		return invalid("limiter has no name")
	}
	return nil
}

// SorterName is the configured sorter, sequential when none is set.
func (c SessionConfig) SorterName() StageName {
	if c.Sorter.Name == "" {
		return SorterSequential
	}
	return c.Sorter.Name
}

// Clone returns a deep copy of c.
func (c SessionConfig) Clone() SessionConfig {
	out := SessionConfig{
		Source: c.Source.clone(),
		Sorter: c.Sorter.clone(),
	}
	if c.Filters != nil {
		out.Filters = make([]StageSpec, len(c.Filters))
		for i, f := range c.Filters {
			out.Filters[i] = f.clone()
		}
	}
	if c.Limiter != nil {
		l := c.Limiter.clone()
		out.Limiter = &l
	}
	return out
}

func (s StageSpec) clone() StageSpec {
	return StageSpec{Name: s.Name, Params: s.Params.clone()}
}
