package loam

// StepMetadata is the frontmatter of a step document. It uses "mapstructure"
// tags to match the YAML keys loam decodes.
//
// Order controls where appended steps land relative to each other; steps with
// an explicit before/after/at placement ignore it. With loam strict mode the
// numeric fields arrive as json.Number, so Order and At are kept loose here
// and normalized by the loader.
type StepMetadata struct {
	ID        string   `json:"id" mapstructure:"id"`
	Order     any      `json:"order,omitempty" mapstructure:"order"`
	Before    string   `json:"before,omitempty" mapstructure:"before"`
	After     string   `json:"after,omitempty" mapstructure:"after"`
	At        any      `json:"at,omitempty" mapstructure:"at"`
	Condition string   `json:"condition,omitempty" mapstructure:"condition"`
	Permitted []string `json:"permitted,omitempty" mapstructure:"permitted"`

	// Requires is an entry precondition expression, e.g. "address_valid == true".
	Requires string `json:"requires,omitempty" mapstructure:"requires"`

	// RetreatRestricted forbids moving backwards out of this step while the
	// expression holds.
	RetreatRestricted string `json:"retreat_restricted,omitempty" mapstructure:"retreat_restricted"`
}
