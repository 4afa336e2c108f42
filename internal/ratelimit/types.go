package ratelimit

// Rule describes a named request budget.
type Rule struct {
	Name      string `yaml:"name"`
	PerMinute int    `yaml:"per_minute"`
	Burst     int    `yaml:"burst"`
}

// ruleFile is the shape of the embedded rules YAML.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}
