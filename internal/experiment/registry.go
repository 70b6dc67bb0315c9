package experiment

import (
	"strings"

	"github.com/san-kum/ibmcouple/internal/config"
	"github.com/san-kum/ibmcouple/internal/integrators"
	"github.com/san-kum/ibmcouple/internal/repulsion"
)

// Catalog lists the selectable names for each configurable component.
func Catalog() map[string][]string {
	cases := make([]string, 0)
	for _, c := range config.ListCases() {
		for _, p := range config.ListPresets(c) {
			cases = append(cases, c+"/"+p)
		}
	}
	return map[string][]string{
		"integrator": integrators.List(),
		"repulsion":  repulsion.List(),
		"preset":     cases,
	}
}

// Resolve loads a preset named "case/variant", or "case" for its first
// variant.
func Resolve(name string) (*config.Config, string, bool) {
	caseName, variant, _ := strings.Cut(name, "/")
	if variant == "" {
		ps := config.ListPresets(caseName)
		if len(ps) == 0 {
			return nil, "", false
		}
		variant = ps[0]
	}
	cfg := config.GetPreset(caseName, variant)
	if cfg == nil {
		return nil, "", false
	}
	return cfg, caseName + "/" + variant, true
}
