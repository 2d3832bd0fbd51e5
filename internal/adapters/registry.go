package adapters

import (
	"fmt"

	"github.com/pkgrisk/analyzer/internal/model"
	"github.com/pkgrisk/analyzer/pkg/observability"
)

// New constructs the Adapter for the given ecosystem. logger may be nil.
func New(ecosystem model.Ecosystem, logger observability.Logger) (Adapter, error) {
	switch ecosystem {
	case model.EcosystemNPM:
		return NewNpmAdapter(logger), nil
	case model.EcosystemPyPI:
		return NewPyPiAdapter(logger), nil
	case model.EcosystemHomebrew:
		return NewHomebrewAdapter(logger), nil
	default:
		return nil, fmt.Errorf("adapters: no adapter registered for ecosystem %q", ecosystem)
	}
}

// All constructs one Adapter per supported ecosystem.
func All(logger observability.Logger) ([]Adapter, error) {
	ecosystems := []model.Ecosystem{model.EcosystemNPM, model.EcosystemPyPI, model.EcosystemHomebrew}
	out := make([]Adapter, 0, len(ecosystems))
	for _, eco := range ecosystems {
		a, err := New(eco, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
