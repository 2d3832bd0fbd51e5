package commands

import (
	"fmt"

	"github.com/pkgrisk/analyzer/internal/adapters"
	"github.com/pkgrisk/analyzer/internal/model"
)

// findAdapter returns the App's adapter for eco, or an error naming the
// supported ecosystems if none matches.
func findAdapter(app *App, eco model.Ecosystem) (adapters.Adapter, error) {
	for _, a := range app.Adapters {
		if a.Ecosystem() == eco {
			return a, nil
		}
	}
	return nil, fmt.Errorf("unsupported ecosystem %q (supported: npm, pypi, homebrew)", eco)
}
