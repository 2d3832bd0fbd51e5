package supplychain

import (
	"github.com/pkgrisk/analyzer/internal/adapters"
	"github.com/pkgrisk/analyzer/internal/model"
)

// AnalyzePublishing checks whether the account that published the
// current version is among the package's declared maintainers (+15 when
// it is not) and penalizes single-maintainer projects (+10). Provenance
// is not inspected: HasProvenance and ProvenanceVerified stay false.
func AnalyzePublishing(latest adapters.NpmVersionManifest) model.PublishingInfo {
	info := model.PublishingInfo{
		Maintainers: latest.Maintainers,
		Publisher:   latest.Publisher,
	}
	info.PublisherKnown = latest.Publisher != ""
	if info.PublisherKnown {
		for _, m := range latest.Maintainers {
			if m == latest.Publisher {
				info.PublisherInMaintainers = true
				break
			}
		}
	}

	var score float64
	if info.PublisherKnown && !info.PublisherInMaintainers {
		score += 15
	}
	if len(latest.Maintainers) == 1 {
		score += 10
	}
	info.Score = score
	return info
}
