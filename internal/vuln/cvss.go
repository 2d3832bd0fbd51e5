package vuln

import (
	"math"
	"strings"
)

// cvssV3BaseScore computes the CVSS v3.0/3.1 base score from a vector
// string such as "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", per the
// published FIRST.org formula. Returns ok=false when the vector is
// missing a required metric.
func cvssV3BaseScore(vector string) (float64, bool) {
	metrics := parseVector(vector)

	av, ok := pick(metrics, "AV", map[string]float64{"N": 0.85, "A": 0.62, "L": 0.55, "P": 0.2})
	if !ok {
		return 0, false
	}
	ac, ok := pick(metrics, "AC", map[string]float64{"L": 0.77, "H": 0.44})
	if !ok {
		return 0, false
	}
	ui, ok := pick(metrics, "UI", map[string]float64{"N": 0.85, "R": 0.62})
	if !ok {
		return 0, false
	}
	scope := metrics["S"]
	if scope != "U" && scope != "C" {
		return 0, false
	}
	var pr float64
	if scope == "C" {
		pr, ok = pick(metrics, "PR", map[string]float64{"N": 0.85, "L": 0.68, "H": 0.5})
	} else {
		pr, ok = pick(metrics, "PR", map[string]float64{"N": 0.85, "L": 0.62, "H": 0.27})
	}
	if !ok {
		return 0, false
	}
	c, ok := pick(metrics, "C", map[string]float64{"H": 0.56, "L": 0.22, "N": 0})
	if !ok {
		return 0, false
	}
	i, ok := pick(metrics, "I", map[string]float64{"H": 0.56, "L": 0.22, "N": 0})
	if !ok {
		return 0, false
	}
	a, ok := pick(metrics, "A", map[string]float64{"H": 0.56, "L": 0.22, "N": 0})
	if !ok {
		return 0, false
	}

	iscBase := 1 - ((1 - c) * (1 - i) * (1 - a))
	var impact float64
	if scope == "U" {
		impact = 6.42 * iscBase
	} else {
		impact = 7.52*(iscBase-0.029) - 3.25*math.Pow(iscBase-0.02, 15)
	}
	if impact <= 0 {
		return 0, true
	}

	exploitability := 8.22 * av * ac * pr * ui

	if scope == "U" {
		return roundUp(math.Min(impact+exploitability, 10)), true
	}
	return roundUp(math.Min(1.08*(impact+exploitability), 10)), true
}

func parseVector(vector string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(vector, "/") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) == 2 {
			out[kv[0]] = kv[1]
		}
	}
	return out
}

func pick(metrics map[string]string, key string, values map[string]float64) (float64, bool) {
	v, ok := metrics[key]
	if !ok {
		return 0, false
	}
	f, ok := values[v]
	return f, ok
}

// roundUp implements CVSS's "round up to 1 decimal place" per the
// official reference: operate in integer hundred-thousandths to avoid
// float rounding surprises.
func roundUp(x float64) float64 {
	intInput := int(math.Round(x * 100000))
	if intInput%10000 == 0 {
		return float64(intInput) / 100000
	}
	return float64(intInput/10000+1) / 10
}
