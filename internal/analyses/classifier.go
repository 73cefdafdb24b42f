package analyses

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	markerRelevant  = "RELEVANTE:"
	markerUnrelated = "NÃO RELACIONADO"
	criteriaCount   = 6
)

var criteriaPattern = regexp.MustCompile(`(?i)^\[\s*crit[ée]rios\s+atendidos\s*:\s*([0-9,\s]*)\]\s*-?\s*(.*)$`)

// Verdict is the parsed relevance answer.
type Verdict struct {
	Relevant  bool
	Criteria  []int
	Rationale string
}

// Classify applies the literal rule: the trimmed, upper-cased text starts
// with RELEVANTE: and does not contain NÃO RELACIONADO anywhere.
func Classify(verdict string) bool {
	upper := strings.ToUpper(strings.TrimSpace(verdict))
	return strings.HasPrefix(upper, markerRelevant) && !strings.Contains(upper, markerUnrelated)
}

// ParseVerdict validates verdict against the two accepted shapes:
//
//	RELEVANTE: [Critérios atendidos: X, Y, Z] - explanation
//	NÃO RELACIONADO
//
// Anything else, including text carrying both markers, is ErrMalformedVerdict.
func ParseVerdict(verdict string) (Verdict, error) {
	trimmed := strings.TrimSpace(verdict)
	upper := strings.ToUpper(trimmed)

	if strings.TrimRight(upper, ". ") == markerUnrelated {
		return Verdict{}, nil
	}
	if !strings.HasPrefix(upper, markerRelevant) {
		return Verdict{}, fmt.Errorf("%w: unexpected prefix", ErrMalformedVerdict)
	}
	if strings.Contains(upper, markerUnrelated) {
		return Verdict{}, fmt.Errorf("%w: both markers present", ErrMalformedVerdict)
	}

	rest := strings.TrimSpace(trimmed[len(markerRelevant):])
	if rest == "" {
		return Verdict{}, fmt.Errorf("%w: empty justification", ErrMalformedVerdict)
	}
	out := Verdict{Relevant: true, Rationale: rest}
	if m := criteriaPattern.FindStringSubmatch(rest); m != nil {
		criteria, err := parseCriteria(m[1])
		if err != nil {
			return Verdict{}, err
		}
		out.Criteria = criteria
		out.Rationale = strings.TrimSpace(m[2])
	}
	return out, nil
}

func parseCriteria(list string) ([]int, error) {
	var out []int
	seen := map[int]bool{}
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 || n > criteriaCount {
			return nil, fmt.Errorf("%w: bad criterion %q", ErrMalformedVerdict, field)
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out, nil
}
