package insight

import "github.com/abelbrown/newslens/internal/normalize"

// Stance score bounds. Negative leans progressive, positive conservative.
const (
	MinStance = -10
	MaxStance = 10
)

// Side is one article's position in a comparison.
type Side struct {
	StanceLabel string `json:"stance_label"`
	StanceScore int    `json:"stance_score"`
	Summary     string `json:"summary"`
}

// Comparison is the two-article result.
type Comparison struct {
	CoreDifference string   `json:"core_difference"`
	SideA          Side     `json:"side_a"`
	SideB          Side     `json:"side_b"`
	KeyPoints      []string `json:"key_points"`
}

// ParseComparison reduces raw model text to a Comparison, or nil when no
// JSON object can be salvaged.
func ParseComparison(raw string) *Comparison {
	f, ok := normalize.Extract(raw)
	if !ok {
		return nil
	}
	return ComparisonFromFields(f)
}

// ComparisonFromFields applies defaults and clamping to an extracted object.
func ComparisonFromFields(f normalize.Fields) *Comparison {
	c := &Comparison{KeyPoints: []string{}}
	c.CoreDifference, _ = f.String("core_difference")
	c.SideA = sideFrom(f, "side_a")
	c.SideB = sideFrom(f, "side_b")
	if kp, ok := f.Strings("key_points"); ok {
		c.KeyPoints = kp
	}
	return c
}

// JSON serializes the comparison in the shape ParseComparison reads.
func (c *Comparison) JSON() string {
	out := *c
	if out.KeyPoints == nil {
		out.KeyPoints = []string{}
	}
	return normalize.Marshal(&out)
}

func sideFrom(f normalize.Fields, key string) Side {
	obj, ok := f.Object(key)
	if !ok {
		return Side{}
	}
	var s Side
	s.StanceLabel, _ = obj.String("stance_label")
	s.Summary, _ = obj.String("summary")
	if v, ok := obj.Int("stance_score"); ok {
		s.StanceScore = normalize.Clamp(v, MinStance, MaxStance)
	}
	return s
}
