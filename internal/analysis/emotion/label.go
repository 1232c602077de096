package emotion

import (
	"strings"

	"github.com/elliotchance/pie/v2"
)

// Label 表示一个情绪标签。规范集合只有七个值，其余取值来自未映射的检测器标签，按不透明字符串处理。
type Label string

const (
	Happy     Label = "happy"
	Sad       Label = "sad"
	Angry     Label = "angry"
	Surprised Label = "surprised"
	Neutral   Label = "neutral"
	Fearful   Label = "fearful"
	Disgusted Label = "disgusted"

	// Unknown is what enumeration-constrained consumers see for a non-canonical label.
	Unknown Label = "unknown"
)

var canonical = []Label{Happy, Sad, Angry, Surprised, Neutral, Fearful, Disgusted}

// opposites drives mood inversion: the register a reply should take for a detected emotion.
var opposites = map[Label]string{
	Happy:     "gloomy and deflated",
	Sad:       "relentlessly cheerful",
	Angry:     "serene and unbothered",
	Surprised: "thoroughly bored and unimpressed",
	Neutral:   "wildly dramatic and over-excited",
	Fearful:   "recklessly fearless",
	Disgusted: "utterly delighted",
}

// All returns the closed label set in a stable order.
func All() []Label {
	return append([]Label(nil), canonical...)
}

// Canonical reports whether l belongs to the closed seven-value set.
func (l Label) Canonical() bool {
	return pie.Contains(canonical, l)
}

// OrUnknown collapses any non-canonical label to Unknown.
func (l Label) OrUnknown() Label {
	if l.Canonical() {
		return l
	}
	return Unknown
}

// Opposite describes the emotional register opposite to l. Non-canonical labels get a
// generic instruction to contradict whatever mood the text itself conveys.
func (l Label) Opposite() string {
	if register, ok := opposites[l]; ok {
		return register
	}
	return "the opposite of whatever mood the text itself conveys"
}

// Parse normalizes raw text into a Label. ok is false when the result is outside the closed set.
func Parse(raw string) (Label, bool) {
	label := Label(strings.ToLower(strings.TrimSpace(raw)))
	return label, label.Canonical()
}
