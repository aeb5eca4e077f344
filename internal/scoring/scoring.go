package scoring

// DefaultPoints is awarded for a level outside the known set.
const DefaultPoints = 10

var levelPoints = map[string]int{
	"International": 100,
	"National":      75,
	"State":         50,
	"University":    30,
	"College":       20,
	"Department":    10,
}

// Points returns the score for an achievement level.
func Points(level string) int {
	if p, ok := levelPoints[level]; ok {
		return p
	}
	return DefaultPoints
}
