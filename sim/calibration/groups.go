package calibration

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/stream-select/dmgt-sim/sim"
)

// Diagnostic records a rarity group whose calibration was skipped.
// The group then falls back to uncalibrated scores for the round.
type Diagnostic struct {
	Round   int    `json:"round"`
	Group   string `json:"group"` // sim.GroupRare or sim.GroupCommon
	Samples int    `json:"samples"`
	Reason  string `json:"reason"`
}

// TopScores returns the classifier's top-class probability for each item and
// whether the top class matches the item's label.
func TopScores(clf sim.Classifier, items []sim.StreamItem) (scores []float64, correct []bool) {
	scores = make([]float64, len(items))
	correct = make([]bool, len(items))
	for i, it := range items {
		probs := clf.Predict(it.Features)
		pred := floats.MaxIdx(probs)
		scores[i] = probs[pred]
		correct[i] = pred == it.Label
	}
	return scores, correct
}

// Fit fits an isotonic calibration model for clf on validation items.
func Fit(clf sim.Classifier, items []sim.StreamItem) (*Isotonic, error) {
	scores, correct := TopScores(clf, items)
	return FitIsotonic(scores, correct)
}

// FitGroups fits one model per rarity group from validation items whose true
// label is rare (rareVal) or common (commonVal). A group without samples is
// left nil and reported as a Diagnostic; it is never an error.
func FitGroups(round int, clf sim.Classifier, rareVal, commonVal []sim.StreamItem) (*sim.CalibrationSet, []Diagnostic, error) {
	set := &sim.CalibrationSet{}
	var diags []Diagnostic

	for _, g := range []struct {
		name  string
		items []sim.StreamItem
		dst   *sim.CalibrationModel
	}{
		{sim.GroupRare, rareVal, &set.Rare},
		{sim.GroupCommon, commonVal, &set.Common},
	} {
		if len(g.items) == 0 {
			logrus.Warnf("[round %d] calibration for %s group skipped: no validation samples", round, g.name)
			diags = append(diags, Diagnostic{Round: round, Group: g.name, Reason: "no validation samples"})
			continue
		}
		model, err := Fit(clf, g.items)
		if err != nil {
			return nil, diags, err
		}
		*g.dst = model
		logrus.Debugf("[round %d] calibration for %s group fitted on %d samples", round, g.name, len(g.items))
	}
	return set, diags, nil
}
