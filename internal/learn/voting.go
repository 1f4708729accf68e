package learn

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Member is a named, fitted classifier inside a SoftVoting ensemble.
type Member struct {
	Name  string
	Model Classifier
}

// SoftVoting averages the class probabilities of already fitted members.
// Fit refits every member on the same data.
type SoftVoting struct {
	Members []Member
}

// NewSoftVoting combines fitted members.
func NewSoftVoting(members ...Member) *SoftVoting {
	return &SoftVoting{Members: members}
}

// Fit refits every member.
func (v *SoftVoting) Fit(X *mat.Dense, y []int) error {
	if len(v.Members) == 0 {
		return fmt.Errorf("voting ensemble has no members")
	}
	for _, m := range v.Members {
		if err := m.Model.Fit(X, y); err != nil {
			return fmt.Errorf("%s: %w", m.Name, err)
		}
	}
	return nil
}

// PredictProba is the unweighted mean of the members' probabilities.
func (v *SoftVoting) PredictProba(X *mat.Dense) (*mat.Dense, error) {
	if len(v.Members) == 0 {
		return nil, ErrNotFitted
	}
	var sum *mat.Dense
	for _, m := range v.Members {
		p, err := m.Model.PredictProba(X)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name, err)
		}
		if sum == nil {
			sum = mat.DenseCopyOf(p)
			continue
		}
		sr, sc := sum.Dims()
		pr, pc := p.Dims()
		if sr != pr || sc != pc {
			return nil, fmt.Errorf("%w: %s returned %dx%d probabilities, want %dx%d", ErrShape, m.Name, pr, pc, sr, sc)
		}
		sum.Add(sum, p)
	}
	sum.Scale(1/float64(len(v.Members)), sum)
	return sum, nil
}

// Predict returns the arg-max of the averaged probabilities; ties go to the
// lowest class index.
func (v *SoftVoting) Predict(X *mat.Dense) ([]int, error) {
	p, err := v.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return ArgMaxRows(p), nil
}

// Member returns the named member.
func (v *SoftVoting) Member(name string) (Classifier, bool) {
	for _, m := range v.Members {
		if m.Name == name {
			return m.Model, true
		}
	}
	return nil, false
}

// Classifier kinds used in serialized envelopes.
const (
	KindRandomForest     = "random_forest"
	KindGradientBoosting = "gradient_boosting"
	KindSVC              = "svc"
	KindMLP              = "mlp"
)

type envelope struct {
	Name  string          `json:"name"`
	Kind  string          `json:"kind"`
	Model json.RawMessage `json:"model"`
}

// KindOf names the concrete classifier type.
func KindOf(c Classifier) (string, error) {
	switch c.(type) {
	case *RandomForest:
		return KindRandomForest, nil
	case *GradientBoosting:
		return KindGradientBoosting, nil
	case *SVC:
		return KindSVC, nil
	case *MLP:
		return KindMLP, nil
	}
	return "", fmt.Errorf("unsupported classifier %T", c)
}

// MarshalJSON writes members as kind-tagged envelopes.
func (v *SoftVoting) MarshalJSON() ([]byte, error) {
	out := make([]envelope, len(v.Members))
	for i, m := range v.Members {
		kind, err := KindOf(m.Model)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(m.Model)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", m.Name, err)
		}
		out[i] = envelope{Name: m.Name, Kind: kind, Model: raw}
	}
	return json.Marshal(struct {
		Members []envelope `json:"members"`
	}{out})
}

// UnmarshalJSON restores members from kind-tagged envelopes.
func (v *SoftVoting) UnmarshalJSON(data []byte) error {
	var in struct {
		Members []envelope `json:"members"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	v.Members = make([]Member, len(in.Members))
	for i, e := range in.Members {
		var model Classifier
		switch e.Kind {
		case KindRandomForest:
			model = &RandomForest{}
		case KindGradientBoosting:
			model = &GradientBoosting{}
		case KindSVC:
			model = &SVC{}
		case KindMLP:
			model = &MLP{}
		default:
			return fmt.Errorf("member %s: unknown kind %q", e.Name, e.Kind)
		}
		if err := json.Unmarshal(e.Model, model); err != nil {
			return fmt.Errorf("decode %s: %w", e.Name, err)
		}
		v.Members[i] = Member{Name: e.Name, Model: model}
	}
	return nil
}
