package model

// Encoder maps categorical machine-type values to the numeric codes the
// classifier was trained with. The vocabulary is fixed and closed — it is
// part of the frozen artifact, fitted offline alongside the model.
type Encoder struct {
	classes []string
	index   map[string]int
}

// NewEncoder builds an encoder over the given ordered class list. Order
// matters: the numeric code of a class is its position in the list, exactly
// as the offline trainer recorded it.
func NewEncoder(classes []string) *Encoder {
	idx := make(map[string]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return &Encoder{classes: classes, index: idx}
}

// Encode returns the numeric code for v, or false if v is outside the
// trained vocabulary.
func (e *Encoder) Encode(v string) (float64, bool) {
	i, ok := e.index[v]
	if !ok {
		return 0, false
	}
	return float64(i), true
}

// Decode returns the class for the given code, or false if the code does not
// correspond to any class. Decode(Encode(v)) round-trips for every v in the
// vocabulary.
func (e *Encoder) Decode(code float64) (string, bool) {
	i := int(code)
	if i < 0 || i >= len(e.classes) || float64(i) != code {
		return "", false
	}
	return e.classes[i], true
}

// Classes returns the ordered vocabulary.
func (e *Encoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}
