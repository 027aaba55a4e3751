package ranking

// Label is an anonymized, run-stable alias for a backend's response
// ("Response A", "Response B", ...). Labels are assigned once per run, in
// response declaration order, and peer evaluators only ever see labels, never
// backend identities.
type Label string

const labelPrefix = "Response "

// LabelFor returns the canonical label for the i-th response (0-indexed).
// Indexes beyond 25 roll over to double letters ("Response AA") so large
// councils still get distinct labels.
func LabelFor(i int) Label {
	return Label(labelPrefix + letters(i))
}

// Labels returns the first n canonical labels in order.
func Labels(n int) []Label {
	out := make([]Label, n)
	for i := range out {
		out[i] = LabelFor(i)
	}
	return out
}

// Letter returns the letter portion of the label ("A" for "Response A"),
// or the empty string if the label does not carry the expected prefix.
func (l Label) Letter() string {
	if len(l) <= len(labelPrefix) || string(l[:len(labelPrefix)]) != labelPrefix {
		return ""
	}
	return string(l[len(labelPrefix):])
}

// letters converts an index to an A..Z, AA..ZZ, ... sequence (bijective
// base-26, the spreadsheet column scheme).
func letters(i int) string {
	i++
	var buf []byte
	for i > 0 {
		i--
		buf = append([]byte{byte('A' + i%26)}, buf...)
		i /= 26
	}
	return string(buf)
}
