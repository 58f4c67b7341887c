package core

// Field identifies one of the five logical columns of a review row.
type Field string

const (
	FieldInput          Field = "input"
	FieldExpectedOutput Field = "expectedOutput"
	FieldBotOutput      Field = "botOutput"
	FieldNotes          Field = "notes"
	FieldBetterAnswer   Field = "betterAnswer"
)

// Editable reports whether reviewers may change the field.
// Only notes and betterAnswer are editable.
func (f Field) Editable() bool {
	return f == FieldNotes || f == FieldBetterAnswer
}

// Valid reports whether f names a known column.
func (f Field) Valid() bool {
	switch f {
	case FieldInput, FieldExpectedOutput, FieldBotOutput, FieldNotes, FieldBetterAnswer:
		return true
	}
	return false
}

// Column pairs a field with its display label.
type Column struct {
	Field Field
	Label string
}

// Columns is the fixed grid layout, in display order.
var Columns = []Column{
	{Field: FieldInput, Label: "Input"},
	{Field: FieldExpectedOutput, Label: "Expected Output"},
	{Field: FieldBotOutput, Label: "Bot Output"},
	{Field: FieldNotes, Label: "Notes"},
	{Field: FieldBetterAnswer, Label: "Better Answer"},
}

// Required CSV header names. Matching is exact and case-sensitive.
const (
	HeaderInput          = "Input"
	HeaderExpectedOutput = "Expected Output"
)

// Row is one input/expected-output pair plus its annotation fields.
type Row struct {
	ID             int    `json:"id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	BotOutput      string `json:"botOutput"`
	Notes          string `json:"notes"`
	BetterAnswer   string `json:"betterAnswer"`
}

// Value returns the row's value for a field. Unknown fields yield "".
func (r Row) Value(f Field) string {
	switch f {
	case FieldInput:
		return r.Input
	case FieldExpectedOutput:
		return r.ExpectedOutput
	case FieldBotOutput:
		return r.BotOutput
	case FieldNotes:
		return r.Notes
	case FieldBetterAnswer:
		return r.BetterAnswer
	}
	return ""
}

// with returns a copy of r with f set to value.
func (r Row) with(f Field, value string) Row {
	switch f {
	case FieldInput:
		r.Input = value
	case FieldExpectedOutput:
		r.ExpectedOutput = value
	case FieldBotOutput:
		r.BotOutput = value
	case FieldNotes:
		r.Notes = value
	case FieldBetterAnswer:
		r.BetterAnswer = value
	}
	return r
}

// Dataset is an ordered snapshot of rows in CSV order.
// Treat it as immutable: the With* methods return fresh copies.
type Dataset []Row

// Len returns the number of rows.
func (d Dataset) Len() int {
	return len(d)
}

// Row returns the first row with the given id.
func (d Dataset) Row(id int) (Row, bool) {
	for _, r := range d {
		if r.ID == id {
			return r, true
		}
	}
	return Row{}, false
}

// WithField returns a new dataset where every row whose ID equals rowID has
// f replaced by value. If no row matches the result is an equivalent copy.
func (d Dataset) WithField(rowID int, f Field, value string) Dataset {
	out := make(Dataset, len(d))
	for i, r := range d {
		if r.ID == rowID {
			r = r.with(f, value)
		}
		out[i] = r
	}
	return out
}

// WithBotOutputs returns a new dataset with BotOutput filled for every row
// whose id is a key of outputs. Ids with no matching row are ignored.
func (d Dataset) WithBotOutputs(outputs map[int]string) Dataset {
	out := make(Dataset, len(d))
	for i, r := range d {
		if v, ok := outputs[r.ID]; ok {
			r.BotOutput = v
		}
		out[i] = r
	}
	return out
}

// Equal reports whether both datasets hold the same rows in the same order.
func (d Dataset) Equal(other Dataset) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if d[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that shares no backing array with d.
func (d Dataset) Clone() Dataset {
	if d == nil {
		return nil
	}
	out := make(Dataset, len(d))
	copy(out, d)
	return out
}
