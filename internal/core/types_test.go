package core

import "testing"

func sampleDataset() Dataset {
	return Dataset{
		{ID: 0, Input: "2+2", ExpectedOutput: "4"},
		{ID: 1, Input: "capital of France", ExpectedOutput: "Paris"},
	}
}

func TestFieldEditable(t *testing.T) {
	tests := []struct {
		field Field
		want  bool
	}{
		{FieldInput, false},
		{FieldExpectedOutput, false},
		{FieldBotOutput, false},
		{FieldNotes, true},
		{FieldBetterAnswer, true},
		{Field("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			if got := tt.field.Editable(); got != tt.want {
				t.Errorf("Editable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFieldValid(t *testing.T) {
	for _, col := range Columns {
		if !col.Field.Valid() {
			t.Errorf("%s should be valid", col.Field)
		}
	}
	if Field("Notes").Valid() {
		t.Error("field names are case-sensitive")
	}
}

func TestDatasetWithField(t *testing.T) {
	orig := sampleDataset()

	updated := orig.WithField(1, FieldNotes, "good")

	if updated[1].Notes != "good" {
		t.Errorf("updated[1].Notes = %q, want %q", updated[1].Notes, "good")
	}
	if orig[1].Notes != "" {
		t.Error("WithField mutated the original dataset")
	}
	if updated[0] != orig[0] {
		t.Errorf("untouched row changed: %+v", updated[0])
	}
}

func TestDatasetWithField_NoMatchIsCopy(t *testing.T) {
	orig := sampleDataset()

	updated := orig.WithField(99, FieldNotes, "x")

	if !updated.Equal(orig) {
		t.Errorf("WithField(no match) = %+v, want %+v", updated, orig)
	}
	updated[0].Notes = "changed"
	if orig[0].Notes != "" {
		t.Error("no-match result shares storage with the original")
	}
}

func TestDatasetWithField_DuplicateIDs(t *testing.T) {
	ds := Dataset{{ID: 3}, {ID: 3}, {ID: 4}}

	updated := ds.WithField(3, FieldBetterAnswer, "b")

	if updated[0].BetterAnswer != "b" || updated[1].BetterAnswer != "b" {
		t.Errorf("every row with the id should change: %+v", updated)
	}
	if updated[2].BetterAnswer != "" {
		t.Errorf("row 4 changed: %+v", updated[2])
	}
}

func TestDatasetWithBotOutputs(t *testing.T) {
	orig := sampleDataset()

	updated := orig.WithBotOutputs(map[int]string{1: "Paris.", 7: "ignored"})

	if updated[1].BotOutput != "Paris." {
		t.Errorf("updated[1].BotOutput = %q", updated[1].BotOutput)
	}
	if updated[0].BotOutput != "" {
		t.Errorf("updated[0].BotOutput = %q, want empty", updated[0].BotOutput)
	}
	if orig[1].BotOutput != "" {
		t.Error("WithBotOutputs mutated the original dataset")
	}
	if updated.Len() != orig.Len() {
		t.Errorf("Len() = %d, want %d", updated.Len(), orig.Len())
	}
}

func TestDatasetRow(t *testing.T) {
	ds := sampleDataset()

	r, ok := ds.Row(1)
	if !ok || r.ExpectedOutput != "Paris" {
		t.Errorf("Row(1) = %+v, %v", r, ok)
	}
	if _, ok := ds.Row(5); ok {
		t.Error("Row(5) found a row that does not exist")
	}
}

func TestRowValue(t *testing.T) {
	r := Row{ID: 1, Input: "i", ExpectedOutput: "e", BotOutput: "b", Notes: "n", BetterAnswer: "a"}

	want := map[Field]string{
		FieldInput:          "i",
		FieldExpectedOutput: "e",
		FieldBotOutput:      "b",
		FieldNotes:          "n",
		FieldBetterAnswer:   "a",
		Field("unknown"):    "",
	}
	for f, v := range want {
		if got := r.Value(f); got != v {
			t.Errorf("Value(%s) = %q, want %q", f, got, v)
		}
	}
}

func TestDatasetClone(t *testing.T) {
	if Dataset(nil).Clone() != nil {
		t.Error("Clone(nil) should be nil")
	}

	orig := sampleDataset()
	c := orig.Clone()
	c[0].Notes = "x"
	if orig[0].Notes != "" {
		t.Error("Clone shares storage")
	}
}
