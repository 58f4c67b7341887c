package core

import "fmt"

// Cursor is the transient edit state of a Table: either Idle or Editing.
type Cursor interface {
	isCursor()
}

// Idle means no cell is being edited.
type Idle struct{}

// Editing identifies the one cell being edited and its unsaved draft.
// Field is always editable.
type Editing struct {
	RowID int
	Field Field
	Draft string
}

func (Idle) isCursor()    {}
func (Editing) isCursor() {}

// Cell is what a renderer needs to display one grid cell.
type Cell struct {
	RowID    int
	Field    Field
	Value    string
	Editable bool
	Editing  bool   // Render as a text area seeded with Draft
	Draft    string // Only meaningful when Editing
}

// Table is the editable table model. It holds the current dataset and at
// most one in-progress cell edit. It is not safe for concurrent use.
type Table struct {
	data         Dataset
	cursor       Cursor
	onDataUpdate func(Dataset)
}

// NewTable creates a table over ds. onDataUpdate, if non-nil, receives the
// full updated dataset exactly once per committed edit.
func NewTable(ds Dataset, onDataUpdate func(Dataset)) *Table {
	return &Table{
		data:         ds,
		cursor:       Idle{},
		onDataUpdate: onDataUpdate,
	}
}

// Dataset returns the current snapshot.
func (t *Table) Dataset() Dataset {
	return t.data
}

// Cursor returns the current edit state.
func (t *Table) Cursor() Cursor {
	return t.cursor
}

// SetDataset replaces the dataset wholesale, as after an import. Any
// in-progress edit refers to the old rows and is dropped.
func (t *Table) SetDataset(ds Dataset) {
	t.data = ds
	t.cursor = Idle{}
}

// BeginEdit puts the cell (rowID, field) into edit mode seeded with
// currentValue. A draft for a different cell is discarded without commit.
func (t *Table) BeginEdit(rowID int, field Field, currentValue string) error {
	if !field.Editable() {
		return fmt.Errorf("%w: %s", ErrNotEditable, field)
	}
	t.cursor = Editing{RowID: rowID, Field: field, Draft: currentValue}
	return nil
}

// UpdateDraft replaces the draft value. Any text, including "", is accepted.
func (t *Table) UpdateDraft(value string) error {
	ed, ok := t.cursor.(Editing)
	if !ok {
		return ErrNotEditing
	}
	ed.Draft = value
	t.cursor = ed
	return nil
}

// CommitEdit writes the draft into a new dataset, hands it to onDataUpdate
// and clears the cursor. Rows are matched by id; when none matches the new
// dataset is an equivalent copy and is still handed over.
func (t *Table) CommitEdit() error {
	ed, ok := t.cursor.(Editing)
	if !ok {
		return ErrNotEditing
	}

	t.data = t.data.WithField(ed.RowID, ed.Field, ed.Draft)
	t.cursor = Idle{}

	if t.onDataUpdate != nil {
		t.onDataUpdate(t.data)
	}
	return nil
}

// Click handles activation of a cell. It returns true if an edit began.
// Read-only cells, unknown rows and the cell already being edited are no-ops.
func (t *Table) Click(rowID int, field Field) bool {
	if !field.Editable() || t.isEditing(rowID, field) {
		return false
	}
	row, ok := t.data.Row(rowID)
	if !ok {
		return false
	}
	return t.BeginEdit(rowID, field, row.Value(field)) == nil
}

// Cell describes how to render field of row given the current cursor.
func (t *Table) Cell(row Row, field Field) Cell {
	c := Cell{
		RowID:    row.ID,
		Field:    field,
		Value:    row.Value(field),
		Editable: field.Editable(),
	}
	if ed, ok := t.cursor.(Editing); ok && c.Editable && ed.RowID == row.ID && ed.Field == field {
		c.Editing = true
		c.Draft = ed.Draft
	}
	return c
}

// Grid returns every cell of the table in row order, one slice per row,
// with cells ordered as Columns.
func (t *Table) Grid() [][]Cell {
	grid := make([][]Cell, len(t.data))
	for i, row := range t.data {
		cells := make([]Cell, len(Columns))
		for j, col := range Columns {
			cells[j] = t.Cell(row, col.Field)
		}
		grid[i] = cells
	}
	return grid
}

func (t *Table) isEditing(rowID int, field Field) bool {
	ed, ok := t.cursor.(Editing)
	return ok && ed.RowID == rowID && ed.Field == field
}
