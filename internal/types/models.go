package types

// ResultRow is the accumulated score sheet for one scored call. Scores are
// keyed by question title; Titles remembers first-encountered order so the
// exported table keeps a stable column layout.
type ResultRow struct {
	FilenamePath string         `json:"filename_path"`
	Titles       []string       `json:"-"`
	Scores       map[string]int `json:"scores"`
}

func NewResultRow() ResultRow {
	return ResultRow{Scores: map[string]int{}}
}

// Add accumulates a score into the row. A title seen before sums with the
// existing value; a new title appends a column.
func (r *ResultRow) Add(title string, score int) {
	if _, ok := r.Scores[title]; ok {
		r.Scores[title] += score
		return
	}
	r.Titles = append(r.Titles, title)
	r.Scores[title] = score
}

// ResultTable is one batch run: one row per uploaded call, in upload order.
type ResultTable struct {
	Rows []ResultRow `json:"rows"`
}

func (t *ResultTable) Append(row ResultRow) {
	t.Rows = append(t.Rows, row)
}

// Columns returns the union of question titles across all rows, in
// first-encountered order.
func (t *ResultTable) Columns() []string {
	seen := map[string]bool{}
	var cols []string
	for _, row := range t.Rows {
		for _, title := range row.Titles {
			if !seen[title] {
				seen[title] = true
				cols = append(cols, title)
			}
		}
	}
	return cols
}
