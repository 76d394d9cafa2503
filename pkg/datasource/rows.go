package datasource

// Row is one fetched record. It supports both positional and named access,
// regardless of which backend produced it.
type Row struct {
	columns []string
	values  []any
}

// Rows is the result of a fetch.
type Rows []Row

// NewRow builds a row from parallel column and value slices.
func NewRow(columns []string, values []any) Row {
	return Row{columns: columns, values: values}
}

// Len returns the number of columns in the row.
func (r Row) Len() int {
	return len(r.values)
}

// Index returns the value at the given position.
func (r Row) Index(i int) any {
	return r.values[i]
}

// Get returns the value of the named column.
func (r Row) Get(name string) (any, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// Columns returns the column names in order.
func (r Row) Columns() []string {
	return r.columns
}

// Values returns the values in column order.
func (r Row) Values() []any {
	return r.values
}
