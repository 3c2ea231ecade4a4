package ddl

import "layoffs/internal/record"

// ColumnDef describes a single column in a table definition. Type is a
// logical kind (record.KindText, record.KindInt, record.KindDate); each
// backend maps it onto its own SQL type at render time.
type ColumnDef struct {
	Name     string
	Type     string
	Nullable bool
}

// TableDef holds the table name (optionally schema-qualified, e.g.
// "public.layoffs") and an ordered list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// ColumnNames returns the column names of t in order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// RawLayoffs is the layout of the source table as delivered by the loader:
// two integer columns, everything else text (the date included).
func RawLayoffs(fqn string) TableDef {
	return layoffs(fqn, false, false)
}

// CleanedLayoffs is the layout of the working table after the pipeline:
// date re-typed when dateTyped is set, and the transient rank column kept
// only when withRowNum is set (i.e. the pruner never ran).
func CleanedLayoffs(fqn string, dateTyped, withRowNum bool) TableDef {
	return layoffs(fqn, dateTyped, withRowNum)
}

func layoffs(fqn string, dateTyped, withRowNum bool) TableDef {
	cols := make([]ColumnDef, 0, len(record.Columns)+1)
	for _, name := range record.Columns {
		kind := record.Kind(name)
		if name == record.ColDate && dateTyped {
			kind = record.KindDate
		}
		cols = append(cols, ColumnDef{Name: name, Type: kind, Nullable: true})
	}
	if withRowNum {
		cols = append(cols, ColumnDef{Name: record.ColRowNum, Type: record.KindInt, Nullable: true})
	}
	return TableDef{FQN: fqn, Columns: cols}
}
