// Package dataset loads the paired source/target measurements that a LUT is
// fitted to.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/jszwec/csvutil"
	"github.com/sirupsen/logrus"
)

// Width is the number of values per dataset row.
const Width = 3

// Table is a dense row-major table of numbers.
type Table struct {
	Data []float64
	Rows int
	Cols int
}

// NewTable returns a zero filled table.
func NewTable(rows, cols int) Table {
	return Table{
		Data: make([]float64, rows*cols),
		Rows: rows,
		Cols: cols,
	}
}

// Row returns row i. The slice aliases the table.
func (t Table) Row(i int) []float64 {
	return t.Data[i*t.Cols : (i+1)*t.Cols]
}

// At returns the value at row i, column j.
func (t Table) At(i, j int) float64 {
	return t.Data[i*t.Cols+j]
}

// HStack concatenates two tables column wise.
func HStack(a, b Table) Table {
	if a.Rows != b.Rows {
		panic(fmt.Sprintf("dataset: hstack of %d and %d rows", a.Rows, b.Rows))
	}
	res := NewTable(a.Rows, a.Cols+b.Cols)
	for i := 0; i < a.Rows; i++ {
		row := res.Row(i)
		copy(row, a.Row(i))
		copy(row[a.Cols:], b.Row(i))
	}
	return res
}

// Triplets returns the columns [from, from+3) of every row.
func (t Table) Triplets(from int) [][3]float64 {
	res := make([][3]float64, t.Rows)
	for i := range res {
		copy(res[i][:], t.Row(i)[from:from+3])
	}
	return res
}

// Load reads the source and target datasets and returns their correspondence
// table: one row (sx, sy, sz, tx, ty, tz) per pair of input rows.
func Load(sourcePath, targetPath string, delimiter rune) (Table, error) {
	source, err := readFile("source", sourcePath, delimiter)
	if err != nil {
		return Table{}, err
	}
	target, err := readFile("target", targetPath, delimiter)
	if err != nil {
		return Table{}, err
	}

	if source.rows == 0 {
		return Table{}, &EmptyDatasetError{Role: "source", Path: sourcePath}
	}
	if target.rows == 0 {
		return Table{}, &EmptyDatasetError{Role: "target", Path: targetPath}
	}
	if source.rows != target.rows {
		return Table{}, &RowCountMismatchError{SourceRows: source.rows, TargetRows: target.rows}
	}
	if source.shape != nil {
		return Table{}, source.shape
	}
	if target.shape != nil {
		return Table{}, target.shape
	}

	logrus.Debugf("loaded %s correspondences from %s and %s",
		humanize.Comma(int64(source.rows)), sourcePath, targetPath)
	return HStack(source.table(), target.table()), nil
}

// ReadFile reads a single dataset of triplets.
func ReadFile(path string, delimiter rune) (Table, error) {
	p, err := readFile("dataset", path, delimiter)
	if err != nil {
		return Table{}, err
	}
	if p.shape != nil {
		return Table{}, p.shape
	}
	return p.table(), nil
}

type triplet struct {
	X float64 `csv:"x"`
	Y float64 `csv:"y"`
	Z float64 `csv:"z"`
}

type parsed struct {
	data  []float64
	rows  int
	shape *ColumnShapeError // first row that is not a triplet
}

func (p *parsed) table() Table {
	return Table{Data: p.data, Rows: p.rows, Cols: Width}
}

// readFile counts every row, so that a row count mismatch can be reported
// ahead of a shape problem.
func readFile(role, path string, delimiter rune) (*parsed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	r := newRecordReader(f, delimiter)
	dec, err := csvutil.NewDecoder(r, "x", "y", "z")
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	p := &parsed{}
	for {
		var t triplet
		err := dec.Decode(&t)
		if err == io.EOF {
			break
		}
		switch {
		case errors.Is(err, csvutil.ErrFieldCount):
			if p.shape == nil {
				p.shape = &ColumnShapeError{Role: role, Path: path, Line: r.line, Cols: len(dec.Record())}
			}
		case err != nil:
			return nil, &ReadError{Path: path, Line: r.line, Err: err}
		default:
			p.data = append(p.data, t.X, t.Y, t.Z)
		}
		p.rows++
	}
	return p, nil
}

// recordReader adapts encoding/csv to the dataset conventions: leading
// blanks are ignored and, for white space delimiters, so are trailing ones.
type recordReader struct {
	r     *csv.Reader
	blank bool
	line  int
}

func newRecordReader(in io.Reader, delimiter rune) *recordReader {
	r := csv.NewReader(in)
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.ReuseRecord = true
	return &recordReader{r: r, blank: unicode.IsSpace(delimiter)}
}

func (rr *recordReader) Read() ([]string, error) {
	for {
		rec, err := rr.r.Read()
		if err != nil {
			return nil, err
		}
		rr.line, _ = rr.r.FieldPos(0)
		if !rr.blank {
			return rec, nil
		}
		for len(rec) > 0 && rec[len(rec)-1] == "" {
			rec = rec[:len(rec)-1]
		}
		if len(rec) > 0 {
			return rec, nil
		}
	}
}
