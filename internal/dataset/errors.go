package dataset

import "fmt"

// ReadError is returned when a dataset file cannot be opened or contains a
// field that is not a number.
type ReadError struct {
	Path string
	Line int // 0 if the error is not tied to a line
	Err  error
}

func (e *ReadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("could not read DSV %q, line %d: %v (check that the file has real Nx3 contents)", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("could not read DSV %q: %v (check that the file exists and has real Nx3 contents)", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// EmptyDatasetError is returned for a dataset without any rows.
type EmptyDatasetError struct {
	Role string
	Path string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("no readable DSV content in %s %q", e.Role, e.Path)
}

// RowCountMismatchError is returned when source and target differ in length.
type RowCountMismatchError struct {
	SourceRows int
	TargetRows int
}

func (e *RowCountMismatchError) Error() string {
	return fmt.Sprintf("source and target do not have the same number of DSV rows (%d vs %d)", e.SourceRows, e.TargetRows)
}

// ColumnShapeError is returned for a dataset row that is not a triplet.
type ColumnShapeError struct {
	Role string
	Path string
	Line int
	Cols int
}

func (e *ColumnShapeError) Error() string {
	return fmt.Sprintf("%s %q contains non-triplet rows (line %d has %d fields); this may be because the delimiter is wrong",
		e.Role, e.Path, e.Line, e.Cols)
}
