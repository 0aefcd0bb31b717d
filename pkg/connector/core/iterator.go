package core

import "context"

// SliceIterator iterates over rows already in memory.
type SliceIterator struct {
	rows []Row
	pos  int
}

// NewSliceIterator returns an iterator over rows
func NewSliceIterator(rows []Row) *SliceIterator {
	return &SliceIterator{rows: rows, pos: -1}
}

func (it *SliceIterator) Next(ctx context.Context) bool {
	if ctx.Err() != nil || it.pos+1 >= len(it.rows) {
		return false
	}
	it.pos++
	return true
}

func (it *SliceIterator) Row() Row {
	if it.pos < 0 || it.pos >= len(it.rows) {
		return nil
	}
	return it.rows[it.pos]
}

func (it *SliceIterator) Err() error   { return nil }
func (it *SliceIterator) Close() error { return nil }

// Collect drains it into a slice. The iterator is closed afterwards.
func Collect(ctx context.Context, it RowIterator) ([]Row, error) {
	defer it.Close()

	var rows []Row
	for it.Next(ctx) {
		rows = append(rows, it.Row())
	}
	return rows, it.Err()
}

// ForEach calls fn for each row until the iterator ends or fn returns an error.
func ForEach(ctx context.Context, it RowIterator, fn func(Row) error) error {
	defer it.Close()

	for it.Next(ctx) {
		if err := fn(it.Row()); err != nil {
			return err
		}
	}
	return it.Err()
}
