package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/swdee/go-posewatch/landmark"
)

// Store keeps recorded sequences as CSV files in a directory.  Files are
// named data_<label>_<n>.csv and the merge of a label data_<label>_merged.csv.
type Store struct {
	dir string
}

// NewStore returns a Store over dir, creating it when missing
func NewStore(dir string) (*Store, error) {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating data directory: %w", err)
	}

	return &Store{dir: dir}, nil
}

// Dir returns the store directory
func (s *Store) Dir() string {
	return s.dir
}

var numbered = regexp.MustCompile(`^data_(.+)_(\d+)\.csv$`)

// MergedName returns the file name of the merged sequences of a label
func MergedName(label string) string {
	return fmt.Sprintf("data_%s_merged.csv", label)
}

// Save writes the rows as the next numbered file of the label and returns
// its path
func (s *Store) Save(label string, rows []landmark.Vector) (string, error) {

	if len(rows) == 0 {
		return "", fmt.Errorf("no rows to save for %s", label)
	}

	n, err := s.next(label)

	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("data_%s_%d.csv", label, n))

	return path, WriteCSV(path, vectorsToDense(rows))
}

// SaveMatrix writes a sequence held as a matrix as the next numbered file of
// the label
func (s *Store) SaveMatrix(label string, m *mat.Dense) (string, error) {

	n, err := s.next(label)

	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("data_%s_%d.csv", label, n))

	return path, WriteCSV(path, m)
}

// next returns one past the highest number used by the label so a deleted
// file never causes an overwrite
func (s *Store) next(label string) (int, error) {

	files, err := s.Numbered(label)

	if err != nil {
		return 0, err
	}

	max := 0

	for _, f := range files {
		m := numbered.FindStringSubmatch(f)
		n, _ := strconv.Atoi(m[2])

		if n > max {
			max = n
		}
	}

	return max + 1, nil
}

// List returns the CSV files in the store in name order
func (s *Store) List() ([]string, error) {

	entries, err := os.ReadDir(s.dir)

	if err != nil {
		return nil, fmt.Errorf("error reading data directory: %w", err)
	}

	var files []string

	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".csv") {
			files = append(files, e.Name())
		}
	}

	sort.Strings(files)

	return files, nil
}

// Numbered returns the numbered recordings of the label in name order
func (s *Store) Numbered(label string) ([]string, error) {

	files, err := s.List()

	if err != nil {
		return nil, err
	}

	var out []string

	for _, f := range files {
		m := numbered.FindStringSubmatch(f)

		if m != nil && m[1] == label {
			out = append(out, f)
		}
	}

	return out, nil
}

// Delete removes a file from the store
func (s *Store) Delete(name string) error {

	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid file name %q", name)
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("error deleting %s: %w", name, err)
	}

	return nil
}

// Load reads a file of the store
func (s *Store) Load(name string) (*mat.Dense, error) {
	return ReadCSV(filepath.Join(s.dir, name))
}

// Merge concatenates the numbered recordings of a label into the merged file
// and returns its path and row count
func (s *Store) Merge(label string) (string, int, error) {

	files, err := s.Numbered(label)

	if err != nil {
		return "", 0, err
	}

	if len(files) == 0 {
		return "", 0, fmt.Errorf("no recordings found for %s", label)
	}

	var parts []*mat.Dense
	cols := 0
	rows := 0

	for _, f := range files {
		m, err := s.Load(f)

		if err != nil {
			return "", 0, err
		}

		r, c := m.Dims()

		if cols != 0 && c != cols {
			return "", 0, fmt.Errorf("%s has %d columns, expected %d", f, c, cols)
		}

		cols = c
		rows += r
		parts = append(parts, m)
	}

	merged := mat.NewDense(rows, cols, nil)
	at := 0

	for _, m := range parts {
		r, _ := m.Dims()
		merged.Slice(at, at+r, 0, cols).(*mat.Dense).Copy(m)
		at += r
	}

	path := filepath.Join(s.dir, MergedName(label))

	return path, rows, WriteCSV(path, merged)
}

// WriteCSV writes the matrix with a header row of column indices
func WriteCSV(path string, m *mat.Dense) error {

	f, err := os.Create(path)

	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}

	defer f.Close()

	w := csv.NewWriter(f)
	rows, cols := m.Dims()
	record := make([]string, cols)

	for c := range record {
		record[c] = strconv.Itoa(c)
	}

	if err := w.Write(record); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			record[c] = strconv.FormatFloat(m.At(r, c), 'g', -1, 32)
		}

		if err := w.Write(record); err != nil {
			return fmt.Errorf("error writing row %d: %w", r, err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}

	return f.Close()
}

// ReadCSV reads a sequence file.  A header row of column indices is skipped
// so files written with or without one are accepted.
func ReadCSV(path string) (*mat.Dense, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}

	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()

	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	if len(records) > 0 && isHeader(records[0]) {
		records = records[1:]
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%s has no rows", path)
	}

	cols := len(records[0])
	data := make([]float64, 0, len(records)*cols)

	for i, rec := range records {
		for _, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)

			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", path, i, err)
			}

			data = append(data, v)
		}
	}

	return mat.NewDense(len(records), cols, data), nil
}

// isHeader returns true when the record is the column indices 0..n-1
func isHeader(rec []string) bool {

	for i, field := range rec {
		if field != strconv.Itoa(i) {
			return false
		}
	}

	return true
}

func vectorsToDense(rows []landmark.Vector) *mat.Dense {

	m := mat.NewDense(len(rows), len(rows[0]), nil)

	for r, v := range rows {
		for c := 0; c < len(rows[0]) && c < len(v); c++ {
			m.Set(r, c, float64(v[c]))
		}
	}

	return m
}
