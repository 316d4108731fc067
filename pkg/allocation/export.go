package allocation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/exp/slices"
)

// ResultDir is the sub-directory WriteMachineCSV writes into.
const ResultDir = "vm_alloc_result"

// WriteCSV writes candidates as n,m_conf,m_extra,gain rows sorted by
// descending gain. Equal gains keep their input order.
func WriteCSV(w io.Writer, candidates []Candidate) error {
	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b Candidate) int {
		switch {
		case a.Gain > b.Gain:
			return -1
		case a.Gain < b.Gain:
			return 1
		}
		return 0
	})

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"n", "m_conf", "m_extra", "gain"}); err != nil {
		return err
	}
	for _, c := range sorted {
		row := []string{
			strconv.Itoa(c.VMs),
			strconv.Itoa(c.MemConf),
			strconv.FormatFloat(c.MemExtra, 'f', 2, 64),
			strconv.FormatFloat(c.Gain, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// MachineCSVPath returns <dir>/vm_alloc_result/pm_<pm>.csv.
func MachineCSVPath(dir string, pm int) string {
	return filepath.Join(dir, ResultDir, fmt.Sprintf("pm_%d.csv", pm))
}

// WriteMachineCSV writes the candidates of machine pm under dir and
// returns the file path.
func WriteMachineCSV(dir string, pm int, candidates []Candidate) (string, error) {
	path := MachineCSVPath(dir, pm)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create result directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteCSV(f, candidates); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, f.Close()
}
