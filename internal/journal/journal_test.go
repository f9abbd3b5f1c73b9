package journal

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRecordList(t *testing.T) {
	j, err := Open(SQLite, filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	ctx := context.Background()
	base := time.UnixMilli(1700000000000)
	first := Run{
		Time:       base,
		Method:     "rbf",
		Format:     "cube",
		CubeSize:   33,
		Samples:    120,
		FitRMS:     0.01,
		FitMax:     sql.NullFloat64{Float64: 0.05, Valid: true},
		LUTRMS:     0.012,
		MeanDeltaE: 0.4,
		MaxDeltaE:  1.9,
		Output:     "output.cube",
		Elapsed:    1500 * time.Millisecond,
	}
	second := Run{
		Time:     base.Add(time.Minute),
		Method:   "mlp",
		Format:   "spi",
		CubeSize: 17,
		Samples:  120,
		FitRMS:   0.02,
		Output:   "output.spi3d",
	}
	for _, r := range []*Run{&first, &second} {
		if err := j.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
		if len(r.ID) != 36 {
			t.Errorf("Expected a uuid id, got %q", r.ID)
		}
	}

	runs, err := j.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Run{second, first}, runs); diff != "" {
		t.Errorf("listed runs mismatch (-want +got):\n%s", diff)
	}

	runs, err = j.List(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != second.ID {
		t.Errorf("Expected only the latest run, got %+v", runs)
	}
}

func TestInMemory(t *testing.T) {
	j, err := Open(SQLite, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	if err := j.Record(context.Background(), &Run{Method: "rbf", Format: "cube", CubeSize: 2}); err != nil {
		t.Fatal(err)
	}
	runs, err := j.List(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("Expected 1 run, got %d", len(runs))
	}
	if runs[0].FitMax.Valid {
		t.Error("Expected a NULL max error")
	}
}

func TestUnknownDriver(t *testing.T) {
	if _, err := Open("postgres", "x"); err == nil {
		t.Error("Expected error for unknown driver")
	}
}

func TestMySQLDSN(t *testing.T) {
	prompted := 0
	prompt := func() (string, error) {
		prompted++
		return "secret", nil
	}

	dsn, err := mysqlDSN("lut@tcp(db:3306)/grading", prompt)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(dsn, "lut:secret@tcp(db:3306)/grading") {
		t.Errorf("Expected the prompted password in the DSN, got %q", dsn)
	}

	dsn, err = mysqlDSN("lut:pw@tcp(db:3306)/grading", prompt)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(dsn, "lut:pw@") {
		t.Errorf("Expected the given password to be kept, got %q", dsn)
	}
	if prompted != 1 {
		t.Errorf("Expected 1 prompt, got %d", prompted)
	}

	if dsn, err := mysqlDSN("lut@tcp(db:3306)/grading", nil); err != nil || strings.Contains(dsn, ":@") {
		t.Errorf("Expected a DSN without password, got %q, %v", dsn, err)
	}

	failing := func() (string, error) { return "", errors.New("no tty") }
	if _, err := mysqlDSN("lut@tcp(db:3306)/grading", failing); err == nil {
		t.Error("Expected prompt error to be returned")
	}
	if _, err := mysqlDSN("not a dsn", nil); err == nil {
		t.Error("Expected error for malformed DSN")
	}
}
