package migrate

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"capturehub/backend/internal/db"
)

func TestRun_EmptyDSN(t *testing.T) {
	if err := Run("", Up, nil); !errors.Is(err, ErrMissingDSN) {
		t.Fatalf("Run with empty DSN = %v, want ErrMissingDSN", err)
	}
	if _, _, _, err := Version("", nil); !errors.Is(err, ErrMissingDSN) {
		t.Fatalf("Version with empty DSN = %v, want ErrMissingDSN", err)
	}
}

func TestParseDirection(t *testing.T) {
	testCases := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"up", Up, false},
		{"down", Down, false},
		{"", "", true},
		{"invalid", "", true},
		{"UP", "", true},
		{"Up", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDirection(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseDirection(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseDirection(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	err := Run("postgres://localhost/test", Direction("sideways"), nil)
	if err == nil || !strings.Contains(err.Error(), "direction must be up or down") {
		t.Fatalf("Run with bad direction = %v, want direction error", err)
	}
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := zapLogger{log: zap.New(core).Sugar()}
	l.Printf("Finished 1/u init (read 2ms, ran 5ms)\n")
	if logs.Len() != 1 || logs.All()[0].Message != "Finished 1/u init (read 2ms, ran 5ms)" {
		t.Errorf("logged = %+v", logs.All())
	}
	if l.Verbose() {
		t.Error("Verbose() = true, want false")
	}
}

func TestMigrationFS_HasPairedFiles(t *testing.T) {
	entries, err := fs.ReadDir(db.MigrationFS, "migrations")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 {
		t.Fatal("no up migrations embedded")
	}
	if ups != downs {
		t.Errorf("up migrations = %d, down migrations = %d; want equal", ups, downs)
	}
}
