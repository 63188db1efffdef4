package quota

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/stepalarm/internal/cli"
	"github.com/julianstephens/stepalarm/internal/config"
	"github.com/julianstephens/stepalarm/internal/constants"
	quotapkg "github.com/julianstephens/stepalarm/internal/quota"
	"github.com/julianstephens/stepalarm/internal/storage/sqlite"
)

func setupTestDB(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	var out bytes.Buffer
	ctx := cli.NewContext(store, config.StoreLocation{Value: dbPath})
	ctx.Out = &out
	ctx.Now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	ctx.Confirm = func(string, string) (bool, error) { return true, nil }
	return ctx, &out
}

func TestQuotaShowCmd_Defaults(t *testing.T) {
	ctx, out := setupTestDB(t)

	if err := (&QuotaShowCmd{}).Run(ctx); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	want := "3 of 3 left"
	if !strings.Contains(out.String(), want) {
		t.Errorf("expected %q in output, got %q", want, out.String())
	}
}

func TestQuotaResetCmd(t *testing.T) {
	ctx, _ := setupTestDB(t)
	tracker := ctx.Quota()
	for i := 0; i < constants.DefaultEmergencyMaxPerMonth; i++ {
		if ok, err := tracker.Use(); err != nil || !ok {
			t.Fatalf("Use %d = %v, %v", i, ok, err)
		}
	}

	ctx.Confirm = func(string, string) (bool, error) { return false, nil }
	if err := (&QuotaResetCmd{}).Run(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if n, _ := tracker.Remaining(); n != 0 {
		t.Errorf("declined reset changed quota to %d", n)
	}

	if err := (&QuotaResetCmd{Yes: true}).Run(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if n, _ := tracker.Remaining(); n != constants.DefaultEmergencyMaxPerMonth {
		t.Errorf("expected %d after reset, got %d", constants.DefaultEmergencyMaxPerMonth, n)
	}
}

func TestQuotaSetMaxCmd(t *testing.T) {
	ctx, out := setupTestDB(t)

	if err := (&QuotaSetMaxCmd{Max: 5}).Run(ctx); err != nil {
		t.Fatalf("set-max failed: %v", err)
	}
	if n, _ := ctx.Quota().MaxPerMonth(); n != 5 {
		t.Errorf("expected max 5, got %d", n)
	}
	if !strings.Contains(out.String(), "set to 5") {
		t.Errorf("unexpected output: %q", out.String())
	}

	for _, bad := range []int{0, 11} {
		err := (&QuotaSetMaxCmd{Max: bad}).Run(ctx)
		if !errors.Is(err, quotapkg.ErrInvalidMax) {
			t.Errorf("set-max %d: expected ErrInvalidMax, got %v", bad, err)
		}
	}
}

func TestQuotaShowCmd_RemainingAboveMax(t *testing.T) {
	ctx, out := setupTestDB(t)
	if err := (&QuotaSetMaxCmd{Max: 1}).Run(ctx); err != nil {
		t.Fatalf("set-max failed: %v", err)
	}
	out.Reset()
	if err := (&QuotaShowCmd{}).Run(ctx); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out.String(), "3 of 1 left") {
		t.Errorf("unexpected output: %q", out.String())
	}
}
