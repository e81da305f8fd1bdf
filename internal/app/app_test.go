package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"staking-sync/internal/config"
	"staking-sync/internal/fetcher"
	"staking-sync/internal/registry"
)

type staticReader struct {
	fail map[string]bool
}

func (s staticReader) ReadStakingSnapshot(_ context.Context, contract string) (fetcher.Snapshot, error) {
	if s.fail[contract] {
		return fetcher.Snapshot{}, &fetcher.ChainReadError{Contract: contract, Call: "fixedAPY", Err: errors.New("execution reverted")}
	}
	staked := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return fetcher.Snapshot{APYRaw: big.NewInt(5), TotalStakedRaw: staked}, nil
}

func newTestApp(t *testing.T, reader fetcher.StakingReader) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Name: "stakingsync", Environment: "test"},
		Database: config.DatabaseConfig{
			Driver:      config.DriverSQLite,
			SQLitePath:  filepath.Join(t.TempDir(), "staking.db"),
			AutoMigrate: true,
		},
		Ethereum:   config.EthereumConfig{RPCURL: "http://localhost:8545", RequestTimeout: time.Second},
		Reconciler: config.ReconcilerConfig{EntryTimeout: 5 * time.Second},
		Export:     config.ExportConfig{MaxRecords: 1000},
	}
	out := &bytes.Buffer{}
	a := NewApp(cfg, zerolog.Nop())
	a.Out = out
	a.reader = reader
	return a, out
}

func defaultStaking(key string) string {
	for _, e := range registry.DefaultEntries() {
		if e.Key == key {
			return registry.CanonicalAddress(e.StakingAddress)
		}
	}
	return ""
}

func TestReconcilePrintsReport(t *testing.T) {
	a, out := newTestApp(t, staticReader{})

	if err := a.Reconcile(context.Background(), ReconcileOptions{Strict: true}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	text := out.String()
	for _, want := range []string{"UNI", "USDC", "created", "2 succeeded, 0 failed"} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}

	out.Reset()
	if err := a.Reconcile(context.Background(), ReconcileOptions{}); err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if !strings.Contains(out.String(), "updated") {
		t.Errorf("second cycle should update:\n%s", out.String())
	}
}

func TestReconcileStrict(t *testing.T) {
	reader := staticReader{fail: map[string]bool{defaultStaking("UNI"): true}}

	a, out := newTestApp(t, reader)
	if err := a.Reconcile(context.Background(), ReconcileOptions{}); err != nil {
		t.Fatalf("non-strict run should not fail: %v", err)
	}
	if !strings.Contains(out.String(), "1 succeeded, 1 failed") {
		t.Errorf("unexpected summary:\n%s", out.String())
	}

	if err := a.Reconcile(context.Background(), ReconcileOptions{Strict: true}); err == nil {
		t.Fatal("strict run should fail when an entry fails")
	}
}

func TestReconcileSelectedTokens(t *testing.T) {
	a, out := newTestApp(t, staticReader{})

	if err := a.Reconcile(context.Background(), ReconcileOptions{Tokens: []string{"UNI"}}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "1 succeeded, 0 failed") || strings.Contains(text, "USDC") {
		t.Errorf("expected a UNI-only report:\n%s", text)
	}

	if err := a.Reconcile(context.Background(), ReconcileOptions{Tokens: []string{"NOPE"}}); err == nil {
		t.Fatal("unknown token should fail")
	}
}

func TestShow(t *testing.T) {
	a, out := newTestApp(t, staticReader{})

	if err := a.Show(context.Background()); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if !strings.Contains(out.String(), "no staking records found") {
		t.Fatalf("unexpected output for empty store:\n%s", out.String())
	}

	_ = a.Reconcile(context.Background(), ReconcileOptions{})
	out.Reset()
	if err := a.Show(context.Background()); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if !strings.Contains(out.String(), "Uniswap V3") || !strings.Contains(out.String(), "AAVE V3") {
		t.Errorf("records missing from output:\n%s", out.String())
	}
}

func TestExport(t *testing.T) {
	a, _ := newTestApp(t, staticReader{})
	ctx := context.Background()

	if err := a.Export(ctx, ExportOptions{}); err == nil {
		t.Fatal("export without targets should fail")
	}

	_ = a.Reconcile(ctx, ReconcileOptions{})

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "staking.csv")
	pngPath := filepath.Join(dir, "out", "staking.png")
	if err := a.Export(ctx, ExportOptions{CSVPath: csvPath, PNGPath: pngPath, MaxRecords: 1}); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header plus 1", len(rows))
	}
	if rows[0][0] != "token_address" || rows[1][9] == "" {
		t.Errorf("unexpected csv %v", rows)
	}

	png, err := os.ReadFile(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("chart is not a PNG")
	}
}

func TestMigrate(t *testing.T) {
	a, _ := newTestApp(t, staticReader{})
	if err := a.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
}
