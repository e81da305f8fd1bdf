package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"staking-sync/internal/storage"
)

// ExportOptions hold parameters for exporting the current snapshot.
type ExportOptions struct {
	PNGPath    string
	CSVPath    string
	MaxRecords int
}

// Export writes the stored records as CSV and/or a TVL bar chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = a.Config.Export.MaxRecords
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Msg("no staking records to export")
		return nil
	}

	exported := records
	if len(exported) > opts.MaxRecords {
		exported = exported[:opts.MaxRecords]
	}
	a.Logger.Info().Int("total", len(records)).Int("exported", len(exported)).Msg("exporting staking records")

	if opts.CSVPath != "" {
		if err := writeRecordsCSV(opts.CSVPath, exported); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeRecordsPNG(opts.PNGPath, exported); err != nil {
			return err
		}
	}

	return nil
}

func writeRecordsCSV(path string, records []storage.StakingRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"token_address", "staking_address", "display_name", "project_name", "chain_name",
		"is_stablecoin", "categories", "logo_url", "apy", "tvl", "created_at", "updated_at",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			rec.TokenAddress,
			rec.StakingAddress,
			rec.DisplayName,
			rec.ProjectName,
			rec.ChainName,
			strconv.FormatBool(rec.Stablecoin),
			strings.Join(rec.Categories, ";"),
			rec.LogoURL,
			rec.APY.String(),
			rec.TVL.String(),
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeRecordsPNG(path string, records []storage.StakingRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	bars := make([]chart.Value, 0, len(records))
	maxTVL := 0.0
	for _, rec := range records {
		tvl := rec.TVL.InexactFloat64()
		if tvl > maxTVL {
			maxTVL = tvl
		}
		bars = append(bars, chart.Value{
			Label: rec.DisplayName + " (" + rec.APY.String() + "%)",
			Value: tvl,
		})
	}
	if maxTVL <= 0 {
		maxTVL = 1
	}

	graph := chart.BarChart{
		Title:    "Total value staked",
		Width:    1280,
		Height:   720,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxTVL * 1.1},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.2f")
			},
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
