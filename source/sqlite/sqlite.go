// Copyright 2019 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlite serves tracks from a SQLite database.  Regions are stored
// per dataset item while coverage and variants are stored per dataset and
// position, so overlapping items share their data.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/freqbrowser/covplot/internal/genomics"
	"github.com/freqbrowser/covplot/source"
	"github.com/jmoiron/sqlx"
	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS regions (
    dataset TEXT NOT NULL,
    item    TEXT NOT NULL,
    chrom   TEXT NOT NULL,
    start   INTEGER NOT NULL,
    stop    INTEGER NOT NULL,
    PRIMARY KEY (dataset, item)
);

CREATE TABLE IF NOT EXISTS exons (
    dataset TEXT NOT NULL,
    item    TEXT NOT NULL,
    type    TEXT NOT NULL,
    start   INTEGER NOT NULL,
    stop    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exons_item ON exons(dataset, item);

CREATE TABLE IF NOT EXISTS coverage (
    dataset TEXT NOT NULL,
    chrom   TEXT NOT NULL,
    pos     INTEGER NOT NULL,
    mean    REAL,
    median  REAL,
    %s,
    PRIMARY KEY (dataset, chrom, pos)
);

CREATE TABLE IF NOT EXISTS variants (
    dataset     TEXT NOT NULL,
    chrom       TEXT NOT NULL,
    pos         INTEGER NOT NULL,
    ref         TEXT NOT NULL,
    alt         TEXT NOT NULL,
    hgvs        TEXT NOT NULL DEFAULT '',
    rsid        TEXT NOT NULL DEFAULT '',
    consequence TEXT NOT NULL DEFAULT '',
    freq        REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_variants_pos ON variants(dataset, chrom, pos);
`

// thresholdColumns names the coverage columns holding the fraction of samples
// over each depth in genomics.CoverageThresholds.
var thresholdColumns = func() []string {
	columns := make([]string, len(genomics.CoverageThresholds))
	for i, threshold := range genomics.CoverageThresholds {
		columns[i] = "cov" + strconv.Itoa(threshold)
	}
	return columns
}()

// Source reads tracks from a database.
type Source struct {
	db *sqlx.DB
}

// Open opens the database at path.  Use ":memory:" for a private in-memory
// database.  Call Init before inserting into a new database.
func Open(path string) (*Source, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &Source{db}, nil
}

// Init creates any missing tables.
func (s *Source) Init(ctx context.Context) error {
	var columns []string
	for _, column := range thresholdColumns {
		columns = append(columns, column+" REAL")
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(schema, strings.Join(columns, ",\n    "))); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Source) Close() error {
	return s.db.Close()
}

type regionRow struct {
	Chrom string `db:"chrom"`
	Start int    `db:"start"`
	Stop  int    `db:"stop"`
}

type variantRow struct {
	Chrom       string  `db:"chrom"`
	Pos         int     `db:"pos"`
	Ref         string  `db:"ref"`
	Alt         string  `db:"alt"`
	HGVS        string  `db:"hgvs"`
	RSID        string  `db:"rsid"`
	Consequence string  `db:"consequence"`
	Freq        float64 `db:"freq"`
}

// Track returns the track stored for item in dataset.
func (s *Source) Track(ctx context.Context, dataset, item string) (*source.Track, error) {
	if err := source.CheckIDs(dataset, item); err != nil {
		return nil, err
	}

	var region regionRow
	err := s.db.GetContext(ctx, &region,
		`SELECT chrom, start, stop FROM regions WHERE dataset = ? AND item = ?`, dataset, item)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", dataset, item, source.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying region: %w", err)
	}

	track := &source.Track{Region: genomics.Region{
		Chrom: region.Chrom,
		Start: region.Start,
		Stop:  region.Stop,
	}}
	if err := s.db.SelectContext(ctx, &track.Region.Exons,
		`SELECT type, start, stop FROM exons WHERE dataset = ? AND item = ? ORDER BY start`, dataset, item); err != nil {
		return nil, fmt.Errorf("querying exons: %w", err)
	}

	if track.Coverage, err = s.coverage(ctx, dataset, region); err != nil {
		return nil, err
	}

	var variants []variantRow
	if err := s.db.SelectContext(ctx, &variants,
		`SELECT chrom, pos, ref, alt, hgvs, rsid, consequence, freq FROM variants
		 WHERE dataset = ? AND chrom = ? AND pos BETWEEN ? AND ? ORDER BY pos`,
		dataset, region.Chrom, region.Start, region.Stop); err != nil {
		return nil, fmt.Errorf("querying variants: %w", err)
	}
	for _, v := range variants {
		track.Variants = append(track.Variants, genomics.Variant{
			Chrom:            v.Chrom,
			Pos:              v.Pos,
			Ref:              v.Ref,
			Alt:              v.Alt,
			HGVS:             v.HGVS,
			RSID:             v.RSID,
			MajorConsequence: v.Consequence,
			AlleleFreq:       v.Freq,
		})
	}
	return track, nil
}

func (s *Source) coverage(ctx context.Context, dataset string, region regionRow) ([]genomics.CoveragePoint, error) {
	query := fmt.Sprintf(`SELECT pos, mean, median, %s FROM coverage
		WHERE dataset = ? AND chrom = ? AND pos BETWEEN ? AND ? ORDER BY pos`,
		strings.Join(thresholdColumns, ", "))
	rows, err := s.db.QueryxContext(ctx, query, dataset, region.Chrom, region.Start, region.Stop)
	if err != nil {
		return nil, fmt.Errorf("querying coverage: %w", err)
	}
	defer rows.Close()

	var points []genomics.CoveragePoint
	for rows.Next() {
		var (
			point        genomics.CoveragePoint
			mean, median sql.NullFloat64
			over         = make([]sql.NullFloat64, len(thresholdColumns))
		)
		dest := []interface{}{&point.Pos, &mean, &median}
		for i := range over {
			dest = append(dest, &over[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("reading coverage: %w", err)
		}
		point.Mean, point.Median = mean.Float64, median.Float64
		for i, value := range over {
			if value.Valid {
				if point.Over == nil {
					point.Over = make(map[int]float64)
				}
				point.Over[genomics.CoverageThresholds[i]] = value.Float64
			}
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading coverage: %w", err)
	}
	return points, nil
}

// Insert stores track as item in dataset, replacing any region previously
// stored under that item.  Coverage and variants are added to the dataset.
func (s *Source) Insert(ctx context.Context, dataset, item string, track *source.Track) error {
	if err := source.CheckIDs(dataset, item); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	if err := insert(ctx, tx, dataset, item, track); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s/%s: %w", dataset, item, err)
	}
	return nil
}

func insert(ctx context.Context, tx *sqlx.Tx, dataset, item string, track *source.Track) error {
	region := track.Region
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO regions (dataset, item, chrom, start, stop) VALUES (?, ?, ?, ?, ?)`,
		dataset, item, region.Chrom, region.Start, region.Stop); err != nil {
		return fmt.Errorf("inserting region: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM exons WHERE dataset = ? AND item = ?`, dataset, item); err != nil {
		return fmt.Errorf("clearing exons: %w", err)
	}
	for _, exon := range region.Exons {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO exons (dataset, item, type, start, stop) VALUES (?, ?, ?, ?, ?)`,
			dataset, item, exon.Type, exon.Start, exon.Stop); err != nil {
			return fmt.Errorf("inserting exon %s: %w", exon, err)
		}
	}

	placeholders := strings.Repeat(", ?", len(thresholdColumns))
	coverage := fmt.Sprintf(`INSERT OR REPLACE INTO coverage (dataset, chrom, pos, mean, median, %s)
		VALUES (?, ?, ?, ?, ?%s)`, strings.Join(thresholdColumns, ", "), placeholders)
	for _, point := range track.Coverage {
		args := []interface{}{dataset, region.Chrom, point.Pos, point.Mean, point.Median}
		for _, threshold := range genomics.CoverageThresholds {
			value, ok := point.Over[threshold]
			args = append(args, sql.NullFloat64{Float64: value, Valid: ok})
		}
		if _, err := tx.ExecContext(ctx, coverage, args...); err != nil {
			return fmt.Errorf("inserting coverage at %d: %w", point.Pos, err)
		}
	}

	for _, v := range track.Variants {
		chrom := v.Chrom
		if chrom == "" {
			chrom = region.Chrom
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM variants WHERE dataset = ? AND chrom = ? AND pos = ? AND ref = ? AND alt = ?`,
			dataset, chrom, v.Pos, v.Ref, v.Alt); err != nil {
			return fmt.Errorf("replacing variant: %w", err)
		}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO variants (dataset, chrom, pos, ref, alt, hgvs, rsid, consequence, freq)
			 VALUES (:dataset, :chrom, :pos, :ref, :alt, :hgvs, :rsid, :consequence, :freq)`,
			map[string]interface{}{
				"dataset":     dataset,
				"chrom":       chrom,
				"pos":         v.Pos,
				"ref":         v.Ref,
				"alt":         v.Alt,
				"hgvs":        v.HGVS,
				"rsid":        v.RSID,
				"consequence": v.MajorConsequence,
				"freq":        v.AlleleFreq,
			}); err != nil {
			return fmt.Errorf("inserting variant at %d: %w", v.Pos, err)
		}
	}
	return nil
}
