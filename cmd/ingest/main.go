/*
main.go - Bulk ingestion command

PURPOSE:
  Imports a directory of saved HTML paystub documents into the database
  and runs the full historical audit afterwards. This is the batch
  counterpart to the server's /api/ingest endpoint, meant for loading
  years of saved documents in one run.

FILE NAMING:
  The pay-period-end date is not trusted from the document body; it
  comes from the filename: 2025-11-29.html (strict ISO) or legacy
  PP-11-29-2025.html. Files that match neither pattern are skipped
  with a warning.

USAGE:
  ./ingest -dir=./statements -db=./paystubs.db
  ./ingest -dir=./statements -skip-existing   # leave stored periods alone

EXIT CODE:
  0 when every document imported and the audit found no errors,
  1 otherwise. Warnings alone do not fail the run.

SEE ALSO:
  - parser/parser.go: Document parsing
  - report/report.go: Historical audit
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/paystub-audit/config"
	"github.com/warp/paystub-audit/parser"
	"github.com/warp/paystub-audit/paystub"
	"github.com/warp/paystub-audit/report"
	"github.com/warp/paystub-audit/store/sqlite"
)

var (
	isoName    = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\.html?$`)
	legacyName = regexp.MustCompile(`^PP-(\d{2})-(\d{2})-(\d{4})\.html?$`)
)

// dateFromFilename extracts the pay-period-end date from a document
// filename. Returns false for names that carry no date.
func dateFromFilename(name string) (paystub.Date, bool) {
	if m := isoName.FindStringSubmatch(name); m != nil {
		d, err := paystub.ParseDate(m[1])
		return d, err == nil
	}
	if m := legacyName.FindStringSubmatch(name); m != nil {
		d, err := paystub.ParseDate(fmt.Sprintf("%s-%s-%s", m[3], m[1], m[2]))
		return d, err == nil
	}
	return paystub.Date{}, false
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("Failed to load configuration", "error", err)
	}

	dir := flag.String("dir", ".", "Directory of HTML paystub documents")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	skipExisting := flag.Bool("skip-existing", false, "Skip documents whose period is already stored")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalw("Failed to open database", "path", *dbPath, "error", err)
	}
	defer store.Close()

	entries, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatalw("Failed to read directory", "dir", *dir, "error", err)
	}

	ctx := context.Background()
	p := parser.New(nil)
	imported, failed := 0, 0

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.Contains(strings.ToLower(e.Name()), ".htm") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		date, ok := dateFromFilename(name)
		if !ok {
			log.Warnw("Skipping file without a date in its name", "file", name)
			continue
		}

		if *skipExisting {
			if _, err := store.Get(ctx, date); err == nil {
				log.Infow("Skipping already stored period", "file", name, "period_end", date.String())
				continue
			}
		}

		doc, err := os.ReadFile(filepath.Join(*dir, name))
		if err != nil {
			log.Errorw("Failed to read document", "file", name, "error", err)
			failed++
			continue
		}

		period, err := p.Parse(doc, date, name)
		if err != nil {
			log.Errorw("Failed to parse document", "file", name, "error", err)
			failed++
			continue
		}

		if err := store.Put(ctx, period); err != nil {
			log.Errorw("Failed to store period", "file", name, "error", err)
			failed++
			continue
		}
		log.Infow("Imported", "file", name, "period_end", date.String(),
			"gross", period.Gross.StringFixed(2))
		imported++
	}

	log.Infow("Import complete", "imported", imported, "failed", failed)

	// Full historical audit, chronological.
	reporter := report.New(store, cfg.Tolerances)
	reports, err := reporter.AuditAll(ctx)
	if err != nil {
		log.Fatalw("Historical audit failed", "error", err)
	}

	auditErrors := 0
	for _, rep := range reports {
		if rep.Clean() {
			continue
		}
		for _, f := range append(rep.ArithmeticFindings, rep.ContinuityFindings...) {
			fmt.Printf("%s  %s\n", rep.Period.PeriodEnd, f)
			if f.Severity == paystub.SeverityError {
				auditErrors++
			}
		}
	}
	log.Infow("Audit complete", "periods", len(reports), "errors", auditErrors)

	if failed > 0 || auditErrors > 0 {
		os.Exit(1)
	}
}
