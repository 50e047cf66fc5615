package provider

// ValidationReport summarizes post-fetch consistency checks over an
// in-memory result set. Violations are surfaced, never fatal: a duplicate
// identifier is worth reporting but does not block the merge, and filtered
// fetches legitimately return fewer records than the unfiltered total.
type ValidationReport struct {
	DuplicateIDs  []string
	FetchedCount  int
	ReportedTotal int
	CountMismatch bool
}

// Clean reports whether no anomaly was found.
func (v *ValidationReport) Clean() bool {
	return len(v.DuplicateIDs) == 0 && !v.CountMismatch
}

// ValidateBatch checks a fetched record set for duplicate external
// identifiers and compares the fetched count against the provider-reported
// total. With filtered=true the count comparison is skipped, since the
// reported total covers the unfiltered catalog.
func ValidateBatch(records []CatalogRecord, reportedTotal int, filtered bool) *ValidationReport {
	report := &ValidationReport{
		FetchedCount:  len(records),
		ReportedTotal: reportedTotal,
	}

	seen := make(map[string]int, len(records))
	for _, rec := range records {
		seen[rec.ID]++
	}
	for id, n := range seen {
		if n > 1 {
			report.DuplicateIDs = append(report.DuplicateIDs, id)
		}
	}

	if !filtered && reportedTotal > 0 && len(records) != reportedTotal {
		report.CountMismatch = true
	}

	return report
}
