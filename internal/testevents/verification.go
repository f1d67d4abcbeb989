package testevents

import (
	"context"
	"fmt"
	"log"
	"sort"
)

var verdictOrder = []string{"ANOMALY", "SUSPICIOUS", "CLEAR"} //nolint:gochecknoglobals // display order

// verifyResults checks the read-back against what was submitted.
func verifyResults(_ context.Context, config *Config, recent *RecentResponse, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if stats.EventsSuccessful > 0 && len(recent.Data) == 0 {
		return fmt.Errorf("%d events scored but none listed", stats.EventsSuccessful)
	}
	if err := verifySummary(recent); err != nil {
		return err
	}
	for _, e := range recent.Data {
		if !knownVerdict(e.Verdict) {
			return fmt.Errorf("event %s has unknown verdict %q", e.ID, e.Verdict)
		}
	}

	displayVerdicts(stats, config.Verbose)
	log.Println("✅ Result verification completed")
	return nil
}

// verifySummary checks that the summary tallies the listed page.
func verifySummary(recent *RecentResponse) error {
	counted := map[string]int{}
	for _, e := range recent.Data {
		counted[e.Verdict]++
	}
	for _, v := range verdictOrder {
		if counted[v] != recent.Summary[v] {
			return fmt.Errorf("summary %s=%d does not match %d listed events", v, recent.Summary[v], counted[v])
		}
	}
	return nil
}

func knownVerdict(v string) bool {
	for _, k := range verdictOrder {
		if v == k {
			return true
		}
	}
	return false
}

// displayVerdicts prints the verdict tally, per scenario when verbose.
func displayVerdicts(stats *Stats, verbose bool) {
	log.Println("📊 Verdicts:")
	for _, v := range verdictOrder {
		log.Printf("   %-10s %d", v, stats.Verdicts[v])
	}
	if !verbose {
		return
	}

	names := make([]string, 0, len(stats.ByScenario))
	for s := range stats.ByScenario {
		names = append(names, string(s))
	}
	sort.Strings(names)
	for _, name := range names {
		tally := stats.ByScenario[Scenario(name)]
		log.Printf("   %-18s anomaly=%d suspicious=%d clear=%d", name, tally["ANOMALY"], tally["SUSPICIOUS"], tally["CLEAR"])
	}
}
