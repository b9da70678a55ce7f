package dealpipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ktrack/pricecore/internal/keepa"
)

func TestResolverPrefersTargetsFileOverSeedFile(t *testing.T) {
	dir := t.TempDir()

	targetsPath := filepath.Join(dir, "targets.csv")
	writeFile(t, targetsPath, "product_code,domain\nB0TARGET01,3\n")

	seedPath := filepath.Join(dir, "seed.txt")
	writeFile(t, seedPath, "B0SEEDCODE\n")

	r := NewResolver(targetsPath, seedPath, "")
	codes := r.Resolve()

	if len(codes) != 1 || codes[0].ProductCode != "B0TARGET01" || codes[0].Domain != keepa.DomainDE {
		t.Fatalf("Resolve() = %+v, want single targets-file entry", codes)
	}
}

func TestResolverFallsBackToSeedFileFanningAcrossEUDomains(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.txt")
	writeFile(t, seedPath, "B0SEEDCODE\n# a comment\n\n")

	r := NewResolver(filepath.Join(dir, "missing.csv"), seedPath, "")
	codes := r.Resolve()

	if len(codes) != len(keepa.EUDomains) {
		t.Fatalf("Resolve() returned %d codes, want %d (one per EU domain)", len(codes), len(keepa.EUDomains))
	}
	for _, c := range codes {
		if c.ProductCode != "B0SEEDCODE" {
			t.Errorf("unexpected product code %q", c.ProductCode)
		}
	}
}

func TestResolverFallsBackToEnvThenDefaults(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "nope")

	withEnv := NewResolver(missing, missing, "B0ENVCODE, B0ENVCODE2")
	codes := withEnv.Resolve()
	if len(codes) != 2*len(keepa.EUDomains) {
		t.Fatalf("env-sourced Resolve() returned %d codes, want %d", len(codes), 2*len(keepa.EUDomains))
	}

	withDefaults := NewResolver(missing, missing, "")
	codes = withDefaults.Resolve()
	if len(codes) != len(defaultSeedCodes)*len(keepa.EUDomains) {
		t.Fatalf("default Resolve() returned %d codes, want %d", len(codes), len(defaultSeedCodes)*len(keepa.EUDomains))
	}
}

func TestResolverReparsesWhenFileModTimeAdvances(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.txt")
	writeFile(t, seedPath, "B0FIRST\n")

	r := NewResolver("", seedPath, "")
	first := r.Resolve()
	if len(first) != len(keepa.EUDomains) || first[0].ProductCode != "B0FIRST" {
		t.Fatalf("unexpected first parse: %+v", first)
	}

	// Overwrite the file and push its mtime a full second forward so the
	// change is observable regardless of filesystem timestamp resolution;
	// the next Resolve must reparse and return the new code.
	info, err := os.Stat(seedPath)
	if err != nil {
		t.Fatal(err)
	}
	future := info.ModTime().Add(time.Second)
	writeFile(t, seedPath, "B0SECOND\n")
	if err := os.Chtimes(seedPath, future, future); err != nil {
		t.Fatal(err)
	}

	second := r.Resolve()
	if len(second) != len(keepa.EUDomains) || second[0].ProductCode != "B0SECOND" {
		t.Fatalf("expected reparse after mtime advance, got: %+v", second)
	}
}

func TestGroupByDomain(t *testing.T) {
	codes := []SeedCode{
		{ProductCode: "A", Domain: keepa.DomainDE},
		{ProductCode: "B", Domain: keepa.DomainDE},
		{ProductCode: "C", Domain: keepa.DomainFR},
	}

	grouped := GroupByDomain(codes)
	if len(grouped[keepa.DomainDE]) != 2 || len(grouped[keepa.DomainFR]) != 1 {
		t.Fatalf("GroupByDomain() = %+v, want 2 DE and 1 FR", grouped)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
