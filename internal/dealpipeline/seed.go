package dealpipeline

import (
	"bufio"
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ktrack/pricecore/internal/keepa"
)

// defaultSeedCodes is the hard-coded fallback used when no targets
// file, seed file, or environment override is present.
var defaultSeedCodes = []string{
	"B07W6JN8V8", // Logitech MX Keys
	"B0815RRGV6", // Corsair K70
	"B07GJT1WM8", // Keychron K2
}

// SeedCode is one product code scoped to a single marketplace domain.
type SeedCode struct {
	ProductCode string
	Domain      keepa.Domain
}

// Resolver resolves the pipeline's per-iteration seed set, caching a
// parsed seed/targets file between iterations and reparsing only when
// its modification time advances.
type Resolver struct {
	targetsFile string
	seedFile    string
	seedASINs   string

	mu           sync.Mutex
	cachedMtime  time.Time
	cached       []SeedCode
	cachedSource string
}

func NewResolver(targetsFile, seedFile, seedASINs string) *Resolver {
	return &Resolver{targetsFile: targetsFile, seedFile: seedFile, seedASINs: seedASINs}
}

// Resolve returns the current seed set, trying the targets file, then
// the flat seed file, then the environment override, then the
// hard-coded defaults, in that priority order. File-backed sources are
// cached by modification time; an unchanged file is not reparsed.
func (r *Resolver) Resolve() []SeedCode {
	r.mu.Lock()
	defer r.mu.Unlock()

	if codes, ok := r.fromTargetsFile(); ok {
		return codes
	}
	if codes, ok := r.fromSeedFile(); ok {
		return codes
	}
	if r.seedASINs != "" {
		return fanOutAcrossEUDomains(splitAndTrim(r.seedASINs))
	}
	return fanOutAcrossEUDomains(defaultSeedCodes)
}

func (r *Resolver) fromTargetsFile() ([]SeedCode, bool) {
	if r.targetsFile == "" {
		return nil, false
	}
	info, err := os.Stat(r.targetsFile)
	if err != nil {
		return nil, false
	}
	if r.cachedSource == r.targetsFile && info.ModTime().Equal(r.cachedMtime) {
		return r.cached, true
	}

	f, err := os.Open(r.targetsFile)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, false
	}

	var codes []SeedCode
	for _, row := range records {
		if len(row) < 2 {
			continue
		}
		code := strings.TrimSpace(row[0])
		if code == "" || strings.EqualFold(code, "product_code") {
			continue // header row
		}
		domainID, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			continue
		}
		codes = append(codes, SeedCode{ProductCode: code, Domain: keepa.Domain(domainID)})
	}
	if len(codes) == 0 {
		return nil, false
	}

	r.cachedSource = r.targetsFile
	r.cachedMtime = info.ModTime()
	r.cached = codes
	return codes, true
}

func (r *Resolver) fromSeedFile() ([]SeedCode, bool) {
	if r.seedFile == "" {
		return nil, false
	}
	info, err := os.Stat(r.seedFile)
	if err != nil {
		return nil, false
	}
	if r.cachedSource == r.seedFile && info.ModTime().Equal(r.cachedMtime) {
		return r.cached, true
	}

	f, err := os.Open(r.seedFile)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var rawCodes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rawCodes = append(rawCodes, line)
	}
	if len(rawCodes) == 0 {
		return nil, false
	}

	codes := fanOutAcrossEUDomains(rawCodes)
	r.cachedSource = r.seedFile
	r.cachedMtime = info.ModTime()
	r.cached = codes
	return codes, true
}

func fanOutAcrossEUDomains(rawCodes []string) []SeedCode {
	codes := make([]SeedCode, 0, len(rawCodes)*len(keepa.EUDomains))
	for _, code := range rawCodes {
		for _, d := range keepa.EUDomains {
			codes = append(codes, SeedCode{ProductCode: code, Domain: d})
		}
	}
	return codes
}

func splitAndTrim(csvList string) []string {
	parts := strings.Split(csvList, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GroupByDomain buckets a seed set by marketplace domain, the first
// step of each pipeline iteration.
func GroupByDomain(codes []SeedCode) map[keepa.Domain][]string {
	grouped := make(map[keepa.Domain][]string)
	for _, c := range codes {
		grouped[c.Domain] = append(grouped[c.Domain], c.ProductCode)
	}
	return grouped
}
