package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// target is one search request replayed against both deployments.
type target struct {
	Query    string `json:"query"`
	Critical bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

// searchResult holds the fields whose parity matters for search clients.
type searchResult struct {
	TotalStudies       int      `json:"total_studies"`
	MatchingAccessions []string `json:"matching_accessions"`
}

type comparison struct {
	Target         target
	LegacyStatus   int
	GoStatus       int
	StatusMatch    bool
	TotalMatch     bool
	OrderMatch     bool
	FirstDiff      string
	Error          error
	DurationGo     time.Duration
	DurationLegacy time.Duration
}

func main() {
	var (
		goBase      string
		legacyBase  string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&goBase, "go-base", "http://localhost:8080/api/v1/search", "Go search endpoint")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000/single_cell/api/v1/search", "Legacy search endpoint")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		comparisons  []comparison
		breaking     int
		optionalDiff int
	)

	for _, t := range targets {
		comp := compareTarget(client, goBase, legacyBase, t)
		if comp.Error != nil || !comp.matches() {
			if t.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func (c comparison) matches() bool {
	return c.StatusMatch && c.TotalMatch && c.OrderMatch
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func compareTarget(client *http.Client, goBase, legacyBase string, tgt target) comparison {
	comp := comparison{Target: tgt}
	goStatus, goBody, goDur, goErr := performRequest(client, goBase, tgt)
	legacyStatus, legacyBody, legacyDur, legacyErr := performRequest(client, legacyBase, tgt)
	comp.DurationGo = goDur
	comp.DurationLegacy = legacyDur

	if goErr != nil {
		comp.Error = fmt.Errorf("go request failed: %w", goErr)
		return comp
	}
	if legacyErr != nil {
		comp.Error = fmt.Errorf("legacy request failed: %w", legacyErr)
		return comp
	}

	comp.GoStatus = goStatus
	comp.LegacyStatus = legacyStatus
	comp.StatusMatch = goStatus == legacyStatus
	if goStatus != http.StatusOK || legacyStatus != http.StatusOK {
		comp.TotalMatch, comp.OrderMatch = comp.StatusMatch, comp.StatusMatch
		return comp
	}

	goResult, err := decodeResult(goBody)
	if err != nil {
		comp.Error = fmt.Errorf("decode go body: %w", err)
		return comp
	}
	legacyResult, err := decodeResult(legacyBody)
	if err != nil {
		comp.Error = fmt.Errorf("decode legacy body: %w", err)
		return comp
	}

	comp.TotalMatch = goResult.TotalStudies == legacyResult.TotalStudies
	comp.OrderMatch, comp.FirstDiff = sameOrder(goResult.MatchingAccessions, legacyResult.MatchingAccessions)
	return comp
}

func performRequest(client *http.Client, base string, tgt target) (int, []byte, time.Duration, error) {
	if client == nil {
		return 0, nil, 0, errors.New("nil client")
	}
	url := strings.TrimRight(base, "/")
	if query := strings.TrimPrefix(strings.TrimSpace(tgt.Query), "?"); query != "" {
		url += "?" + query
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, time.Since(start), err
}

// decodeResult accepts both the enveloped Go response and the bare legacy one.
func decodeResult(body []byte) (searchResult, error) {
	var envelope struct {
		Data *searchResult `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return searchResult{}, err
	}
	if envelope.Data != nil {
		return *envelope.Data, nil
	}
	var result searchResult
	err := json.Unmarshal(body, &result)
	return result, err
}

func sameOrder(goAccessions, legacyAccessions []string) (bool, string) {
	for i := 0; i < len(goAccessions) && i < len(legacyAccessions); i++ {
		if goAccessions[i] != legacyAccessions[i] {
			return false, fmt.Sprintf("position %d: go=%s legacy=%s", i, goAccessions[i], legacyAccessions[i])
		}
	}
	if len(goAccessions) != len(legacyAccessions) {
		return false, fmt.Sprintf("length: go=%d legacy=%d", len(goAccessions), len(legacyAccessions))
	}
	return true, ""
}

func printReport(results []comparison) {
	fmt.Println("Search Shadow Compare Report")
	fmt.Println("============================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.matches() {
			status = "DIFF"
		}
		fmt.Printf("[%s] ?%s\n", status, res.Target.Query)
		fmt.Printf("  Go Status: %d (%s)\n", res.GoStatus, res.DurationGo)
		fmt.Printf("  Legacy Status: %d (%s)\n", res.LegacyStatus, res.DurationLegacy)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Status match: %t | Total match: %t | Order match: %t | Critical: %t\n",
			res.StatusMatch, res.TotalMatch, res.OrderMatch, res.Target.Critical)
		if res.FirstDiff != "" {
			fmt.Printf("  First difference: %s\n", res.FirstDiff)
		}
	}
}
