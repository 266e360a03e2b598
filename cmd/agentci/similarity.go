package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentci/agentci/pkg/signature"
	"github.com/agentci/agentci/pkg/similarity"
)

// runSimilarityCmd implements "agentci similarity --query <path> --runs
// <dir> --k <n>", per spec.md §4.11.
func runSimilarityCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("similarity", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		queryPath  string
		runsDir    string
		k          int
		threshold  float64
		jsonOutput bool
	)
	cmd.StringVar(&queryPath, "query", "", "Path to the query signature.json (REQUIRED)")
	cmd.StringVar(&runsDir, "runs", "", "Path to a directory of <run_id>/signature.json entries (REQUIRED)")
	cmd.IntVar(&k, "k", 5, "Number of nearest neighbors")
	cmd.Float64Var(&threshold, "threshold", similarity.DefaultAnomalyThreshold, "Anomaly threshold")
	cmd.Func("format", "Output format (json|text)", func(v string) error {
		jsonOutput = v == "json"
		return nil
	})

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if queryPath == "" || runsDir == "" {
		fmt.Fprintln(stderr, "Error: --query and --runs are required")
		return 2
	}

	query, err := readSignatureFile(queryPath)
	if err != nil {
		fmt.Fprintf(stderr, "agentci: %v\n", err)
		return 1
	}

	corpusSigs, err := loadRunsCorpus(runsDir)
	if err != nil {
		fmt.Fprintf(stderr, "agentci: %v\n", err)
		return 1
	}

	corpus := similarity.BuildCorpus(corpusSigs)
	result := similarity.Anomaly(corpus, query, k, threshold)

	if jsonOutput {
		if err := printJSON(stdout, result); err != nil {
			fmt.Fprintf(stderr, "agentci: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(stdout, "score: %.4f  anomalous: %v\n", result.Score, result.Anomalous)
	for _, n := range result.Neighbors {
		fmt.Fprintf(stdout, "  %s  similarity=%.4f\n", n.RunID, n.Similarity)
	}
	return 0
}

// loadRunsCorpus reads <runsDir>/<run_id>/signature.json for every
// subdirectory present, skipping entries that cannot be read or parsed
// rather than aborting the whole scan.
func loadRunsCorpus(runsDir string) (map[string]*signature.Signature, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return nil, fmt.Errorf("read runs directory: %w", err)
	}

	out := make(map[string]*signature.Signature)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sigPath := filepath.Join(runsDir, entry.Name(), "signature.json")
		sig, err := readSignatureFile(sigPath)
		if err != nil {
			continue
		}
		out[entry.Name()] = sig
	}
	return out, nil
}
