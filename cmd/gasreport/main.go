// Package main provides a fee analysis tool. It reads an explorer CSV
// export of past transactions and reports fee statistics plus a
// recommended gas limit for the dispatcher configuration.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

type report struct {
	count  int
	mean   float64
	median float64
	min    float64
	max    float64
	p95    float64
	p99    float64
}

func main() {
	var (
		inputPath string
		feeColumn string
		gweiPrice float64
	)
	flag.StringVar(&inputPath, "input", "", "Path to explorer CSV export")
	flag.StringVar(&feeColumn, "fee-column", "Txn Fee", "Name of the fee column (native units)")
	flag.Float64Var(&gweiPrice, "gwei", 1.0, "Gas price in gwei used to derive gas usage from fees")
	flag.Parse()

	if inputPath == "" {
		fmt.Fprintln(os.Stderr, "missing -input CSV file")
		os.Exit(2)
	}
	if gweiPrice <= 0 {
		fmt.Fprintln(os.Stderr, "-gwei must be positive")
		os.Exit(2)
	}

	fees, err := readFees(inputPath, feeColumn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read fees: %v\n", err)
		os.Exit(1)
	}
	if len(fees) == 0 {
		fmt.Fprintln(os.Stderr, "no fee rows found")
		os.Exit(1)
	}

	rep := analyze(fees)

	fmt.Println("Transaction fee analysis")
	fmt.Println(strings.Repeat("=", 40))
	fmt.Printf("Transactions:   %d\n", rep.count)
	fmt.Printf("Mean fee:       %.8f\n", rep.mean)
	fmt.Printf("Median fee:     %.8f\n", rep.median)
	fmt.Printf("Min fee:        %.8f\n", rep.min)
	fmt.Printf("Max fee:        %.8f\n", rep.max)
	fmt.Printf("95th pct fee:   %.8f\n", rep.p95)
	fmt.Printf("99th pct fee:   %.8f\n", rep.p99)

	// fee = gasUsed * gasPrice, so gasUsed = fee / gasPrice
	priceNative := gweiPrice * 1e9 / 1e18
	gasP95 := rep.p95 / priceNative
	recommended := int64(gasP95 * 1.2)

	fmt.Println()
	fmt.Printf("Assumed gas price:     %.2f gwei\n", gweiPrice)
	fmt.Printf("Gas usage (p95):       %.0f\n", gasP95)
	fmt.Printf("Recommended gas limit: %d\n", recommended)
	fmt.Printf("Cost at that limit:    %.8f\n", float64(recommended)*priceNative)
}

// readFees extracts the fee column from an explorer CSV export. Rows with
// an unparseable fee are skipped rather than aborting the report.
func readFees(path, column string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	feeIdx := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), column) {
			feeIdx = i
			break
		}
	}
	if feeIdx < 0 {
		return nil, fmt.Errorf("column %q not found in header", column)
	}

	var fees []float64
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if feeIdx >= len(row) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[feeIdx]), 64)
		if err != nil || math.IsNaN(v) || v < 0 {
			continue
		}
		fees = append(fees, v)
	}
	return fees, nil
}

func analyze(fees []float64) report {
	sorted := make([]float64, len(fees))
	copy(sorted, fees)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	return report{
		count:  len(sorted),
		mean:   sum / float64(len(sorted)),
		median: percentile(sorted, 0.5),
		min:    sorted[0],
		max:    sorted[len(sorted)-1],
		p95:    percentile(sorted, 0.95),
		p99:    percentile(sorted, 0.99),
	}
}

// percentile interpolates linearly between the two nearest ranks.
// The input must be sorted.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
