// Command kukur is Kukur's single entry point: serve starts the Flight RPC
// server, test exercises a configured source directly without a running
// server, and api-key manages the api-key store. Every non-serve command
// writes CSV to standard output and exits non-zero on any surfaced error.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/timeseer-ai/kukur-go/internal/app"
	"github.com/timeseer-ai/kukur-go/pkg/metadata"
	"github.com/timeseer-ai/kukur-go/pkg/source"
	"github.com/timeseer-ai/kukur-go/pkg/table"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("kukur", flag.ContinueOnError)
	configFile := fs.String("config-file", "kukur.yaml", "path to the configuration file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		rest = []string{"serve"}
	}

	switch rest[0] {
	case "serve":
		return runServe(*configFile)
	case "test":
		return runTest(*configFile, rest[1:])
	case "api-key":
		return runApiKey(*configFile, rest[1:])
	default:
		fmt.Fprintf(os.Stderr, "kukur: unknown command %q\n", rest[0])
		return 2
	}
}

func runServe(configFile string) int {
	a, err := app.New(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kukur: %v\n", err)
		return 1
	}
	if err := a.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "kukur: %v\n", err)
		return 1
	}
	return 0
}

func runTest(configFile string, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "kukur: test requires a sub-command: search, metadata, data, plot")
		return 2
	}

	a, err := app.New(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kukur: %v\n", err)
		return 1
	}
	defer a.Close()

	ctx := context.Background()
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	switch args[0] {
	case "search":
		return testSearch(ctx, a, args[1:], w)
	case "metadata":
		return testMetadata(ctx, a, args[1:], w)
	case "data":
		return testData(ctx, a, args[1:], w, false)
	case "plot":
		return testData(ctx, a, args[1:], w, true)
	default:
		fmt.Fprintf(os.Stderr, "kukur: unknown test sub-command %q\n", args[0])
		return 2
	}
}

func testSearch(ctx context.Context, a *app.App, args []string, w *csv.Writer) int {
	fs := flag.NewFlagSet("test search", flag.ContinueOnError)
	sourceName := fs.String("source", "", "source name")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	selector, err := metadata.ParseSeriesSelector(*sourceName, "")
	if err != nil {
		return fail(err)
	}
	it, err := a.Facade().Search(ctx, selector)
	if err != nil {
		return fail(err)
	}
	items, err := source.Drain(ctx, it)
	if err != nil {
		return fail(err)
	}

	w.Write([]string{"series", "has_metadata"})
	for _, item := range items {
		w.Write([]string{item.EffectiveSelector().String(), strconv.FormatBool(item.HasMetadata())})
	}
	return 0
}

func testMetadata(ctx context.Context, a *app.App, args []string, w *csv.Writer) int {
	fs := flag.NewFlagSet("test metadata", flag.ContinueOnError)
	sourceName := fs.String("source", "", "source name")
	name := fs.String("name", "", "series name")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	selector := metadata.FromName(*sourceName, *name)
	md, err := a.Facade().GetMetadata(ctx, selector)
	if err != nil {
		return fail(err)
	}

	data := md.ToData()
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w.Write([]string{"field", "value"})
	for _, k := range keys {
		w.Write([]string{k, fmt.Sprintf("%v", data[k])})
	}
	return 0
}

func testData(ctx context.Context, a *app.App, args []string, w *csv.Writer, plot bool) int {
	fsName := "test data"
	if plot {
		fsName = "test plot"
	}
	fs := flag.NewFlagSet(fsName, flag.ContinueOnError)
	sourceName := fs.String("source", "", "source name")
	name := fs.String("name", "", "series name")
	startStr := fs.String("start", "", "range start, ISO-8601")
	endStr := fs.String("end", "", "range end, ISO-8601")
	intervalCount := fs.Int("interval-count", 0, "number of plot intervals")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	start, err := time.Parse(time.RFC3339, *startStr)
	if err != nil {
		return fail(fmt.Errorf("kukur: invalid --start: %w", err))
	}
	end, err := time.Parse(time.RFC3339, *endStr)
	if err != nil {
		return fail(fmt.Errorf("kukur: invalid --end: %w", err))
	}

	selector := metadata.FromName(*sourceName, *name)

	var rows []table.Row
	if plot {
		t, err := a.Facade().GetPlotData(ctx, selector, start, end, *intervalCount)
		if err != nil {
			return fail(err)
		}
		defer t.Release()
		rows, err = table.Rows(t)
		if err != nil {
			return fail(err)
		}
	} else {
		t, err := a.Facade().GetData(ctx, selector, start, end)
		if err != nil {
			return fail(err)
		}
		defer t.Release()
		rows, err = table.Rows(t)
		if err != nil {
			return fail(err)
		}
	}

	w.Write([]string{"ts", "value", "quality"})
	for _, row := range rows {
		quality := ""
		if row.Quality != nil {
			quality = strconv.Itoa(int(*row.Quality))
		}
		w.Write([]string{row.Timestamp.Format(time.RFC3339Nano), fmt.Sprintf("%v", row.Value), quality})
	}
	return 0
}

func runApiKey(configFile string, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "kukur: api-key requires a sub-command: create, revoke, list")
		return 2
	}

	a, err := app.New(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kukur: %v\n", err)
		return 1
	}
	defer a.Close()

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("api-key create", flag.ContinueOnError)
		name := fs.String("name", "", "key name")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		key, err := a.ApiKeys().Create(*name)
		if err != nil {
			return fail(err)
		}
		w.Write([]string{"name", "key"})
		w.Write([]string{*name, key})
		return 0

	case "revoke":
		fs := flag.NewFlagSet("api-key revoke", flag.ContinueOnError)
		name := fs.String("name", "", "key name")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if err := a.ApiKeys().Revoke(*name); err != nil {
			return fail(err)
		}
		return 0

	case "list":
		keys, err := a.ApiKeys().List()
		if err != nil {
			return fail(err)
		}
		w.Write([]string{"name", "created"})
		for _, k := range keys {
			w.Write([]string{k.Name, k.CreationDate.Format(time.RFC3339)})
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "kukur: unknown api-key sub-command %q\n", args[0])
		return 2
	}
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "kukur: %v\n", err)
	return 1
}
