// Command modvault-search runs a query against an index archive and prints
// the matching packages, optionally filtered by constraint parameters.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"

	"modvault/internal/search"
)

// modFlags collects repeated -mod id=version declarations.
type modFlags map[string]*semver.Version

func (m modFlags) String() string {
	parts := make([]string, 0, len(m))
	for id, v := range m {
		if v == nil {
			parts = append(parts, id)
		} else {
			parts = append(parts, id+"="+v.String())
		}
	}
	return strings.Join(parts, ",")
}

func (m modFlags) Set(value string) error {
	id, raw, hasVersion := strings.Cut(value, "=")
	if id == "" {
		return fmt.Errorf("empty mod id in %q", value)
	}
	if !hasVersion || raw == "" {
		m[id] = nil
		return nil
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("invalid version in %q: %w", value, err)
	}
	m[id] = v
	return nil
}

func main() {
	input := flag.String("input", "index.zip", "index archive to search")
	loaderVersion := flag.String("loader-version", "", "concrete loader version to filter by")
	gameVersion := flag.String("game-version", "", "concrete game version to filter by")
	checkDeps := flag.Bool("check-dependencies", false, "require every dependency to be satisfied by -mod declarations")
	page := flag.Int("page", 0, "result page")
	pageSize := flag.Int("page-size", 10, "results per page")
	mods := make(modFlags)
	flag.Var(mods, "mod", "declared mod as id=version (repeatable)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	qc, err := buildContext(*loaderVersion, *gameVersion, *checkDeps, mods)
	if err != nil {
		slog.Error("invalid constraint flags", "error", err)
		os.Exit(2)
	}

	eng, err := search.Open(*input)
	if err != nil {
		slog.Error("failed to open index", "input", *input, "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	query := strings.Join(flag.Args(), " ")
	matches, err := eng.SearchFiltered(context.Background(), query, *page, *pageSize, qc)
	if err != nil {
		slog.Error("search failed", "query", query, "error", err)
		os.Exit(1)
	}

	for _, m := range matches {
		line := fmt.Sprintf("%s\t%.3f\t%s", m.ID, m.Score, strings.Join(m.Versions, ", "))
		if m.BestVersion != nil {
			line += "\tbest=" + m.BestVersion.String()
		}
		fmt.Println(line)
	}
}

func buildContext(loader, game string, checkDeps bool, mods modFlags) (*search.QueryContext, error) {
	qc := &search.QueryContext{
		CheckDependencies: checkDeps,
		Dependencies:      mods,
	}
	if loader != "" {
		v, err := semver.NewVersion(loader)
		if err != nil {
			return nil, fmt.Errorf("invalid -loader-version %q: %w", loader, err)
		}
		qc.LoaderVersion = v
	}
	if game != "" {
		v, err := semver.NewVersion(game)
		if err != nil {
			return nil, fmt.Errorf("invalid -game-version %q: %w", game, err)
		}
		qc.GameVersion = v
	}
	return qc, nil
}
