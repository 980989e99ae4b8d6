package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/openannotate/labelassist/internal/assist"
	"github.com/openannotate/labelassist/internal/assist/manager"
	"github.com/openannotate/labelassist/internal/assist/policy"
	"github.com/openannotate/labelassist/internal/assist/prefetch"
	"github.com/openannotate/labelassist/internal/config"
	"github.com/openannotate/labelassist/internal/generate"
)

// fileItemSource serves item content from a JSON array file, enough to drive
// warm-up runs from the command line.
type fileItemSource struct {
	items []string
}

func newFileItemSource(path string) (*fileItemSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse items file: %w", err)
	}
	return &fileItemSource{items: items}, nil
}

func (s *fileItemSource) Item(_ context.Context, index int) (string, error) {
	if index < 0 || index >= len(s.items) {
		return "", fmt.Errorf("item index %d out of range", index)
	}
	return s.items[index], nil
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	configPath := flag.String("config", os.Getenv("LABELASSIST_CONFIG"), "path to config file")
	itemsPath := flag.String("items", "", "path to JSON items file (enables -warm)")
	dump := flag.Bool("dump", false, "dump every cached suggestion")
	clearCache := flag.Bool("clear", false, "clear the suggestion cache")
	warm := flag.Bool("warm", false, "run the configured startup warm-up and wait")
	flag.Parse()

	if *configPath == "" {
		log.Fatal().Msg("no config file given (use -config or LABELASSIST_CONFIG)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if !cfg.Enabled {
		log.Fatal().Msg("assistance is disabled in config")
	}

	st, err := cfg.BuildStore()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open suggestion store")
	}

	project := &assist.Project{ItemCount: cfg.Project.ItemCount, Fields: cfg.Project.Fields}
	pol := policy.New(cfg.Include.All, cfg.Include.SpecialInclude)

	var build prefetch.ComputeBuilder = func(key assist.Key) assist.ComputeFunc {
		return func(context.Context) (string, error) {
			return "", fmt.Errorf("no backend configured")
		}
	}

	if *itemsPath != "" {
		source, err := newFileItemSource(*itemsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load items")
		}
		backend, err := generate.NewHTTPBackend(generate.BackendConfig{
			URL:     cfg.Backend.URL,
			APIKey:  cfg.Backend.APIKey,
			Model:   cfg.Backend.Model,
			Timeout: cfg.Backend.Timeout,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build backend")
		}
		gen := generate.NewGenerator(backend, source, 0)
		build = func(key assist.Key) assist.ComputeFunc {
			return gen.ComputeFunc(project.Fields[key.Field], key)
		}
	}

	m := manager.New(manager.Config{
		Workers:          cfg.Workers,
		DiskCacheEnabled: cfg.DiskCache.Enabled,
		OnNext:           cfg.Prefetch.OnNext,
		OnPrev:           cfg.Prefetch.OnPrev,
	}, st, project, pol, build)
	defer m.Close()

	switch {
	case *clearCache:
		if err := m.Clear(); err != nil {
			log.Fatal().Err(err).Msg("failed to clear cache")
		}
		fmt.Println("cache cleared")

	case *warm:
		if err := m.WarmAndWait(context.Background(), 0, cfg.Prefetch.WarmUpPageCount); err != nil {
			log.Fatal().Err(err).Msg("warm-up failed")
		}
		printStats(m.Stats())

	default:
		printStats(m.Stats())
		entries, err := st.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load store")
		}
		printBreakdown(entries, *dump)
	}
}

func printStats(s assist.Stats) {
	fmt.Printf("disk cache enabled: %v\n", s.DiskCacheEnabled)
	fmt.Printf("cached suggestions: %d\n", s.CachedItemCount)
	fmt.Printf("in progress:        %d\n", s.InProgressCount)
}

func printBreakdown(entries map[string]string, dump bool) {
	byAssistant := map[string]int{}
	for raw, value := range entries {
		key, err := assist.ParseKey(raw)
		if err != nil {
			byAssistant["(invalid)"]++
			continue
		}
		byAssistant[key.Assistant]++
		if dump {
			fmt.Printf("%s\t%s\n", raw, value)
		}
	}

	names := make([]string, 0, len(byAssistant))
	for name := range byAssistant {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nby assistant:")
	for _, name := range names {
		fmt.Printf("  %-12s %d\n", name, byAssistant[name])
	}
}
