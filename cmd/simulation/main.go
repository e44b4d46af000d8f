package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"ai-budtender-be/internal/dto"
	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/internal/repository/memory"
	"ai-budtender-be/internal/service"
	"ai-budtender-be/pkg/cache"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/executor"
	"ai-budtender-be/pkg/recommend/filter"
	"ai-budtender-be/pkg/recommend/fuzzy"
	"ai-budtender-be/pkg/recommend/intent"
	"ai-budtender-be/pkg/recommend/policy"
	"ai-budtender-be/pkg/recommend/ranking"
	"ai-budtender-be/pkg/recommend/session"
	"ai-budtender-be/pkg/recommend/taxonomy"
	"ai-budtender-be/pkg/store"

	"github.com/fatih/color"
)

// Each script is one conversation; turns share a session.
var scripts = map[string][]string{
	"en": {
		"hello",
		"I need something to help me sleep",
		"which has less thc?",
		"tell me about the first one",
		"show more like these",
		"something energetic but no paranoia",
		"thanks!",
	},
	"es": {
		"hola",
		"quiero algo para dormir sin ansiedad",
		"¿cuál tiene menos thc?",
		"cuentame de la primera",
		"algo con sabor a limón",
	},
}

type chatFunc func(req dto.ChatRequest) (*dto.RecommendResponse, error)

func main() {
	baseURL := flag.String("url", "http://localhost:3000/api/recommend/v1", "recommendation API base URL")
	local := flag.Bool("local", false, "run against an in-process catalog instead of a server")
	dataFile := flag.String("data", "data/strains.json", "catalog file for -local")
	lang := flag.String("lang", "en", "script to run (en or es)")
	flag.Parse()

	script, ok := scripts[*lang]
	if !ok {
		color.Red("Unknown script %q", *lang)
		os.Exit(1)
	}

	var chat chatFunc
	if *local {
		svc, err := localService(*dataFile)
		if err != nil {
			log.Fatalf("Failed to build local service: %v", err)
		}
		chat = func(req dto.ChatRequest) (*dto.RecommendResponse, error) {
			return svc.Chat(context.Background(), &req)
		}
		color.Cyan("=== Budtender Simulation (local catalog: %s) ===", *dataFile)
	} else {
		chat = func(req dto.ChatRequest) (*dto.RecommendResponse, error) {
			return remoteChat(*baseURL, req)
		}
		color.Cyan("=== Budtender Simulation (%s) ===", *baseURL)
	}

	sessionID := ""
	for _, text := range script {
		color.Yellow("\nUSER: %s", text)

		start := time.Now()
		res, err := chat(dto.ChatRequest{Message: text, SessionID: sessionID})
		elapsed := time.Since(start)
		if err != nil {
			color.Red("Error: %v", err)
			continue
		}
		sessionID = res.SessionID
		printTurn(res, elapsed)
	}
}

func printTurn(res *dto.RecommendResponse, elapsed time.Duration) {
	color.Green("BUDTENDER (%v, %s/%s, lang=%s, fallback=%v):", elapsed.Round(time.Millisecond), res.DetectedIntent, res.QueryType, res.Language, res.IsFallback)
	fmt.Println(res.ResponseText)
	if len(res.FiltersApplied) > 0 {
		var parts []string
		for _, f := range res.FiltersApplied {
			parts = append(parts, fmt.Sprintf("%s %s %v (p%d)", f.Field, f.Operator, f.Value, f.Priority))
		}
		color.HiBlack("  filters: %s", strings.Join(parts, "; "))
	}
	for _, w := range res.Warnings {
		color.Magenta("  warning: %s", w)
	}
}

func remoteChat(baseURL string, payload dto.ChatRequest) (*dto.RecommendResponse, error) {
	jsonBytes, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPost, baseURL+"/chat", bytes.NewBuffer(jsonBytes))
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	var res struct {
		Data dto.RecommendResponse `json:"data"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}
	return &res.Data, nil
}

type catalogFile struct {
	Strains []struct {
		Name        string   `json:"name"`
		Type        string   `json:"type"`
		ThcLevel    string   `json:"thc_level"`
		CbdLevel    string   `json:"cbd_level"`
		Description string   `json:"description"`
		Effects     []string `json:"effects"`
		HelpsWith   []string `json:"helps_with"`
		Negatives   []string `json:"negatives"`
		Flavors     []string `json:"flavors"`
		Terpenes    []string `json:"terpenes"`
	} `json:"strains"`
	Translations map[string]map[string]string `json:"translations"`
}

// localService wires the recommendation pipeline over an in-memory catalog with the keyword analyzer.
func localService(path string) (service.IRecommendationService, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, err
	}

	items := make([]store.Strain, len(file.Strains))
	for i, s := range file.Strains {
		items[i] = store.Strain{
			ID:          int64(i + 1),
			Name:        s.Name,
			Category:    s.Type,
			THC:         s.ThcLevel,
			CBD:         s.CbdLevel,
			Description: s.Description,
			Effects:     s.Effects,
			MedicalUses: s.HelpsWith,
			Negatives:   s.Negatives,
			Flavors:     s.Flavors,
			Terpenes:    s.Terpenes,
		}
	}
	repo := memory.NewCatalogRepository(items...)
	for lang, names := range file.Translations {
		for canonical, localized := range names {
			repo.SetAlias(lang, localized, canonical)
		}
	}

	log := logger.NewNopLogger()
	tax := taxonomy.NewCache(repo, taxonomy.DefaultConfig(), log)
	pipe := filter.NewPipeline(repo, tax, fuzzy.NewMatcher(log), nil, nil, filter.DefaultConfig(), log)
	exec := executor.NewExecutor(pipe, ranking.NewEngine(ranking.DefaultConfig(), nil, log), 10, log)

	return service.NewRecommendationService(service.RecommendationDependencies{
		Sessions:  session.NewManager(cache.NewMemoryClient(time.Minute), session.DefaultConfig(), log),
		Catalog:   repo,
		Taxonomy:  tax,
		Analyzer:  intent.NewFallbackAnalyzer(nil, intent.NewRuleBasedAnalyzer(), time.Second, log),
		Resolver:  policy.NewResolver(policy.DefaultConfig(), log),
		Executor:  exec,
		Publisher: service.NewPublisherService(nil, log),
		Options:   criteria.DefaultParseOptions(),
		Log:       log,
	}), nil
}
