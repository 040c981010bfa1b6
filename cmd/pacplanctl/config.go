package main

import (
	"encoding/json"
	"fmt"
	"os"

	"pacplan/internal/grid"
	api "pacplan/pkg/pacplan"
)

func loadEvolveRequestFromConfig(path string) (api.EvolveRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.EvolveRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return api.EvolveRequest{}, err
	}

	var req api.EvolveRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["continue_population_id"]); ok {
		req.ContinuePopulationID = v
	}
	if v, ok := asString(raw["role"]); ok {
		req.Role = v
	}
	if v, ok := asInt(raw["population"]); ok {
		req.PopulationSize = v
	}
	if v, ok := asInt(raw["chromosome_length"]); ok {
		req.ChromosomeLength = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asInt(raw["calls"]); ok {
		req.Calls = v
	}
	if v, ok := asFloat64(raw["mutation_rate"]); ok {
		req.MutationRate = v
	}
	if v, ok := asInt(raw["elite_size"]); ok {
		req.EliteSize = v
	}
	if v, ok := asString(raw["selection"]); ok {
		req.Selection = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}

	if v, ok := raw["start"]; ok {
		p, err := asPosition(v)
		if err != nil {
			return api.EvolveRequest{}, fmt.Errorf("start: %w", err)
		}
		req.Start = p
	}
	if v, ok := raw["target"]; ok {
		p, err := asPosition(v)
		if err != nil {
			return api.EvolveRequest{}, fmt.Errorf("target: %w", err)
		}
		req.Target = &p
	}
	if v, ok := raw["pursuers"]; ok {
		ps, err := asPositions(v)
		if err != nil {
			return api.EvolveRequest{}, fmt.Errorf("pursuers: %w", err)
		}
		req.Pursuers = ps
	}
	if v, ok := raw["collectibles"]; ok {
		ps, err := asPositions(v)
		if err != nil {
			return api.EvolveRequest{}, fmt.Errorf("collectibles: %w", err)
		}
		req.Collectibles = ps
	}
	if v, ok := raw["maze"].([]any); ok {
		lines := make([]string, 0, len(v))
		for i, item := range v {
			line, ok := asString(item)
			if !ok {
				return api.EvolveRequest{}, fmt.Errorf("maze row %d is not a string", i)
			}
			lines = append(lines, line)
		}
		m, err := grid.ParseMaze(lines)
		if err != nil {
			return api.EvolveRequest{}, fmt.Errorf("maze: %w", err)
		}
		req.Maze = m
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

// asPosition accepts [x, y], {"x": x, "y": y} or "x,y".
func asPosition(v any) (grid.Position, error) {
	switch x := v.(type) {
	case string:
		return parsePosition(x)
	case []any:
		if len(x) != 2 {
			return grid.Position{}, fmt.Errorf("want [x, y], got %d values", len(x))
		}
		px, okX := asInt(x[0])
		py, okY := asInt(x[1])
		if !okX || !okY {
			return grid.Position{}, fmt.Errorf("non-numeric coordinate in %v", x)
		}
		return grid.Position{X: px, Y: py}, nil
	case map[string]any:
		px, okX := asInt(x["x"])
		py, okY := asInt(x["y"])
		if !okX || !okY {
			return grid.Position{}, fmt.Errorf("want {\"x\", \"y\"}, got %v", x)
		}
		return grid.Position{X: px, Y: py}, nil
	default:
		return grid.Position{}, fmt.Errorf("unsupported position %v", v)
	}
}

func asPositions(v any) ([]grid.Position, error) {
	if s, ok := v.(string); ok {
		return parsePositions(s)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("want a list of positions, got %T", v)
	}
	out := make([]grid.Position, 0, len(items))
	for i, item := range items {
		p, err := asPosition(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func overrideFromFlags(req *api.EvolveRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "continue-pop-id":
			req.ContinuePopulationID = v.(string)
		case "role":
			req.Role = v.(string)
		case "from":
			p, err := parsePosition(v.(string))
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			req.Start = p
		case "target":
			if v.(string) == "" {
				continue
			}
			p, err := parsePosition(v.(string))
			if err != nil {
				return fmt.Errorf("--target: %w", err)
			}
			req.Target = &p
		case "ghosts":
			ps, err := parsePositions(v.(string))
			if err != nil {
				return fmt.Errorf("--ghosts: %w", err)
			}
			req.Pursuers = ps
		case "coins":
			ps, err := parsePositions(v.(string))
			if err != nil {
				return fmt.Errorf("--coins: %w", err)
			}
			req.Collectibles = ps
		case "pop":
			req.PopulationSize = v.(int)
		case "chromosome":
			req.ChromosomeLength = v.(int)
		case "gens":
			req.Generations = v.(int)
		case "calls":
			req.Calls = v.(int)
		case "mutation-rate":
			req.MutationRate = v.(float64)
		case "elite":
			req.EliteSize = v.(int)
		case "selection":
			req.Selection = v.(string)
		case "seed":
			req.Seed = v.(int64)
		}
	}
	if req.Role == "" {
		req.Role = "pursued"
	}
	return nil
}

func loadOrDefaultEvolveRequest(configPath string) (api.EvolveRequest, error) {
	if configPath == "" {
		return api.EvolveRequest{}, nil
	}
	req, err := loadEvolveRequestFromConfig(configPath)
	if err != nil {
		return api.EvolveRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}
