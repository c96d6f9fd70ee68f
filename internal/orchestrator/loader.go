package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/SentientStage/internal/events"
)

// LoadExperienceGraph loads a scene graph from a JSON or YAML file, chosen
// by extension. Dangling references are reported as config.warning events;
// duplicate scene names are an error.
func LoadExperienceGraph(path string) (*ExperienceGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene graph file: %w", err)
	}

	var g ExperienceGraph
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("failed to parse scene graph YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("failed to parse scene graph JSON: %w", err)
		}
	}

	if g.Version != 1 {
		return nil, fmt.Errorf("unsupported scene graph version: %d", g.Version)
	}

	sort.SliceStable(g.Scenes, func(i, j int) bool {
		return g.Scenes[i].Index < g.Scenes[j].Index
	})

	warnings, err := ValidateGraph(&g)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		events.Emit("warn", "config.warning", w, map[string]interface{}{"file": path})
	}
	return &g, nil
}

// ValidateGraph checks cross references. It returns an error for duplicate
// scene or mover names and a warning for every dangling reference.
func ValidateGraph(g *ExperienceGraph) ([]string, error) {
	var warnings []string
	warn := func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	scenes := make(map[string]bool)
	for _, s := range g.Scenes {
		if s.Name == "" {
			return nil, fmt.Errorf("scene at index %d has no name", s.Index)
		}
		if scenes[s.Name] {
			return nil, fmt.Errorf("duplicate scene name: %s", s.Name)
		}
		scenes[s.Name] = true
	}

	movers := make(map[string]bool)
	for _, m := range g.Movers {
		if movers[m.Name] {
			return nil, fmt.Errorf("duplicate mover name: %s", m.Name)
		}
		movers[m.Name] = true
	}

	actors := make(map[string]bool)
	for _, a := range g.Actors {
		actors[a.ID] = true
	}

	for _, s := range g.Scenes {
		if s.DefaultMover != "" && !movers[s.DefaultMover] {
			warn("scene %s: unknown default mover %s", s.Name, s.DefaultMover)
		}
		if s.DefaultNext != "" && !scenes[s.DefaultNext] {
			warn("scene %s: unknown default next scene %s", s.Name, s.DefaultNext)
		}
		if s.Dialogue != "" && g.findDialogue(s.Dialogue) == nil {
			warn("scene %s: unknown dialogue %s", s.Name, s.Dialogue)
		}
		for _, z := range s.Zones {
			if z.Mover != "" && !movers[z.Mover] {
				warn("scene %s zone %s: unknown mover %s", s.Name, z.Name, z.Mover)
			}
			if z.NextScene != "" && !scenes[z.NextScene] {
				warn("scene %s zone %s: unknown next scene %s", s.Name, z.Name, z.NextScene)
			}
			if z.Radius != nil && *z.Radius < 0 {
				warn("scene %s zone %s: negative radius", s.Name, z.Name)
			}
		}
	}

	for _, m := range g.Movers {
		if m.TargetScene != "" && !scenes[m.TargetScene] {
			warn("mover %s: unknown target scene %s", m.Name, m.TargetScene)
		}
		if _, ok := CurveByName(m.Curve); !ok {
			warn("mover %s: unknown curve %s", m.Name, m.Curve)
		}
		steps := m.Steps
		if len(steps) == 0 {
			steps = []StepDef{{Objects: m.Objects, Targets: m.Targets}}
		}
		for i, st := range steps {
			if len(st.Objects) != len(st.Targets) {
				warn("mover %s step %d: %d objects but %d targets", m.Name, i, len(st.Objects), len(st.Targets))
			}
			for _, id := range st.Objects {
				if !actors[id] {
					warn("mover %s step %d: unknown object %s", m.Name, i, id)
				}
			}
			for _, id := range st.Targets {
				if _, ok := g.Targets[id]; !ok {
					warn("mover %s step %d: unknown target %s", m.Name, i, id)
				}
			}
		}
	}

	return warnings, nil
}
