package cli

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/aidanlsb/sceneql/internal/scene"
	"github.com/aidanlsb/sceneql/internal/scenedb"
	"github.com/aidanlsb/sceneql/internal/scenefile"
)

// sceneSource is an opened data source plus the handle to release it.
type sceneSource struct {
	scene.Source
	db    *scenedb.DB  // set for --db sources
	graph *scene.Graph // set for --scene sources
	path  string
}

func (s *sceneSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// resolveScenePaths picks the scene to query: explicit flags first, then the
// config defaults. A database wins over a snapshot file.
func resolveScenePaths() (scenePath, dbPath string) {
	scenePath = strings.TrimSpace(sceneFlag)
	dbPath = strings.TrimSpace(dbFlag)
	if scenePath != "" || dbPath != "" {
		if dbPath != "" {
			return "", dbPath
		}
		return scenePath, ""
	}
	c := getConfig()
	if c.DefaultDB != "" {
		return "", c.DefaultDB
	}
	return c.DefaultScene, ""
}

// openSource opens the scene named by the flags or config.
func openSource() (*sceneSource, error) {
	scenePath, dbPath := resolveScenePaths()
	switch {
	case dbPath != "":
		// Open creates missing files, so check first.
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("scene database %s: %w", dbPath, err)
		}
		db, err := scenedb.Open(dbPath)
		if err != nil {
			return nil, err
		}
		return &sceneSource{Source: db, db: db, path: dbPath}, nil
	case scenePath != "":
		g, err := scenefile.Load(scenePath)
		if err != nil {
			return nil, err
		}
		return &sceneSource{Source: g, graph: g, path: scenePath}, nil
	}
	return nil, fmt.Errorf("no scene specified: %w", fs.ErrNotExist)
}

// findByName returns the nodes whose short name matches pattern, anchored at
// the start like the match operator. Databases filter in SQL.
func (s *sceneSource) findByName(pattern string) (scene.NodeSet, error) {
	if s.db != nil {
		ids, err := s.db.FindByName(pattern)
		if err != nil {
			return nil, err
		}
		return scene.NewNodeSet(ids...), nil
	}

	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return nil, fmt.Errorf("invalid name pattern %q: %w", pattern, err)
	}
	out := scene.NewNodeSet()
	for _, spec := range s.graph.Nodes() {
		if re.MatchString(spec.ID.ShortName()) {
			out.Add(spec.ID)
		}
	}
	return out, nil
}
