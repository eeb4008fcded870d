package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/pelletier/go-toml/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/arkshepherds/game/engine"
	"github.com/wricardo/mcp-training/arkshepherds/game/service"
)

var (
	ErrConfigNotFound = service.ErrLevelNotFound
	ErrInvalidConfig  = errors.New("invalid configuration")
)

//go:embed level.schema.json
var levelSchemaJSON []byte

const schemaURL = "level.schema.json"

// extensions are tried in this order when a level is requested without one
var extensions = []string{".json", ".yaml", ".yml", ".toml"}

var levelSchema = func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(levelSchemaJSON)); err != nil {
		panic(fmt.Sprintf("level schema: %v", err))
	}
	return compiler.MustCompile(schemaURL)
}()

// Manager handles level configuration loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.LevelConfig
	configs       map[string]*engine.LevelConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.LevelConfig),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// LoadConfig loads a level by ID. The ID is the file name, with or without
// its extension.
func (m *Manager) LoadConfig(name string) (*engine.LevelConfig, error) {
	id := levelID(name)

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	path, ok := m.findFile(name)
	if !ok {
		if suggestion := m.suggest(id); suggestion != "" {
			return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrConfigNotFound, id, suggestion)
		}
		return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, id)
	}

	config, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	m.configs[id] = config
	return config, nil
}

// ListConfigs returns information about all loadable levels ordered by ID
func (m *Manager) ListConfigs() ([]*service.LevelInfo, error) {
	ids, err := m.levelIDs()
	if err != nil {
		return nil, err
	}

	var levels []*service.LevelInfo
	for _, id := range ids {
		config, err := m.LoadConfig(id.name)
		if err != nil {
			// Skip invalid levels
			continue
		}
		built, err := engine.BuildLevel(config)
		if err != nil {
			continue
		}
		levels = append(levels, &service.LevelInfo{
			Filename:    id.file,
			LevelID:     id.name,
			Name:        config.Name,
			Description: config.Description,
			Width:       config.Width,
			Height:      config.Height,
			Shepherds:   len(built.Agents),
			Entrances:   len(built.Entrances),
			Animals:     len(built.Items),
			Format:      strings.TrimPrefix(filepath.Ext(id.file), "."),
		})
	}

	return levels, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.LevelConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache reloads all cached configurations from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.LevelConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// SaveConfig validates a level and writes it as JSON
func (m *Manager) SaveConfig(name string, config *engine.LevelConfig) error {
	if err := engine.ValidateLevelConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := validateSchema(data); err != nil {
		return err
	}

	id := levelID(name)
	configPath := filepath.Join(m.configDir, id+".json")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[id] = config
	m.mu.Unlock()

	return nil
}

// Suggest returns the known level ID closest to name, or "" when none is close
func (m *Manager) Suggest(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.suggest(levelID(name))
}

func (m *Manager) suggest(name string) string {
	ids, err := m.levelIDs()
	if err != nil {
		return ""
	}
	best, bestDist := "", -1
	for _, id := range ids {
		dist := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(id.name))
		if dist > suggestionLimit(len(id.name)) {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = id.name, dist
		}
	}
	return best
}

func suggestionLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

type levelFile struct {
	name string
	file string
}

// levelIDs lists level files in the directory, one per ID, sorted by ID
func (m *Manager) levelIDs() ([]levelFile, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := map[string]bool{}
	var ids []levelFile
	for _, entry := range entries {
		if entry.IsDir() || !isLevelFile(entry.Name()) {
			continue
		}
		name := levelID(entry.Name())
		if seen[name] {
			continue
		}
		seen[name] = true
		ids = append(ids, levelFile{name: name, file: entry.Name()})
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].name < ids[j].name })
	return ids, nil
}

func (m *Manager) findFile(name string) (string, bool) {
	if isLevelFile(name) {
		path := filepath.Join(m.configDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
		return "", false
	}
	for _, ext := range extensions {
		path := filepath.Join(m.configDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// loadDefaultConfig loads the first level of the campaign as the default
func (m *Manager) loadDefaultConfig() error {
	levels, err := m.ListConfigs()
	if err != nil || len(levels) == 0 {
		m.setDefault(createMinimalConfig())
		return nil
	}

	config, err := m.LoadConfig(levels[0].LevelID)
	if err != nil {
		m.setDefault(createMinimalConfig())
		return nil
	}
	m.setDefault(config)
	return nil
}

func (m *Manager) setDefault(config *engine.LevelConfig) {
	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
}

// LoadFile reads, schema-checks and validates a level file. The format is
// picked from the extension.
func LoadFile(path string) (*engine.LevelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a level from JSON, YAML or TOML. Every format is normalized
// to JSON and checked against the level schema before decoding.
func Parse(data []byte, ext string) (*engine.LevelConfig, error) {
	normalized, err := toJSON(data, ext)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validateSchema(normalized); err != nil {
		return nil, err
	}

	var config engine.LevelConfig
	if err := json.Unmarshal(normalized, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := engine.ValidateLevelConfig(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &config, nil
}

func toJSON(data []byte, ext string) ([]byte, error) {
	var doc map[string]any
	switch strings.ToLower(ext) {
	case ".json", "":
		return data, nil
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported level format %q", ext)
	}
	return json.Marshal(doc)
}

func validateSchema(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := levelSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LevelFiles returns the paths of every level file in dir, sorted by name
func LevelFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read level directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && isLevelFile(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func isLevelFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func levelID(name string) string {
	if isLevelFile(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

// createMinimalConfig creates a minimal valid level
func createMinimalConfig() *engine.LevelConfig {
	return &engine.LevelConfig{
		Name:        "default",
		Description: "Default minimal level",
		Width:       4,
		Height:      3,
		Layout: []string{
			"#ss#",
			"1..E",
			"####",
		},
		Animals: map[string]string{"s": "sheep"},
	}
}
