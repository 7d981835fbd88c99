package cipher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var (
	// ErrRecipeNotFound is returned when no recipe has the given ID or name.
	ErrRecipeNotFound = errors.New("recipe not found")
	// ErrBuiltinRecipe is returned when deleting or overwriting a built-in.
	ErrBuiltinRecipe = errors.New("built-in recipe cannot be modified")
)

// Recipe is a named, saved pipeline.
type Recipe struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Tags        []string  `yaml:"tags,omitempty" json:"tags,omitempty"`
	Pipeline    Pipeline  `yaml:"pipeline" json:"pipeline"`
	Builtin     bool      `yaml:"-" json:"builtin"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at"`
}

// Run executes the recipe. overrides are merged into every step's params and
// win over the saved values, which is how keys are supplied at run time.
func (r *Recipe) Run(ctx context.Context, input []byte, overrides Params) ([]byte, error) {
	return r.Pipeline.WithParams(overrides).Execute(ctx, input)
}

// WithParams returns a copy of p with extra merged into each step.
func (p *Pipeline) WithParams(extra Params) *Pipeline {
	out := &Pipeline{Steps: make([]Step, len(p.Steps))}
	for i, step := range p.Steps {
		merged := make(Params, len(step.Params)+len(extra))
		for k, v := range step.Params {
			merged[k] = v
		}
		for k, v := range extra {
			merged[k] = v
		}
		out.Steps[i] = Step{Name: step.Name, Params: merged}
	}
	return out
}

var builtinRecipes = []Recipe{
	{
		Name:        "vigenere-base64",
		Description: "Vigenère-encode with key, then Base64 the result",
		Tags:        []string{"vigenere", "base64"},
		Pipeline:    Pipeline{Steps: []Step{{Name: "vigenere_encode"}, {Name: "base64_encode"}}},
	},
	{
		Name:        "feistel-hex",
		Description: "Feistel-encrypt with an 8-character key and print the blocks as hex",
		Tags:        []string{"feistel", "hex"},
		Pipeline:    Pipeline{Steps: []Step{{Name: "feistel_encrypt"}, {Name: "hex_encode"}}},
	},
	{
		Name:        "xor-base64",
		Description: "XOR with a repeating key, then Base64 the result",
		Tags:        []string{"xor", "base64"},
		Pipeline:    Pipeline{Steps: []Step{{Name: "xor"}, {Name: "base64_encode"}}},
	},
	{
		Name:        "caesar-binary",
		Description: "Caesar-shift, then write every byte as 8 bits",
		Tags:        []string{"caesar", "binary"},
		Pipeline:    Pipeline{Steps: []Step{{Name: "caesar_encode"}, {Name: "binary_encode"}}},
	},
}

// builtinID derives a stable ID so built-ins keep their ID across runs.
func builtinID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("cipherkit/recipe/"+name)).String()
}

// RecipeStore keeps recipes in memory and, when dir is set, one YAML file per
// recipe under dir.
type RecipeStore struct {
	dir      string
	registry *Registry

	mu      sync.RWMutex
	recipes map[string]*Recipe
}

// NewRecipeStore returns a store holding the built-in recipes. Call Load to
// read saved recipes from dir.
func NewRecipeStore(dir string) *RecipeStore {
	s := &RecipeStore{
		dir:      dir,
		registry: defaultRegistry,
		recipes:  make(map[string]*Recipe),
	}
	for i := range builtinRecipes {
		r := builtinRecipes[i]
		r.ID = builtinID(r.Name)
		r.Builtin = true
		s.recipes[r.ID] = &r
	}
	return s
}

// Dir returns the directory recipes are persisted to.
func (s *RecipeStore) Dir() string {
	return s.dir
}

// Load reads every *.yaml and *.yml file in dir.
func (s *RecipeStore) Load() error {
	if s.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read recipes directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read recipe %s: %w", entry.Name(), err)
		}
		var r Recipe
		if err := yaml.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("parse recipe %s: %w", entry.Name(), err)
		}
		if r.ID == "" {
			r.ID = strings.TrimSuffix(entry.Name(), ext)
		}
		s.recipes[r.ID] = &r
	}
	return nil
}

// Save validates the pipeline, assigns an ID and timestamps, and persists r.
func (s *RecipeStore) Save(r *Recipe) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("recipe name cannot be empty")
	}
	if len(r.Pipeline.Steps) == 0 {
		return fmt.Errorf("recipe %s has no steps", r.Name)
	}
	for i, step := range r.Pipeline.Steps {
		if _, ok := s.registry.Get(step.Name); !ok {
			return fmt.Errorf("recipe %s step %d: %w: %s", r.Name, i, ErrUnknownOperation, step.Name)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID != "" {
		if existing, ok := s.recipes[r.ID]; ok && existing.Builtin {
			return ErrBuiltinRecipe
		}
	}
	for _, existing := range s.recipes {
		if existing.Name != r.Name {
			continue
		}
		if existing.Builtin {
			return ErrBuiltinRecipe
		}
		// saving under an existing name updates that recipe
		if r.ID == "" {
			r.ID = existing.ID
			r.CreatedAt = existing.CreatedAt
		}
	}

	now := time.Now().UTC()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	r.Builtin = false

	if s.dir != "" {
		if err := s.persist(r); err != nil {
			return err
		}
	}
	s.recipes[r.ID] = r
	return nil
}

func (s *RecipeStore) persist(r *Recipe) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create recipes directory: %w", err)
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode recipe: %w", err)
	}
	if err := os.WriteFile(s.path(r.ID), data, 0o644); err != nil {
		return fmt.Errorf("write recipe: %w", err)
	}
	return nil
}

func (s *RecipeStore) path(id string) string {
	return filepath.Join(s.dir, id+".yaml")
}

// Get finds a recipe by ID, then by name.
func (s *RecipeStore) Get(ref string) (*Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.lookup(ref)
	if err != nil {
		return nil, err
	}
	cp := *r
	return &cp, nil
}

func (s *RecipeStore) lookup(ref string) (*Recipe, error) {
	if r, ok := s.recipes[ref]; ok {
		return r, nil
	}
	for _, r := range s.recipes {
		if r.Name == ref {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, ref)
}

// List returns every recipe sorted by name.
func (s *RecipeStore) List() []*Recipe {
	return s.Search("")
}

// Search matches query case-insensitively against name, description and
// tags. An empty query matches everything.
func (s *RecipeStore) Search(query string) []*Recipe {
	q := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Recipe, 0, len(s.recipes))
	for _, r := range s.recipes {
		if q == "" || matchesRecipe(r, q) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func matchesRecipe(r *Recipe, q string) bool {
	if strings.Contains(strings.ToLower(r.Name), q) || strings.Contains(strings.ToLower(r.Description), q) {
		return true
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Delete removes a saved recipe and its file.
func (s *RecipeStore) Delete(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.lookup(ref)
	if err != nil {
		return err
	}
	if r.Builtin {
		return ErrBuiltinRecipe
	}
	if s.dir != "" {
		if err := os.Remove(s.path(r.ID)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete recipe file: %w", err)
		}
	}
	delete(s.recipes, r.ID)
	return nil
}
