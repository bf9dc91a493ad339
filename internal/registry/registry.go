package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/events"
)

var (
	ErrModelNotFound   = errors.New("model not found")
	ErrModelExists     = errors.New("model already exists")
	ErrVersionNotFound = errors.New("model version not found")
	ErrInvalidName     = errors.New("model name must be 1-64 chars of a-z, 0-9, '-' or '_'")
)

const (
	metadataFile = "metadata.json"
	versionsDir  = "versions"
)

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ModelMetadata describes a registered model and which version serves
type ModelMetadata struct {
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Framework     string    `json:"framework,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	ActiveVersion string    `json:"active_version,omitempty"`
	Pinned        bool      `json:"pinned"`
	LatestNumber  int       `json:"latest_number"`
	VersionCount  int       `json:"version_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ModelVersion is one immutable saved version of a model
type ModelVersion struct {
	ID         string                 `json:"id"`
	Model      string                 `json:"model"`
	Number     int                    `json:"number"`
	Metrics    map[string]float64     `json:"metrics,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Features   []string               `json:"features,omitempty"`
	Notes      string                 `json:"notes,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// VersionInput is the caller-supplied part of a new version
type VersionInput struct {
	Metrics    map[string]float64     `json:"metrics"`
	Parameters map[string]interface{} `json:"parameters"`
	Features   []string               `json:"features"`
	Notes      string                 `json:"notes"`
}

// Registry stores model metadata and versions as JSON files under a root directory:
//
//	<root>/<model>/metadata.json
//	<root>/<model>/versions/<id>.json
type Registry struct {
	root        string
	maxVersions int
	bus         events.Publisher
	logger      *logrus.Logger
	now         func() time.Time
	mu          sync.Mutex
}

// New creates the root directory if needed. maxVersions < 1 disables pruning on save.
func New(root string, maxVersions int, bus events.Publisher, logger *logrus.Logger) (*Registry, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model storage: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		root:        root,
		maxVersions: maxVersions,
		bus:         bus,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Root returns the storage directory
func (r *Registry) Root() string {
	return r.root
}

// RegisterModel creates a model with no versions
func (r *Registry) RegisterModel(name, description, framework string, tags []string) (*ModelMetadata, error) {
	if !validName.MatchString(name) {
		return nil, ErrInvalidName
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.metadataPath(name)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrModelExists, name)
	}
	if err := os.MkdirAll(filepath.Join(r.root, name, versionsDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model directory: %w", err)
	}

	now := r.now().UTC()
	meta := &ModelMetadata{
		Name:        name,
		Description: description,
		Framework:   framework,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.writeMetadata(meta); err != nil {
		return nil, err
	}
	r.logger.WithField("model", name).Info("Registered model")
	return meta, nil
}

// GetModel returns a model's metadata
func (r *Registry) GetModel(name string) (*ModelMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readMetadata(name)
}

// ListModels returns every registered model sorted by name
func (r *Registry) ListModels() ([]ModelMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	models := []ModelMetadata{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := r.readMetadata(e.Name())
		if err != nil {
			if errors.Is(err, ErrModelNotFound) {
				continue
			}
			return nil, err
		}
		models = append(models, *meta)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// SaveVersion appends a new version. The active version follows the latest
// unless one has been pinned with Activate. Versions beyond maxVersions are
// pruned oldest first.
func (r *Registry) SaveVersion(name string, in VersionInput) (*ModelVersion, error) {
	r.mu.Lock()
	meta, err := r.readMetadata(name)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	v := &ModelVersion{
		ID:         uuid.New().String(),
		Model:      name,
		Number:     meta.LatestNumber + 1,
		Metrics:    in.Metrics,
		Parameters: in.Parameters,
		Features:   in.Features,
		Notes:      in.Notes,
		CreatedAt:  r.now().UTC(),
	}
	if err := writeJSON(r.versionPath(name, v.ID), v); err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("failed to write version: %w", err)
	}

	meta.LatestNumber = v.Number
	if !meta.Pinned {
		meta.ActiveVersion = v.ID
	}
	meta.UpdatedAt = v.CreatedAt

	var pruned int
	if r.maxVersions > 0 {
		pruned, err = r.pruneLocked(meta, r.maxVersions)
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
	}
	if err := r.syncCountLocked(meta); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"model":   name,
		"version": v.Number,
		"id":      v.ID,
		"pruned":  pruned,
	}).Info("Saved model version")

	if r.bus != nil {
		r.bus.Publish(events.TopicRegistryVersionSaved, "registry", v)
	}
	return v, nil
}

// GetVersion returns one version by ID
func (r *Registry) GetVersion(name, id string) (*ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.readMetadata(name); err != nil {
		return nil, err
	}
	return r.readVersion(name, id)
}

// ListVersions returns a model's versions in ascending version number
func (r *Registry) ListVersions(name string) ([]ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.readMetadata(name); err != nil {
		return nil, err
	}
	return r.listVersionsLocked(name)
}

// LatestVersion returns the highest numbered version
func (r *Registry) LatestVersion(name string) (*ModelVersion, error) {
	versions, err := r.ListVersions(name)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s has no versions", ErrVersionNotFound, name)
	}
	latest := versions[len(versions)-1]
	return &latest, nil
}

// ActiveVersion returns the version currently serving
func (r *Registry) ActiveVersion(name string) (*ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, err := r.readMetadata(name)
	if err != nil {
		return nil, err
	}
	if meta.ActiveVersion == "" {
		return nil, fmt.Errorf("%w: %s has no active version", ErrVersionNotFound, name)
	}
	return r.readVersion(name, meta.ActiveVersion)
}

// Activate pins a version as active so later saves do not replace it
func (r *Registry) Activate(name, id string) (*ModelMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, err := r.readMetadata(name)
	if err != nil {
		return nil, err
	}
	if _, err := r.readVersion(name, id); err != nil {
		return nil, err
	}
	meta.ActiveVersion = id
	meta.Pinned = true
	meta.UpdatedAt = r.now().UTC()
	if err := r.writeMetadata(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// DeleteVersion removes a version. Deleting the active version unpins the
// model and makes the latest remaining version active.
func (r *Registry) DeleteVersion(name, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, err := r.readMetadata(name)
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s/%s", ErrVersionNotFound, name, id)
	}
	if err := os.Remove(r.versionPath(name, id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s/%s", ErrVersionNotFound, name, id)
		}
		return fmt.Errorf("failed to delete version: %w", err)
	}
	if meta.ActiveVersion == id {
		meta.Pinned = false
		meta.ActiveVersion = ""
		versions, err := r.listVersionsLocked(name)
		if err != nil {
			return err
		}
		if len(versions) > 0 {
			meta.ActiveVersion = versions[len(versions)-1].ID
		}
	}
	meta.UpdatedAt = r.now().UTC()
	return r.syncCountLocked(meta)
}

// Prune keeps the newest keep versions of a model and returns how many were removed.
// A pinned active version is never removed.
func (r *Registry) Prune(name string, keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("keep must be at least 1, got %d", keep)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, err := r.readMetadata(name)
	if err != nil {
		return 0, err
	}
	removed, err := r.pruneLocked(meta, keep)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		meta.UpdatedAt = r.now().UTC()
	}
	return removed, r.syncCountLocked(meta)
}

// PruneAll applies the configured version cap to every model
func (r *Registry) PruneAll() (int, error) {
	if r.maxVersions < 1 {
		return 0, nil
	}
	models, err := r.ListModels()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, m := range models {
		n, err := r.Prune(m.Name, r.maxVersions)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (r *Registry) pruneLocked(meta *ModelMetadata, keep int) (int, error) {
	versions, err := r.listVersionsLocked(meta.Name)
	if err != nil {
		return 0, err
	}
	excess := len(versions) - keep
	removed := 0
	for _, v := range versions {
		if removed >= excess {
			break
		}
		if meta.Pinned && v.ID == meta.ActiveVersion {
			continue
		}
		if err := os.Remove(r.versionPath(meta.Name, v.ID)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to prune version %s: %w", v.ID, err)
		}
		removed++
	}
	return removed, nil
}

// syncCountLocked refreshes VersionCount and writes the metadata
func (r *Registry) syncCountLocked(meta *ModelMetadata) error {
	versions, err := r.listVersionsLocked(meta.Name)
	if err != nil {
		return err
	}
	meta.VersionCount = len(versions)
	return r.writeMetadata(meta)
}

func (r *Registry) listVersionsLocked(name string) ([]ModelVersion, error) {
	entries, err := os.ReadDir(filepath.Join(r.root, name, versionsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []ModelVersion{}, nil
		}
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	versions := []ModelVersion{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		v, err := r.readVersion(name, strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Number < versions[j].Number })
	return versions, nil
}

func (r *Registry) readMetadata(name string) (*ModelMetadata, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	var meta ModelMetadata
	if err := readJSON(r.metadataPath(name), &meta); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
		}
		return nil, err
	}
	return &meta, nil
}

func (r *Registry) readVersion(name, id string) (*ModelVersion, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrVersionNotFound, name, id)
	}
	var v ModelVersion
	if err := readJSON(r.versionPath(name, id), &v); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrVersionNotFound, name, id)
		}
		return nil, err
	}
	return &v, nil
}

func (r *Registry) writeMetadata(meta *ModelMetadata) error {
	if err := writeJSON(r.metadataPath(meta.Name), meta); err != nil {
		return fmt.Errorf("failed to write model metadata: %w", err)
	}
	return nil
}

func (r *Registry) metadataPath(name string) string {
	return filepath.Join(r.root, name, metadataFile)
}

func (r *Registry) versionPath(name, id string) string {
	return filepath.Join(r.root, name, versionsDir, id+".json")
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("corrupt registry file %s: %w", path, err)
	}
	return nil
}

// writeJSON writes through a temp file and rename so readers never see a partial file
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
