// Copyright 2025, the fabdeploy authors.  All rights reserved.

package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/fabdeploy/fabdeploy/pkg/diag"
	"github.com/fabdeploy/fabdeploy/pkg/resource"
	"github.com/fabdeploy/fabdeploy/pkg/resource/deploy"
	"github.com/fabdeploy/fabdeploy/pkg/util/logging"
)

// jsonFolderTypes are discovered as flat `<Folder>/<name>.json` definition files.
var jsonFolderTypes = []resource.Type{
	resource.TypeLakehouse,
	resource.TypeEnvironment,
	resource.TypeSparkJobDefinition,
	resource.TypeDataPipeline,
	resource.TypeVariableLibrary,
	resource.TypeSemanticModel,
	resource.TypeReport,
	resource.TypePaginatedReport,
}

// Discoverer scans the artifacts tree and registers everything it finds.  Malformed definition
// files are warnings: the artifact is left out of the run, and the rest of the tree still deploys.
type Discoverer struct {
	dir  string // repository directory containing the artifacts root.
	root string // artifacts root folder name within dir.
	sink diag.Sink
}

// NewDiscoverer creates a discoverer over dir/root.
func NewDiscoverer(dir, root string, sink diag.Sink) *Discoverer {
	return &Discoverer{dir: dir, root: root, sink: sink}
}

// Discover walks the artifacts tree and registers every artifact into the registry.
func (d *Discoverer) Discover(reg *deploy.Registry) error {
	for _, t := range jsonFolderTypes {
		if err := d.discoverJSONFolder(reg, t); err != nil {
			return err
		}
	}
	if err := d.discoverNotebooks(reg); err != nil {
		return err
	}
	if err := d.discoverViews(reg); err != nil {
		return err
	}
	logging.V(3).Infof("discovered %d artifacts under %s/%s", reg.Len(), d.dir, d.root)
	return nil
}

func (d *Discoverer) folder(t resource.Type) (string, bool) {
	name, has := resource.FolderName(t)
	if !has {
		return "", false
	}
	dir := filepath.Join(d.dir, d.root, name)
	if _, err := os.Stat(dir); err != nil {
		logging.V(5).Infof("no %s directory, skipping", name)
		return "", false
	}
	return dir, true
}

// jsonArtifact is the common shape of flat JSON definition files.  Unknown fields belong to the
// artifact's payload and pass through untouched.
type jsonArtifact struct {
	Name         string   `json:"name"`
	Dependencies []string `json:"dependencies"`
}

func (d *Discoverer) discoverJSONFolder(reg *deploy.Registry, t resource.Type) error {
	dir, has := d.folder(t)
	if !has {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return errors.Wrapf(err, "scanning %s", dir)
	}
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			d.sink.Warningf("skipping unreadable definition %s: %v", file, err)
			continue
		}
		var def jsonArtifact
		if err := json.Unmarshal(raw, &def); err != nil {
			d.sink.Warningf("skipping malformed definition %s: %v", file, err)
			continue
		}
		name := def.Name
		if name == "" {
			name = stem(file)
		}
		if err := d.register(reg, &resource.Artifact{
			ID:           resource.NewID(t, stem(file)),
			Type:         t,
			DisplayName:  name,
			Dependencies: toIDs(def.Dependencies),
			Source:       file,
		}); err != nil {
			return err
		}
	}
	return nil
}

// discoverNotebooks handles both flat `<name>.ipynb` files and the git-sync folder format
// (`<Name>.Notebook/` with a `.platform` metadata file and a content file).  A flat file wins when
// both formats name the same notebook.
func (d *Discoverer) discoverNotebooks(reg *deploy.Registry) error {
	dir, has := d.folder(resource.TypeNotebook)
	if !has {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "scanning %s", dir)
	}

	seen := map[string]bool{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".ipynb") {
			continue
		}
		file := filepath.Join(dir, entry.Name())
		name := stem(file)
		seen[name] = true
		if err := d.register(reg, &resource.Artifact{
			ID:           resource.NewID(resource.TypeNotebook, name),
			Type:         resource.TypeNotebook,
			DisplayName:  name,
			Dependencies: notebookDependencies(file, d.sink),
			Source:       file,
		}); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folder := filepath.Join(dir, entry.Name())
		content := notebookContentFile(folder)
		platformFile := filepath.Join(folder, ".platform")
		if content == "" {
			continue
		}
		if _, err := os.Stat(platformFile); err != nil {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".Notebook")
		display, deps := platformMetadata(platformFile, d.sink)
		if display == "" {
			display = name
		}
		if seen[name] || seen[display] {
			logging.V(5).Infof("notebook '%s' already discovered as .ipynb, skipping folder", display)
			continue
		}
		if err := d.register(reg, &resource.Artifact{
			ID:           resource.NewID(resource.TypeNotebook, name),
			Type:         resource.TypeNotebook,
			DisplayName:  display,
			Dependencies: deps,
			Source:       content,
		}); err != nil {
			return err
		}
	}
	return nil
}

// discoverViews scans `Views/<lakehouse>/*.sql`.  Every view depends on its lakehouse; additional
// view-to-view edges come from the lakehouse folder's metadata.json.
func (d *Discoverer) discoverViews(reg *deploy.Registry) error {
	dir, has := d.folder(resource.TypeSQLView)
	if !has {
		return nil
	}
	lakehouses, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "scanning %s", dir)
	}

	for _, lh := range lakehouses {
		if !lh.IsDir() {
			continue
		}
		lakehouse := lh.Name()
		lhDir := filepath.Join(dir, lakehouse)
		depsMap := viewMetadata(filepath.Join(lhDir, "metadata.json"), d.sink)

		files, err := filepath.Glob(filepath.Join(lhDir, "*.sql"))
		if err != nil {
			return errors.Wrapf(err, "scanning %s", lhDir)
		}
		for _, file := range files {
			view := stem(file)
			deps := []resource.ID{resource.NewID(resource.TypeLakehouse, lakehouse)}
			for _, ref := range depsMap[view].Views {
				// References use schema.viewname; only the view name resolves locally.
				depName := ref
				if i := strings.LastIndex(ref, "."); i >= 0 {
					depName = ref[i+1:]
				}
				deps = append(deps, resource.NewID(resource.TypeSQLView, lakehouse+"/"+depName))
			}
			if err := d.register(reg, &resource.Artifact{
				ID:           resource.NewID(resource.TypeSQLView, lakehouse+"/"+view),
				Type:         resource.TypeSQLView,
				DisplayName:  view,
				Dependencies: deps,
				Source:       file,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Discoverer) register(reg *deploy.Registry, a *resource.Artifact) error {
	logging.V(5).Infof("discovered %s '%s' (%v)", a.Type, a.DisplayName, a.ID)
	return reg.Register(a)
}

// notebookDependencies reads dependency hints from an .ipynb file's top-level metadata.
func notebookDependencies(file string, sink diag.Sink) []resource.ID {
	raw, err := os.ReadFile(file)
	if err != nil {
		sink.Warningf("could not read %s: %v", file, err)
		return nil
	}
	var nb struct {
		Metadata struct {
			Dependencies []string `json:"dependencies"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &nb); err != nil {
		sink.Warningf("could not parse notebook metadata in %s: %v", file, err)
		return nil
	}
	return toIDs(nb.Metadata.Dependencies)
}

// platformMetadata reads the display name and dependency hints from a .platform file.
func platformMetadata(file string, sink diag.Sink) (string, []resource.ID) {
	raw, err := os.ReadFile(file)
	if err != nil {
		sink.Warningf("could not read %s: %v", file, err)
		return "", nil
	}
	var pf struct {
		Metadata struct {
			DisplayName  string   `json:"displayName"`
			Dependencies []string `json:"dependencies"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &pf); err != nil {
		sink.Warningf("could not parse %s: %v", file, err)
		return "", nil
	}
	return pf.Metadata.DisplayName, toIDs(pf.Metadata.Dependencies)
}

// viewDeps is one view's entry in a lakehouse metadata.json dependency table.
type viewDeps struct {
	Tables []string `json:"tables"`
	Views  []string `json:"views"`
}

func viewMetadata(file string, sink diag.Sink) map[string]viewDeps {
	raw, err := os.ReadFile(file)
	if err != nil {
		if !os.IsNotExist(err) {
			sink.Warningf("could not read %s: %v", file, err)
		}
		return nil
	}
	var meta struct {
		Dependencies map[string]viewDeps `json:"dependencies"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		sink.Warningf("could not parse %s: %v", file, err)
		return nil
	}
	return meta.Dependencies
}

func notebookContentFile(folder string) string {
	for _, name := range []string{"notebook-content.py", "notebook-content.ipynb"} {
		candidate := filepath.Join(folder, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func stem(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func toIDs(raw []string) []resource.ID {
	if len(raw) == 0 {
		return nil
	}
	ids := make([]resource.ID, len(raw))
	for i, r := range raw {
		ids[i] = resource.ID(r)
	}
	return ids
}
