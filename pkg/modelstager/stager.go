// Package modelstager is the Model Stager (§4.2): given a ModelGroup's
// model section, it ensures every matched file is present in the Model
// Store and writes the completion-marking manifest once all of them
// land successfully.
package modelstager

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/modelfleet/fleetctl/pkg/config"
	"github.com/modelfleet/fleetctl/pkg/fleeterr"
	"github.com/modelfleet/fleetctl/pkg/hfhub"
	"github.com/modelfleet/fleetctl/pkg/logging"
)

const defaultConcurrency = 4

// Store is the subset of pkg/modelstore.Store the stager depends on.
type Store interface {
	SaveStream(ctx context.Context, p string, src io.Reader, totalSize int64, expectedSha256 string, progress func(written, total int64)) error
	Glob(ctx context.Context, dir, pattern string) ([]string, error)
}

// Stager stages one group's model files into a Store.
type Stager struct {
	store       Store
	hf          *hfhub.Client
	http        *http.Client
	concurrency int
	logger      logging.Interface
}

// New builds a Stager. concurrency is clamped to [1, 4] per spec.md
// §4.2; 0 selects the default of 4.
func New(store Store, hf *hfhub.Client, concurrency int, logger logging.Interface) *Stager {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if concurrency > defaultConcurrency {
		concurrency = defaultConcurrency
	}
	return &Stager{store: store, hf: hf, http: &http.Client{}, concurrency: concurrency, logger: logger}
}

type stageFile struct {
	name   string // destination basename under models/{group}/
	sha256 string
	size   int64
	open   func(ctx context.Context) (io.ReadCloser, error)
}

// Stage ensures groupName's model files are present in the store. It
// is idempotent: if models/{groupName}/* already returns any member it
// skips the whole group and returns (true, nil).
func (s *Stager) Stage(ctx context.Context, groupName string, model *config.Model) (skipped bool, err error) {
	existing, err := s.store.Glob(ctx, groupName, "*")
	if err != nil {
		return false, fleeterr.New(fleeterr.StoreUnavailable, "modelstager.Stage.Glob", err).WithGroup(groupName)
	}
	if len(existing) > 0 {
		s.logger.Infof("model group %s already staged, skipping", groupName)
		return true, nil
	}

	files, err := s.resolveFiles(ctx, groupName, model)
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		return false, fleeterr.New(fleeterr.NoModelResolvable, "modelstager.Stage.resolveFiles", fmt.Errorf("no files matched")).WithGroup(groupName)
	}

	manifestFiles, err := s.stageAll(ctx, groupName, files)
	if err != nil {
		return false, err
	}

	manifest := Manifest{Name: groupName, Files: manifestFiles}
	if err := s.writeManifest(ctx, groupName, manifest); err != nil {
		return false, err
	}
	return false, nil
}

// resolveFiles picks the HTTP URL list source or the HuggingFace repo
// source per spec.md §4.2: a repo id selects HuggingFace, otherwise
// model.files is treated as a list of URLs.
func (s *Stager) resolveFiles(ctx context.Context, groupName string, model *config.Model) ([]stageFile, error) {
	if model.HFRepoID != "" {
		return s.resolveHuggingFace(ctx, groupName, model)
	}
	return s.resolveHTTP(model)
}

func (s *Stager) resolveHTTP(model *config.Model) ([]stageFile, error) {
	files := make([]stageFile, 0, len(model.Files))
	for _, u := range model.Files {
		u := u
		files = append(files, stageFile{
			name: path.Base(u),
			open: func(ctx context.Context) (io.ReadCloser, error) {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
				if err != nil {
					return nil, err
				}
				resp, err := s.http.Do(req)
				if err != nil {
					return nil, err
				}
				if resp.StatusCode != http.StatusOK {
					resp.Body.Close()
					return nil, fmt.Errorf("fetch %s: unexpected status %d", u, resp.StatusCode)
				}
				return resp.Body, nil
			},
		})
	}
	return files, nil
}

func (s *Stager) resolveHuggingFace(ctx context.Context, groupName string, model *config.Model) ([]stageFile, error) {
	if !hfhub.ValidRepoID(model.HFRepoID) {
		return nil, fleeterr.New(fleeterr.ConfigInvalid, "modelstager.resolveHuggingFace", fmt.Errorf("invalid repo id %q", model.HFRepoID)).WithGroup(groupName)
	}
	all, err := s.hf.ListFiles(ctx, model.HFRepoID)
	if err != nil {
		return nil, fleeterr.New(fleeterr.ApiUnavailable, "modelstager.resolveHuggingFace.ListFiles", err).WithGroup(groupName)
	}
	matched := hfhub.FilterByPatterns(all, model.Files)

	repoID := model.HFRepoID
	files := make([]stageFile, 0, len(matched))
	for _, f := range matched {
		f := f
		files = append(files, stageFile{
			name:   path.Base(f.Path),
			sha256: f.Sha256,
			size:   f.Size,
			open: func(ctx context.Context) (io.ReadCloser, error) {
				body, _, err := s.hf.OpenFile(ctx, repoID, f.Path)
				return body, err
			},
		})
	}
	return files, nil
}

// stageAll streams every file into the store with up to s.concurrency
// transfers in flight. The first failure cancels the remaining work and
// is returned; files already landed stay in the store, matching
// spec.md §4.2's "a single failure leaves the group partially staged"
// rule. No manifest is written, but Stage's idempotence check looks
// for any object under the group, so a later reconciliation skips the
// partially staged group rather than resuming it.
func (s *Stager) stageAll(ctx context.Context, groupName string, files []stageFile) ([]ManifestFile, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, s.concurrency)
	results := make([]ManifestFile, len(files))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, f := range files {
		i, f := i, f
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			body, err := f.open(ctx)
			if err != nil {
				s.fail(&mu, &firstErr, cancel, groupName, f.name, err)
				return
			}
			defer body.Close()

			destPath := groupName + "/" + f.name
			if err := s.store.SaveStream(ctx, destPath, body, f.size, f.sha256, nil); err != nil {
				s.fail(&mu, &firstErr, cancel, groupName, f.name, err)
				return
			}

			results[i] = ManifestFile{Name: f.name, Sha256: f.sha256}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func (s *Stager) fail(mu *sync.Mutex, firstErr *error, cancel context.CancelFunc, groupName, fileName string, err error) {
	mu.Lock()
	defer mu.Unlock()
	if *firstErr == nil {
		*firstErr = fleeterr.New(fleeterr.StoreUnavailable, "modelstager.stageAll", err).WithGroup(groupName).WithField(fileName)
		cancel()
	}
}

func (s *Stager) writeManifest(ctx context.Context, groupName string, manifest Manifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fleeterr.New(fleeterr.ConfigInvalid, "modelstager.writeManifest.Marshal", err).WithGroup(groupName)
	}
	if err := s.store.SaveStream(ctx, groupName+"/manifest.yml", strings.NewReader(string(data)), int64(len(data)), "", nil); err != nil {
		return fleeterr.New(fleeterr.StoreUnavailable, "modelstager.writeManifest.SaveStream", err).WithGroup(groupName)
	}
	return nil
}
