package repository

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"
)

// BlobStore is the object storage the test files live in.
type BlobStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

type TestCaseStore interface {
	ListTests(ctx context.Context, problemID string) ([]model.TestCase, error)
	SaveTests(ctx context.Context, problemID string, files []model.TestFile) error
	DeleteTests(ctx context.Context, problemID string) error
	// PruneTests deletes every test file of the problem whose name is not in keep.
	PruneTests(ctx context.Context, problemID string, keep []string) error
	GetFile(ctx context.Context, problemID, fileName string) ([]byte, error)
}

var testFileName = regexp.MustCompile(`^(\d+)_(in|out)\.txt$`)

// ParseTestFileName splits "12_out.txt" into (12, "out").
func ParseTestFileName(name string) (int, string, bool) {
	m := testFileName.FindStringSubmatch(name)
	if m == nil {
		return 0, "", false
	}
	index, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return index, m[2], true
}

// ValidateTestFiles requires at least one pair and both halves of every pair.
func ValidateTestFiles(files []model.TestFile) error {
	if len(files) == 0 {
		return fmt.Errorf("at least one test case is required: %w", common.ErrValidation)
	}
	halves := map[int]map[string]bool{}
	for _, f := range files {
		index, kind, ok := ParseTestFileName(f.Name)
		if !ok {
			return fmt.Errorf("invalid test file name %q: %w", f.Name, common.ErrValidation)
		}
		if halves[index] == nil {
			halves[index] = map[string]bool{}
		}
		if halves[index][kind] {
			return fmt.Errorf("duplicate test file %q: %w", f.Name, common.ErrValidation)
		}
		halves[index][kind] = true
	}
	for index, kinds := range halves {
		if !kinds["in"] || !kinds["out"] {
			return fmt.Errorf("test case %d needs both an input and an output file: %w", index, common.ErrValidation)
		}
	}
	return nil
}

type blobTestCaseStore struct {
	blobs BlobStore
}

func NewBlobTestCaseStore(blobs BlobStore) TestCaseStore {
	return &blobTestCaseStore{blobs: blobs}
}

func testKey(problemID, fileName string) string {
	return path.Join(problemID, fileName)
}

func (s *blobTestCaseStore) ListTests(ctx context.Context, problemID string) ([]model.TestCase, error) {
	keys, err := s.blobs.List(ctx, problemID+"/")
	if err != nil {
		return nil, fmt.Errorf("blobTestCaseStore.ListTests: %w", err)
	}

	byIndex := map[int]*model.TestCase{}
	seen := map[int]map[string]bool{}
	for _, key := range keys {
		index, kind, ok := ParseTestFileName(path.Base(key))
		if !ok {
			continue
		}
		content, err := s.blobs.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("blobTestCaseStore.ListTests get %s: %w", key, err)
		}
		tc, ok := byIndex[index]
		if !ok {
			tc = &model.TestCase{Index: index}
			byIndex[index] = tc
			seen[index] = map[string]bool{}
		}
		seen[index][kind] = true
		if kind == "in" {
			tc.Input = string(content)
		} else {
			tc.ExpectedOutput = strings.TrimSuffix(string(content), "\n")
		}
	}

	tests := make([]model.TestCase, 0, len(byIndex))
	for index, tc := range byIndex {
		if !seen[index]["in"] || !seen[index]["out"] {
			return nil, fmt.Errorf("test case %d of problem %s is incomplete", index, problemID)
		}
		tests = append(tests, *tc)
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].Index < tests[j].Index })
	return tests, nil
}

func (s *blobTestCaseStore) SaveTests(ctx context.Context, problemID string, files []model.TestFile) error {
	for _, f := range files {
		if err := s.blobs.Put(ctx, testKey(problemID, f.Name), f.Content, "text/plain"); err != nil {
			return fmt.Errorf("blobTestCaseStore.SaveTests %s: %w", f.Name, err)
		}
	}
	return nil
}

func (s *blobTestCaseStore) DeleteTests(ctx context.Context, problemID string) error {
	keys, err := s.blobs.List(ctx, problemID+"/")
	if err != nil {
		return fmt.Errorf("blobTestCaseStore.DeleteTests: %w", err)
	}
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			return fmt.Errorf("blobTestCaseStore.DeleteTests %s: %w", key, err)
		}
	}
	return nil
}

func (s *blobTestCaseStore) PruneTests(ctx context.Context, problemID string, keep []string) error {
	keys, err := s.blobs.List(ctx, problemID+"/")
	if err != nil {
		return fmt.Errorf("blobTestCaseStore.PruneTests: %w", err)
	}
	for _, key := range keys {
		if slices.Contains(keep, path.Base(key)) {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			return fmt.Errorf("blobTestCaseStore.PruneTests %s: %w", key, err)
		}
	}
	return nil
}

func (s *blobTestCaseStore) GetFile(ctx context.Context, problemID, fileName string) ([]byte, error) {
	if _, _, ok := ParseTestFileName(fileName); !ok {
		return nil, common.ErrNotFound
	}
	return s.blobs.Get(ctx, testKey(problemID, fileName))
}
