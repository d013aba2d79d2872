// Package history keeps every saved version of a page in its own git
// repository so earlier revisions can be listed and read back.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const contentFile = "page.json"

var (
	ErrNoHistory       = errors.New("page has no history")
	ErrUnknownRevision = errors.New("revision not found")
)

// Content is the versioned part of a page.
type Content struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Icon       string `json:"icon"`
	CoverImage string `json:"coverImage"`
}

// Revision describes one commit in a page repository.
type Revision struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Record commits content to the page repository, creating it on first use.
// When content is identical to the latest revision no commit is made and
// the latest revision is returned.
func (s *Service) Record(pageID string, content Content, author, message string) (Revision, error) {
	path, err := s.repoPath(pageID)
	if err != nil {
		return Revision{}, err
	}
	lock := s.pageLock(pageID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = initRepo(path)
	}
	if err != nil {
		return Revision{}, fmt.Errorf("open repo: %w", err)
	}

	if head, err := repo.Head(); err == nil {
		latest, err := repo.CommitObject(head.Hash())
		if err != nil {
			return Revision{}, fmt.Errorf("load head commit: %w", err)
		}
		previous, err := readContent(latest)
		if err != nil {
			return Revision{}, err
		}
		if !HasChanges(previous, content) {
			return toRevision(latest), nil
		}
	}

	hash, err := commit(repo, content, author, message)
	if err != nil {
		return Revision{}, err
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Revision{}, fmt.Errorf("read commit object: %w", err)
	}
	return toRevision(commitObj), nil
}

// History lists revisions newest first. limit <= 0 returns all of them.
func (s *Service) History(pageID string, limit int) ([]Revision, error) {
	repo, unlock, err := s.open(pageID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	head, err := repo.Head()
	if err != nil {
		return nil, ErrNoHistory
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Revision, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toRevision(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// ContentAt returns the page content stored in revision hash. Abbreviated
// hashes are accepted.
func (s *Service) ContentAt(pageID, hash string) (Content, Revision, error) {
	repo, unlock, err := s.open(pageID)
	if err != nil {
		return Content{}, Revision{}, err
	}
	defer unlock()

	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return Content{}, Revision{}, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		return Content{}, Revision{}, ErrUnknownRevision
	}
	content, err := readContent(commitObj)
	if err != nil {
		return Content{}, Revision{}, err
	}
	return content, toRevision(commitObj), nil
}

// Remove deletes the repository of a page.
func (s *Service) Remove(pageID string) error {
	path, err := s.repoPath(pageID)
	if err != nil {
		return err
	}
	lock := s.pageLock(pageID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove repo: %w", err)
	}
	s.lockMu.Lock()
	delete(s.locks, pageID)
	s.lockMu.Unlock()
	return nil
}

func (s *Service) open(pageID string) (*git.Repository, func(), error) {
	path, err := s.repoPath(pageID)
	if err != nil {
		return nil, nil, err
	}
	lock := s.pageLock(pageID)
	lock.Lock()

	repo, err := git.PlainOpen(path)
	if err != nil {
		lock.Unlock()
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil, ErrNoHistory
		}
		return nil, nil, fmt.Errorf("open repo: %w", err)
	}
	return repo, lock.Unlock, nil
}

func (s *Service) repoPath(pageID string) (string, error) {
	if pageID == "" || pageID == "." || pageID == ".." || strings.ContainsAny(pageID, `/\`) {
		return "", fmt.Errorf("invalid page id %q", pageID)
	}
	return filepath.Join(s.baseDir, pageID), nil
}

func (s *Service) pageLock(pageID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[pageID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[pageID] = lock
	return lock
}

func initRepo(path string) (*git.Repository, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err := git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func commit(repo *git.Repository, content Content, author, message string) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("marshal content: %w", err)
	}
	root := worktree.Filesystem.Root()
	if err := os.WriteFile(filepath.Join(root, contentFile), append(payload, '\n'), 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write %s: %w", contentFile, err)
	}
	if _, err := worktree.Add(contentFile); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git add content: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@users.notespace.local", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit content: %w", err)
	}
	return hash, nil
}

func readContent(commitObj *object.Commit) (Content, error) {
	file, err := commitObj.File(contentFile)
	if err != nil {
		return Content{}, fmt.Errorf("load %s from commit: %w", contentFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return Content{}, fmt.Errorf("open content reader: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return Content{}, fmt.Errorf("read content bytes: %w", err)
	}
	var content Content
	if err := json.Unmarshal(raw, &content); err != nil {
		return Content{}, fmt.Errorf("decode commit content: %w", err)
	}
	return content, nil
}

// Change is one field that differs between two revisions.
type Change struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// DiffFields lists changed fields sorted by name. Page bodies are reported
// as changed without their full text.
func DiffFields(from, to Content) []Change {
	pairs := []Change{
		{Field: "title", Before: from.Title, After: to.Title},
		{Field: "icon", Before: from.Icon, After: to.Icon},
		{Field: "coverImage", Before: from.CoverImage, After: to.CoverImage},
	}
	result := make([]Change, 0)
	for _, item := range pairs {
		if item.Before != item.After {
			result = append(result, item)
		}
	}
	if from.Content != to.Content {
		result = append(result, Change{Field: "content", Before: "[page body]", After: "[page body]"})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Field < result[j].Field
	})
	return result
}

func HasChanges(from, to Content) bool {
	return from != to
}

func toRevision(commitObj *object.Commit) Revision {
	return Revision{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	if len(hash) < 4 {
		return plumbing.ZeroHash, ErrUnknownRevision
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, ErrUnknownRevision
	}
	return *resolved, nil
}
