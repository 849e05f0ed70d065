// Package githubtest serves an in-memory GitHub repository and Git data API for tests.
package githubtest

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"
)

// Operation names accepted by FailOn and Calls.
const (
	OpGetRepo      = "get_repo"
	OpCreateRepo   = "create_repo"
	OpGetRef       = "get_ref"
	OpCreateRef    = "create_ref"
	OpUpdateRef    = "update_ref"
	OpGetCommit    = "get_commit"
	OpCreateBlob   = "create_blob"
	OpCreateTree   = "create_tree"
	OpCreateCommit = "create_commit"
)

// Commit is a stored commit object
type Commit struct {
	SHA        string
	Message    string
	Tree       string
	Parents    []string
	AuthorName string
	AuthorDate time.Time
}

type repository struct {
	defaultBranch string
	refs          map[string]string
}

type failure struct {
	call   int
	status int
}

// Server is a fake GitHub API backed by maps
type Server struct {
	*httptest.Server

	// Login is the authenticated user repositories are created for.
	Login string

	mu       sync.Mutex
	repos    map[string]*repository
	commits  map[string]*Commit
	trees    map[string]map[string]string
	blobs    map[string][]byte
	calls    map[string]int
	failures map[string][]failure
	counter  int
}

// NewServer starts a fake API; callers must Close it.
func NewServer(login string) *Server {
	s := &Server{
		Login:    login,
		repos:    make(map[string]*repository),
		commits:  make(map[string]*Commit),
		trees:    make(map[string]map[string]string),
		blobs:    make(map[string][]byte),
		calls:    make(map[string]int),
		failures: make(map[string][]failure),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}", s.handle(OpGetRepo, s.getRepo))
	mux.HandleFunc("POST /user/repos", s.handle(OpCreateRepo, s.createRepo))
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/ref/heads/{branch}", s.handle(OpGetRef, s.getRef))
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/refs", s.handle(OpCreateRef, s.createRef))
	mux.HandleFunc("PATCH /repos/{owner}/{repo}/git/refs/heads/{branch}", s.handle(OpUpdateRef, s.updateRef))
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/commits/{sha}", s.handle(OpGetCommit, s.getCommit))
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/blobs", s.handle(OpCreateBlob, s.createBlob))
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/trees", s.handle(OpCreateTree, s.createTree))
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/commits", s.handle(OpCreateCommit, s.createCommit))

	s.Server = httptest.NewServer(mux)
	return s
}

// AddRepository registers owner/name. An initialized repository gets a README commit on main.
func (s *Server) AddRepository(owner, name string, initialized bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addRepositoryLocked(owner, name, initialized)
}

func (s *Server) addRepositoryLocked(owner, name string, initialized bool) *repository {
	repo := &repository{defaultBranch: "main", refs: make(map[string]string)}
	s.repos[owner+"/"+name] = repo
	if initialized {
		blob := s.storeBlob([]byte("# " + name + "\n"))
		tree := s.storeTree("", map[string]string{"README.md": blob})
		repo.refs["main"] = s.storeCommit(&Commit{Message: initialCommit, Tree: tree, AuthorName: owner, AuthorDate: time.Now().UTC()})
	}
	return repo
}

const initialCommit = "Initial commit"

// FailOn makes the n-th call (1-based, counted from now) to op answer with status.
func (s *Server) FailOn(op string, n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], failure{call: s.calls[op] + n, status: status})
}

// Calls returns how many requests op has received.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Tip returns the SHA refs/heads/<branch> points at, or "".
func (s *Server) Tip(owner, name, branch string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if repo, ok := s.repos[owner+"/"+name]; ok {
		return repo.refs[branch]
	}
	return ""
}

// HasRepository reports whether owner/name exists.
func (s *Server) HasRepository(owner, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.repos[owner+"/"+name]
	return ok
}

// Commit returns a stored commit.
func (s *Server) Commit(sha string) (*Commit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commits[sha]
	return c, ok
}

// History walks first parents from sha back to the root, newest first.
func (s *Server) History(sha string) []*Commit {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Commit
	for sha != "" {
		c, ok := s.commits[sha]
		if !ok {
			break
		}
		out = append(out, c)
		if len(c.Parents) == 0 {
			break
		}
		sha = c.Parents[0]
	}
	return out
}

// TreeFiles lists the paths in a tree.
func (s *Server) TreeFiles(tree string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var paths []string
	for p := range s.trees[tree] {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// BlobContent returns the content of the blob at path in tree.
func (s *Server) BlobContent(tree, path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.blobs[s.trees[tree][path]])
}

// PushForeignCommit simulates another writer advancing the branch.
func (s *Server) PushForeignCommit(owner, name, branch string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo := s.repos[owner+"/"+name]
	parent := repo.refs[branch]
	var parents []string
	var base string
	if parent != "" {
		parents = []string{parent}
		base = s.commits[parent].Tree
	}
	blob := s.storeBlob([]byte("foreign"))
	tree := s.storeTree(base, map[string]string{"foreign.txt": blob})
	sha := s.storeCommit(&Commit{Message: "foreign", Tree: tree, Parents: parents, AuthorDate: time.Now().UTC()})
	repo.refs[branch] = sha
	return sha
}

func (s *Server) handle(op string, fn func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[op]++
		call := s.calls[op]
		status := 0
		pending := s.failures[op][:0]
		for _, f := range s.failures[op] {
			if f.call == call {
				status = f.status
				continue
			}
			pending = append(pending, f)
		}
		s.failures[op] = pending
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, fmt.Sprintf("injected %s failure", op))
			return
		}
		fn(w, r)
	}
}

func (s *Server) repo(r *http.Request) (*repository, bool) {
	repo, ok := s.repos[r.PathValue("owner")+"/"+r.PathValue("repo")]
	return repo, ok
}

func (s *Server) repoJSON(owner, name string, repo *repository) map[string]interface{} {
	return map[string]interface{}{
		"name":           name,
		"full_name":      owner + "/" + name,
		"default_branch": repo.defaultBranch,
		"html_url":       s.URL + "/" + owner + "/" + name,
		"owner":          map[string]string{"login": owner},
	}
}

func (s *Server) getRepo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.repo(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, s.repoJSON(r.PathValue("owner"), r.PathValue("repo"), repo))
}

func (s *Server) createRepo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		AutoInit bool   `json:"auto_init"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.repos[s.Login+"/"+body.Name]; exists {
		writeError(w, http.StatusUnprocessableEntity, "name already exists on this account")
		return
	}
	repo := s.addRepositoryLocked(s.Login, body.Name, body.AutoInit)
	writeJSON(w, http.StatusCreated, s.repoJSON(s.Login, body.Name, repo))
}

func (s *Server) getRef(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.repo(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	if len(repo.refs) == 0 {
		writeError(w, http.StatusConflict, "Git Repository is empty.")
		return
	}
	branch := r.PathValue("branch")
	sha, ok := repo.refs[branch]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ref":    "refs/heads/" + branch,
		"object": map[string]string{"sha": sha, "type": "commit"},
	})
}

func (s *Server) createRef(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.repo(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	branch := strings.TrimPrefix(body.Ref, "refs/heads/")
	if _, exists := repo.refs[branch]; exists {
		writeError(w, http.StatusUnprocessableEntity, "Reference already exists")
		return
	}
	if _, ok := s.commits[body.SHA]; !ok {
		writeError(w, http.StatusUnprocessableEntity, "Object does not exist")
		return
	}
	repo.refs[branch] = body.SHA
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"ref":    body.Ref,
		"object": map[string]string{"sha": body.SHA, "type": "commit"},
	})
}

func (s *Server) updateRef(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SHA   string `json:"sha"`
		Force bool   `json:"force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.repo(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	branch := r.PathValue("branch")
	current, ok := repo.refs[branch]
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "Reference does not exist")
		return
	}
	if _, ok := s.commits[body.SHA]; !ok {
		writeError(w, http.StatusUnprocessableEntity, "Object does not exist")
		return
	}
	if !body.Force && !s.isAncestor(current, body.SHA) {
		writeError(w, http.StatusUnprocessableEntity, "Update is not a fast forward")
		return
	}
	repo.refs[branch] = body.SHA
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ref":    "refs/heads/" + branch,
		"object": map[string]string{"sha": body.SHA, "type": "commit"},
	})
}

func (s *Server) isAncestor(ancestor, sha string) bool {
	for sha != "" {
		if sha == ancestor {
			return true
		}
		c, ok := s.commits[sha]
		if !ok || len(c.Parents) == 0 {
			return false
		}
		sha = c.Parents[0]
	}
	return false
}

func (s *Server) getCommit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commits[r.PathValue("sha")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	parents := make([]map[string]string, 0, len(c.Parents))
	for _, p := range c.Parents {
		parents = append(parents, map[string]string{"sha": p})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sha":     c.SHA,
		"message": c.Message,
		"tree":    map[string]string{"sha": c.Tree},
		"parents": parents,
	})
}

func (s *Server) createBlob(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	content := []byte(body.Content)
	if body.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(body.Content)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid base64")
			return
		}
		content = decoded
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"sha": s.storeBlob(content)})
}

func (s *Server) createTree(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BaseTree string `json:"base_tree"`
		Tree     []struct {
			Path string `json:"path"`
			SHA  string `json:"sha"`
		} `json:"tree"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if body.BaseTree != "" {
		if _, ok := s.trees[body.BaseTree]; !ok {
			writeError(w, http.StatusUnprocessableEntity, "base_tree does not exist")
			return
		}
	}
	entries := make(map[string]string, len(body.Tree))
	for _, e := range body.Tree {
		if _, ok := s.blobs[e.SHA]; !ok {
			writeError(w, http.StatusUnprocessableEntity, "blob does not exist")
			return
		}
		entries[e.Path] = e.SHA
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sha": s.storeTree(body.BaseTree, entries)})
}

func (s *Server) createCommit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string   `json:"message"`
		Tree    string   `json:"tree"`
		Parents []string `json:"parents"`
		Author  *struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trees[body.Tree]; !ok {
		writeError(w, http.StatusUnprocessableEntity, "tree does not exist")
		return
	}
	for _, p := range body.Parents {
		if _, ok := s.commits[p]; !ok {
			writeError(w, http.StatusUnprocessableEntity, "parent does not exist")
			return
		}
	}
	c := &Commit{Message: body.Message, Tree: body.Tree, Parents: body.Parents, AuthorDate: time.Now().UTC()}
	if body.Author != nil {
		c.AuthorName = body.Author.Name
		c.AuthorDate = body.Author.Date
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sha": s.storeCommit(c)})
}

func (s *Server) nextSHA(kind string, data []byte) string {
	s.counter++
	h := sha1.New()
	fmt.Fprintf(h, "%s %d\x00", kind, s.counter)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Server) storeBlob(content []byte) string {
	sha := s.nextSHA("blob", content)
	s.blobs[sha] = content
	return sha
}

func (s *Server) storeTree(base string, entries map[string]string) string {
	merged := make(map[string]string, len(s.trees[base])+len(entries))
	for p, b := range s.trees[base] {
		merged[p] = b
	}
	for p, b := range entries {
		merged[p] = b
	}
	sha := s.nextSHA("tree", nil)
	s.trees[sha] = merged
	return sha
}

func (s *Server) storeCommit(c *Commit) string {
	c.SHA = s.nextSHA("commit", []byte(c.Message))
	s.commits[c.SHA] = c
	return c.SHA
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-RateLimit-Limit", "5000")
	w.Header().Set("X-RateLimit-Remaining", "4999")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
