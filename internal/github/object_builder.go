package github

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/commit-painter/internal/models"
)

// ObjectBuilder appends one commit (blob, tree, commit) on top of a parent.
// It never moves a branch reference.
type ObjectBuilder struct {
	api      ObjectAPI
	author   models.CommitAuthor
	location *time.Location
	logger   *logrus.Logger
	now      func() time.Time

	mu   sync.Mutex
	rand *rand.Rand
	seq  uint64
}

// BuilderOption configures an ObjectBuilder
type BuilderOption func(*ObjectBuilder)

// WithAuthor sets the identity used for author and committer.
func WithAuthor(author models.CommitAuthor) BuilderOption {
	return func(b *ObjectBuilder) {
		b.author = author
	}
}

// WithLocation sets the time zone in which target dates are interpreted.
func WithLocation(loc *time.Location) BuilderOption {
	return func(b *ObjectBuilder) {
		if loc != nil {
			b.location = loc
		}
	}
}

// WithRandSource makes payloads and times reproducible.
func WithRandSource(src rand.Source) BuilderOption {
	return func(b *ObjectBuilder) {
		b.rand = rand.New(src)
	}
}

// WithClock replaces time.Now for file naming.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *ObjectBuilder) {
		b.now = now
	}
}

// NewObjectBuilder creates a new object builder
func NewObjectBuilder(api ObjectAPI, logger *logrus.Logger, opts ...BuilderOption) *ObjectBuilder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	b := &ObjectBuilder{
		api:      api,
		location: time.UTC,
		logger:   logger,
		now:      time.Now,
		rand:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DefaultAuthor is the noreply identity GitHub attributes to login.
func DefaultAuthor(login string) models.CommitAuthor {
	return models.CommitAuthor{
		Name:  login,
		Email: login + "@users.noreply.github.com",
	}
}

// AppendCommit creates a commit for unit whose only parent is parentSHA and returns its SHA.
func (b *ObjectBuilder) AppendCommit(ctx context.Context, repo *models.RepositoryRef, parentSHA string, unit models.CommitUnit) (string, error) {
	owner, name := repo.Owner, repo.Name

	parent, err := b.api.GetCommit(ctx, owner, name, parentSHA)
	if err != nil {
		return "", fmt.Errorf("failed to get parent commit %s: %w", shortSHA(parentSHA), err)
	}

	timestamp, nonce, path := b.draw(unit)

	content := fmt.Sprintf("Last updated: %s\nRandom: %016x\nCommit: %d of %d\n",
		timestamp.Format(time.RFC3339), nonce, unit.Position, unit.Total)
	blob, err := b.api.CreateBlob(ctx, owner, name, []byte(content))
	if err != nil {
		return "", fmt.Errorf("failed to create blob: %w", err)
	}

	tree, err := b.api.CreateTree(ctx, owner, name, parent.Tree.SHA, []TreeEntry{{
		Path: path,
		Mode: "100644",
		Type: "blob",
		SHA:  blob,
	}})
	if err != nil {
		return "", fmt.Errorf("failed to create tree: %w", err)
	}

	author := b.author
	if author.Name == "" {
		author = DefaultAuthor(owner)
	}
	signature := &Signature{Name: author.Name, Email: author.Email, Date: timestamp}

	sha, err := b.api.CreateCommit(ctx, owner, name, NewCommit{
		Message:   unit.Message,
		Tree:      tree,
		Parents:   []string{parentSHA},
		Author:    signature,
		Committer: signature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create commit: %w", err)
	}

	b.logger.WithFields(logrus.Fields{
		"sha":      shortSHA(sha),
		"parent":   shortSHA(parentSHA),
		"date":     unit.TargetDate.Format(models.DateLayout),
		"position": unit.Position,
	}).Debug("Created commit")

	return sha, nil
}

// draw picks the time of day, the payload nonce and a collision-free file path.
func (b *ObjectBuilder) draw(unit models.CommitUnit) (time.Time, uint64, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	y, m, d := unit.TargetDate.Date()
	timestamp := time.Date(y, m, d, b.rand.IntN(24), b.rand.IntN(60), b.rand.IntN(60), 0, b.location)
	nonce := b.rand.Uint64()
	path := fmt.Sprintf("commit-%d-%d-%08x.txt", b.now().UnixNano(), b.seq, uint32(nonce))
	return timestamp, nonce, path
}
