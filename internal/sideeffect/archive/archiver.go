// Package archive renders the signed-form PDF of a new declaration and files
// it under the archive root.
package archive

//go:generate mockgen -source=archiver.go -destination=mocks/mocks.go -package=mocks PathStore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cpcaisse/internal/sideeffect"
	id "cpcaisse/pkg/domain"
)

// PathStore records where a declaration's PDF was written. It is the only
// write the archiver makes to a declaration.
type PathStore interface {
	SetPDFPath(ctx context.Context, declID id.DeclarationID, path string) error
}

type Archiver struct {
	root   string
	store  PathStore
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Archiver)

func WithClock(now func() time.Time) Option {
	return func(a *Archiver) {
		a.now = now
	}
}

func New(root string, store PathStore, logger *slog.Logger, opts ...Option) *Archiver {
	a := &Archiver{
		root:   root,
		store:  store,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register subscribes the archiver to new declarations.
func (a *Archiver) Register(r *sideeffect.Router) {
	r.Register(sideeffect.KindDeclarationCreated, a)
}

func (a *Archiver) Handle(ctx context.Context, event sideeffect.Event) error {
	if event.Kind != sideeffect.KindDeclarationCreated || event.Declaration == nil {
		return nil
	}
	d := event.Declaration
	now := a.now()

	content, err := Render(d, event.Recipients.Region, now)
	if err != nil {
		return err
	}
	path, err := a.write(now, d.Ref, content)
	if err != nil {
		return err
	}
	if err := a.store.SetPDFPath(ctx, d.ID, path); err != nil {
		return fmt.Errorf("record pdf path for %s: %w", d.Ref, err)
	}
	a.logger.InfoContext(ctx, "declaration archived",
		"ref", d.Ref,
		"path", path,
		"request_id", event.RequestID,
	)
	return nil
}

// write files content as root/YYYY/MM/<ref>.pdf. The file is renamed into
// place so readers never see a partial document.
func (a *Archiver) write(now time.Time, ref string, content []byte) (string, error) {
	dir := filepath.Join(a.root, now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}
	name := fileName(ref)
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write archive file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close archive file: %w", err)
	}
	path := filepath.Join(dir, name+".pdf")
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move archive file: %w", err)
	}
	return path, nil
}

// fileName keeps client-supplied references from escaping the archive root.
func fileName(ref string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, ref)
}
