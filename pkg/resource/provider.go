package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"digital.vasic.conformance/pkg/logging"
)

// DefaultMaxFileSize bounds how much of a single file the
// Provider reads.
const DefaultMaxFileSize int64 = 8 << 20

// Provider resolves resource keys against a file tree. It is
// the only component of the checker that touches the file
// system, and it only reads.
type Provider struct {
	fsys        fs.FS
	maxFileSize int64
	logger      logging.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithMaxFileSize sets the largest file the Provider reads.
// Larger files resolve as unreadable.
func WithMaxFileSize(n int64) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxFileSize = n
		}
	}
}

// WithLogger sets the logger used to report skipped keys and
// resolution details.
func WithLogger(l logging.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProvider creates a Provider rooted at dir on the local
// file system.
func NewProvider(dir string, opts ...Option) *Provider {
	return NewFSProvider(os.DirFS(dir), opts...)
}

// NewFSProvider creates a Provider over an arbitrary fs.FS.
func NewFSProvider(fsys fs.FS, opts ...Option) *Provider {
	p := &Provider{
		fsys:        fsys,
		maxFileSize: DefaultMaxFileSize,
		logger:      logging.NullLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build resolves every key of a known kind and returns the
// resulting Context. Keys of unknown kinds are skipped, so
// assertions declaring them fail evaluation with a
// configuration error. A missing or malformed resource never
// aborts the build.
func (p *Provider) Build(keys []Key) *Context {
	values := make([]Value, 0, len(keys))
	for _, k := range keys {
		v, ok := p.Resolve(k)
		if !ok {
			p.logger.Warn("skipping resource of unknown kind",
				logging.StringField("key", k.String()),
			)
			continue
		}
		p.logger.Debug("resolved resource",
			logging.StringField("key", k.String()),
			logging.StringField("state", v.State.String()),
		)
		values = append(values, v)
	}
	return NewContext(values...)
}

// Resolve resolves a single key. It returns false when the key
// kind is unknown.
func (p *Provider) Resolve(k Key) (Value, bool) {
	switch k.Kind {
	case KindFile:
		return p.resolveFile(k), true
	case KindText:
		return p.resolveText(k), true
	case KindJSON:
		return p.resolveStructured(k, json.Unmarshal), true
	case KindYAML:
		return p.resolveStructured(k, yaml.Unmarshal), true
	case KindTree:
		return p.resolveTree(k), true
	}
	return Value{}, false
}

func (p *Provider) resolveFile(k Key) Value {
	v := Value{Key: k}
	if _, err := fs.Stat(p.fsys, k.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			v.State = StateAbsent
			return v
		}
		v.State = StateUnreadable
		v.Cause = err.Error()
		return v
	}
	v.State = StatePresent
	return v
}

func (p *Provider) resolveText(k Key) Value {
	v := Value{Key: k}
	data, state, cause := p.read(k.Path)
	v.State = state
	v.Cause = cause
	if state != StatePresent {
		return v
	}
	if !utf8.Valid(data) {
		v.State = StateUnreadable
		v.Cause = "content is not valid UTF-8"
		return v
	}
	v.Text = string(data)
	return v
}

func (p *Provider) resolveStructured(
	k Key,
	unmarshal func([]byte, any) error,
) Value {
	v := p.resolveText(k)
	if v.State != StatePresent {
		return v
	}

	var doc any
	if err := unmarshal([]byte(v.Text), &doc); err != nil {
		v.State = StateMalformed
		v.Cause = err.Error()
		return v
	}
	v.Data = doc
	return v
}

func (p *Provider) resolveTree(k Key) Value {
	v := Value{Key: k}
	info, err := fs.Stat(p.fsys, k.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			v.State = StateAbsent
			return v
		}
		v.State = StateUnreadable
		v.Cause = err.Error()
		return v
	}
	if !info.IsDir() {
		v.State = StateUnreadable
		v.Cause = "not a directory"
		return v
	}

	var files []string
	err = fs.WalkDir(p.fsys, k.Path,
		func(name string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				files = append(files, name)
			}
			return nil
		},
	)
	if err != nil {
		v.State = StateUnreadable
		v.Cause = err.Error()
		return v
	}

	sort.Strings(files)
	v.State = StatePresent
	v.Files = files
	return v
}

// read returns the content of a regular file together with the
// state it resolves to.
func (p *Provider) read(name string) ([]byte, State, string) {
	info, err := fs.Stat(p.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, StateAbsent, ""
		}
		return nil, StateUnreadable, err.Error()
	}
	if info.IsDir() {
		return nil, StateUnreadable, "is a directory"
	}
	if info.Size() > p.maxFileSize {
		return nil, StateUnreadable, fmt.Sprintf(
			"size %d exceeds limit of %d bytes",
			info.Size(), p.maxFileSize,
		)
	}

	data, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		return nil, StateUnreadable, err.Error()
	}
	return data, StatePresent, ""
}
