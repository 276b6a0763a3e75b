package remote

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/dailies/internal/game"
)

//go:embed schema.cue
var schemaCUE string

// schema validates raw payloads against the CUE definitions. A cue.Context
// is not safe for concurrent use, hence the mutex.
type schema struct {
	mu   sync.Mutex
	ctx  *cue.Context
	defs map[game.Kind]cue.Value
}

func newSchema() (*schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaCUE)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile puzzle schema: %w", err)
	}
	defs := map[game.Kind]cue.Value{
		game.Wordle:      v.LookupPath(cue.ParsePath("#Wordle")),
		game.Connections: v.LookupPath(cue.ParsePath("#Connections")),
		game.Strands:     v.LookupPath(cue.ParsePath("#Strands")),
	}
	for kind, def := range defs {
		if !def.Exists() {
			return nil, fmt.Errorf("puzzle schema: missing definition for %s", kind)
		}
	}
	return &schema{ctx: ctx, defs: defs}, nil
}

var (
	defaultSchemaOnce sync.Once
	defaultSchema     *schema
	defaultSchemaErr  error
)

func loadSchema() (*schema, error) {
	defaultSchemaOnce.Do(func() {
		defaultSchema, defaultSchemaErr = newSchema()
	})
	return defaultSchema, defaultSchemaErr
}

// validate checks a JSON payload for kind.
func (s *schema) validate(kind game.Kind, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.defs[kind]
	if !ok {
		return fmt.Errorf("no schema for %q", kind)
	}
	v := s.ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		// Report the first violation only.
		if errs := errors.Errors(err); len(errs) > 0 {
			return errs[0]
		}
		return err
	}
	return nil
}
