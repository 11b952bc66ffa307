package cache

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core"
)

// Nop never stores anything.
type Nop struct{}

var _ core.Cache = Nop{}

func (Nop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) DeletePrefix(context.Context, string) error               { return nil }
