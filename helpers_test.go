package ashstorage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Borislavv/go-ash-storage/config"
	"github.com/Borislavv/go-ash-storage/internal/testutil"
	"github.com/Borislavv/go-ash-storage/scheduler"
)

type Pair struct {
	X int
	Y int
}

type Home struct {
	Name  string
	World string
	Pos   Pair
}

type Owner struct {
	Name  string
	Homes []Home
}

type Color int

const (
	Red Color = iota
	Green
)

func (c Color) String() string {
	switch c {
	case Red:
		return "RED"
	case Green:
		return "GREEN"
	default:
		return "UNKNOWN"
	}
}

// unregistered has no decomposer.
type unregistered struct{ V int }

func pairDecomposer() *Decomposer[Pair] {
	return NewDecomposer(
		func(p Pair, d *Decomposed) {
			d.Add("x", p.X).Add("y", p.Y)
		},
		func(c *Container, r *Recomposed[Pair]) {
			r.Field("x", c.RetrieveAsync).
				Field("y", c.RetrieveAsync).
				OnComplete(func(done Completed) (Pair, error) {
					x, err := Value[int](done, "x")
					if err != nil {
						return Pair{}, err
					}
					y, err := Value[int](done, "y")
					if err != nil {
						return Pair{}, err
					}
					return Pair{X: x, Y: y}, nil
				})
		},
	)
}

func homeDecomposer() *Decomposer[Home] {
	return NewDecomposer(
		func(h Home, d *Decomposed) {
			d.Add("name", h.Name).Add("world", h.World).Add("pos", h.Pos)
		},
		func(c *Container, r *Recomposed[Home]) {
			r.Field("name", c.RetrieveAsync).
				Field("world", c.RetrieveAsync).
				Field("pos", Nested[Pair](c)).
				OnComplete(func(done Completed) (Home, error) {
					name, err := Value[string](done, "name")
					if err != nil {
						return Home{}, err
					}
					world, err := Value[string](done, "world")
					if err != nil {
						return Home{}, err
					}
					pos, err := Value[Pair](done, "pos")
					if err != nil {
						return Home{}, err
					}
					return Home{Name: name, World: world, Pos: pos}, nil
				})
		},
	)
}

func ownerDecomposer() *Decomposer[Owner] {
	return NewDecomposer(
		func(o Owner, d *Decomposed) {
			d.Add("name", o.Name).Add("homes", o.Homes)
		},
		func(c *Container, r *Recomposed[Owner]) {
			r.Field("name", c.RetrieveAsync).
				Field("homes", ListOf[Home](c)).
				OnComplete(func(done Completed) (Owner, error) {
					name, err := Value[string](done, "name")
					if err != nil {
						return Owner{}, err
					}
					homes, err := Value[[]Home](done, "homes")
					if err != nil {
						return Owner{}, err
					}
					return Owner{Name: name, Homes: homes}, nil
				})
		},
	)
}

func newTestAPI(t *testing.T) *API {
	t.Helper()
	pool := scheduler.New(context.Background(), testutil.SchedulerCfg(), testutil.Logger())
	t.Cleanup(func() { require.NoError(t, pool.Close()) })

	api := NewAPI(pool, testutil.Logger())
	Register(api, pairDecomposer())
	Register(api, homeDecomposer())
	Register(api, ownerDecomposer())
	RegisterEnum(api, Red, Green)
	return api
}

func newTestContainer(t *testing.T, b Backend, settings *config.Settings) *Container {
	t.Helper()
	return newTestContainerWithAPI(t, newTestAPI(t), b, settings)
}

func newTestContainerWithAPI(t *testing.T, api *API, b Backend, settings *config.Settings) *Container {
	t.Helper()
	if settings == nil {
		settings = testutil.Settings()
	}
	c, err := New(context.Background(), api, b, settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
