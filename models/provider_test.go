package models

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/generators"
	"github.com/reusee/taitrace/modes"
)

func testScope(t *testing.T) dscope.Scope {
	return dscope.New(
		modes.ForTest(t),
		new(Module),
		dscope.Provide(configs.NewLoader(nil, "")),
	)
}

type fakeGenerator struct{}

func (fakeGenerator) Args() generators.GeneratorArgs {
	return generators.GeneratorArgs{}
}

func (fakeGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	return prompt, nil
}

func TestProviderFallback(t *testing.T) {
	testScope(t).Call(func(
		newProvider NewProvider,
	) {
		provider := newProvider(Strategies{
			{
				Tier: TierAccelerated,
				Load: func(ctx context.Context) (*Handle, error) {
					return nil, ErrNoAccelerator
				},
			},
			{
				Tier: TierGeneral,
				Load: func(ctx context.Context) (*Handle, error) {
					return &Handle{
						Tier:      TierGeneral,
						Generator: fakeGenerator{},
					}, nil
				},
			},
		})
		if provider.Loaded() != nil {
			t.Fatal("should not be loaded")
		}
		handle, err := provider.GetOrCreate(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		if handle.Tier != TierGeneral {
			t.Fatalf("got %s", handle.Tier)
		}
		if provider.Loaded() != handle {
			t.Fatal("not published")
		}
		if err := handle.Reclaim(t.Context()); err != nil {
			t.Fatal(err)
		}
	})
}

func TestProviderSingleFlight(t *testing.T) {
	testScope(t).Call(func(
		newProvider NewProvider,
	) {
		var loads atomic.Int64
		provider := newProvider(Strategies{
			{
				Tier: TierGeneral,
				Load: func(ctx context.Context) (*Handle, error) {
					loads.Add(1)
					return &Handle{
						Tier:      TierGeneral,
						Generator: fakeGenerator{},
					}, nil
				},
			},
		})
		var wg sync.WaitGroup
		handles := make([]*Handle, 16)
		for i := range handles {
			wg.Add(1)
			go func() {
				defer wg.Done()
				handle, err := provider.GetOrCreate(context.Background())
				if err != nil {
					t.Error(err)
				}
				handles[i] = handle
			}()
		}
		wg.Wait()
		if n := loads.Load(); n != 1 {
			t.Fatalf("loaded %d times", n)
		}
		for _, handle := range handles {
			if handle != handles[0] {
				t.Fatal("handles differ")
			}
		}
	})
}

func TestProviderUnavailable(t *testing.T) {
	testScope(t).Call(func(
		newProvider NewProvider,
	) {
		var loads atomic.Int64
		loadErr := errors.New("boom")
		provider := newProvider(Strategies{
			{
				Tier: TierAccelerated,
				Load: func(ctx context.Context) (*Handle, error) {
					loads.Add(1)
					panic("bad driver")
				},
			},
			{
				Tier: TierGeneral,
				Load: func(ctx context.Context) (*Handle, error) {
					loads.Add(1)
					return nil, loadErr
				},
			},
		})
		for range 3 {
			handle, err := provider.GetOrCreate(t.Context())
			if handle != nil {
				t.Fatal("got handle")
			}
			if !errors.Is(err, ErrModelUnavailable) || !errors.Is(err, loadErr) {
				t.Fatalf("got %v", err)
			}
		}
		if n := loads.Load(); n != 2 {
			t.Fatalf("loaded %d times", n)
		}
	})
}

func TestProviderCanceled(t *testing.T) {
	testScope(t).Call(func(
		newProvider NewProvider,
	) {
		var loads atomic.Int64
		provider := newProvider(Strategies{
			{
				Tier: TierGeneral,
				Load: func(ctx context.Context) (*Handle, error) {
					if loads.Add(1) == 1 {
						return nil, ctx.Err()
					}
					return &Handle{
						Tier:      TierGeneral,
						Generator: fakeGenerator{},
					}, nil
				},
			},
		})
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if _, err := provider.GetOrCreate(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v", err)
		}
		if _, err := provider.GetOrCreate(t.Context()); err != nil {
			t.Fatal(err)
		}
	})
}

func TestStrategies(t *testing.T) {
	var mu sync.Mutex
	var requests []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
		}
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()
		w.Write([]byte(`{"done":true}`))
	}))
	defer server.Close()

	for _, c := range []struct {
		mode AcceleratorMode
		tier Tier
	}{
		{AcceleratorOn, TierAccelerated},
		{AcceleratorOff, TierGeneral},
	} {
		requests = nil
		testScope(t).Fork(
			func() AcceleratorMode {
				return c.mode
			},
			func() generators.OllamaURL {
				return generators.OllamaURL(server.URL)
			},
		).Call(func(
			provider *Provider,
		) {
			handle, err := provider.GetOrCreate(t.Context())
			if err != nil {
				t.Fatal(err)
			}
			if handle.Tier != c.tier {
				t.Fatalf("got %s", handle.Tier)
			}
			// reclaiming between chunks keeps the model resident
			for range 3 {
				if err := handle.Reclaim(t.Context()); err != nil {
					t.Fatal(err)
				}
			}
			if len(requests) != 1 {
				t.Fatalf("got %v", requests)
			}
			if err := provider.Close(t.Context()); err != nil {
				t.Fatal(err)
			}
		})

		// load, then unload on close
		if len(requests) != 2 {
			t.Fatalf("got %v", requests)
		}
		if requests[1]["keep_alive"] != "0" {
			t.Fatalf("got %v", requests[1])
		}
		switch c.tier {
		case TierAccelerated:
			if requests[0]["model"] != defaultAcceleratedModel {
				t.Fatalf("got %v", requests[0])
			}
		case TierGeneral:
			if requests[0]["model"] != defaultGeneralModel {
				t.Fatalf("got %v", requests[0])
			}
			options, _ := requests[0]["options"].(map[string]any)
			if options["num_gpu"] != float64(0) {
				t.Fatalf("got %v", requests[0])
			}
		}
	}
}

func TestProviderCloseBeforeLoad(t *testing.T) {
	testScope(t).Call(func(
		newProvider NewProvider,
	) {
		provider := newProvider(Strategies{
			{
				Tier: TierGeneral,
				Load: func(ctx context.Context) (*Handle, error) {
					return &Handle{
						Tier:      TierGeneral,
						Generator: fakeGenerator{},
					}, nil
				},
			},
		})
		if err := provider.Close(t.Context()); err != nil {
			t.Fatal(err)
		}
		if _, err := provider.GetOrCreate(t.Context()); err != nil {
			t.Fatal(err)
		}
		// fakeGenerator holds no server-side state
		if err := provider.Close(t.Context()); err != nil {
			t.Fatal(err)
		}
	})
}
