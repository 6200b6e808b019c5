// Package router keeps track of the page the signed in user is looking at and
// loads its data. A page's data is only delivered while that page is still
// current.
package router

import (
	"context"
	"errors"
	"sync"

	mccerrors "github.com/jrsteele09/mcc-client/internal/errors"
	"github.com/jrsteele09/mcc-client/sessions"
	"github.com/jrsteele09/mcc-client/storage"
	"github.com/rs/zerolog/log"
)

var _ sessions.Navigator = (*Router)(nil)

// Loader fetches the initial data of a page.
type Loader interface {
	Load(ctx context.Context, page Page) (any, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, page Page) (any, error)

func (f LoaderFunc) Load(ctx context.Context, page Page) (any, error) {
	return f(ctx, page)
}

// Result is a finished page load.
type Result struct {
	Page PageInfo
	Data any
	Err  error
}

// ResultHandler receives loads for the page that is still current.
type ResultHandler func(ctx context.Context, result Result)

type Router struct {
	state    *storage.State
	loader   Loader
	onResult ResultHandler

	lock       sync.Mutex
	current    Page
	generation uint64
}

// RouterOption defines a function type to modify the Router instance.
type RouterOption func(*Router)

// WithLoader loads page data on every navigation and hands current results to
// onResult.
func WithLoader(loader Loader, onResult ResultHandler) RouterOption {
	return func(r *Router) {
		r.loader = loader
		r.onResult = onResult
	}
}

func New(state *storage.State, options ...RouterOption) (*Router, error) {
	if state == nil {
		return nil, errors.New("[router.New] state is required")
	}
	r := &Router{
		state:   state,
		current: DefaultPage,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.loader != nil && r.onResult == nil {
		return nil, errors.New("[router.New] result handler is required with a loader")
	}
	return r, nil
}

// Current returns the page being shown.
func (r *Router) Current() PageInfo {
	r.lock.Lock()
	defer r.lock.Unlock()
	return Resolve(string(r.current))
}

// Init opens the saved page, or the dashboard when none was saved.
func (r *Router) Init(ctx context.Context) error {
	var saved string
	if _, err := r.state.GetJSON(ctx, storage.KeyCurrentPage, &saved); err != nil {
		log.Warn().Err(err).Msg("Failed to read saved page")
	}
	_, err := r.Navigate(ctx, saved)
	return err
}

// Remember saves name as the page to open on the next Init without loading it.
func (r *Router) Remember(ctx context.Context, name string) (PageInfo, error) {
	info, ok := Lookup(name)
	if !ok {
		return PageInfo{}, mccerrors.Wrapf(mccerrors.ErrNotFound, "page %q", name)
	}
	if err := r.state.SetJSON(ctx, storage.KeyCurrentPage, info.Page); err != nil {
		return PageInfo{}, mccerrors.Wrapf(err, "save current page")
	}
	return info, nil
}

// Navigate switches to name, falling back to the dashboard for unknown pages,
// saves it and loads its data. Failing to save the page is logged and does not
// stop navigation; the returned error reports it.
func (r *Router) Navigate(ctx context.Context, name string) (PageInfo, error) {
	info := Resolve(name)

	r.lock.Lock()
	r.current = info.Page
	r.generation++
	generation := r.generation
	r.lock.Unlock()

	var saveErr error
	if err := r.state.SetJSON(ctx, storage.KeyCurrentPage, info.Page); err != nil {
		log.Warn().Err(err).Str("page", string(info.Page)).Msg("Failed to save current page")
		saveErr = mccerrors.Wrapf(err, "save current page")
	}

	if r.loader != nil {
		data, err := r.loader.Load(ctx, info.Page)
		if r.isCurrent(generation) {
			r.onResult(ctx, Result{Page: info, Data: data, Err: err})
		} else {
			log.Debug().Str("page", string(info.Page)).Msg("Dropping result for page no longer shown")
		}
	}
	return info, saveErr
}

// Reset returns to the dashboard and forgets the saved page. Loads still in
// flight are dropped.
func (r *Router) Reset(ctx context.Context) error {
	r.lock.Lock()
	r.current = DefaultPage
	r.generation++
	r.lock.Unlock()

	if err := r.state.Remove(ctx, storage.KeyCurrentPage); err != nil {
		return mccerrors.Wrapf(err, "forget current page")
	}
	return nil
}

func (r *Router) isCurrent(generation uint64) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.generation == generation
}
