// Package basket provides the national reference basket that the cost
// estimator scales by a regional price index.
package basket

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"livingcost/internal/core"
)

//go:embed base_basket_us.json
var defaultJSON []byte

var (
	defaultOnce   sync.Once
	defaultBasket core.BaseBasket
	defaultErr    error
)

// Default returns the embedded basket. It is decoded once per process.
func Default() (core.BaseBasket, error) {
	defaultOnce.Do(func() {
		defaultBasket, defaultErr = Decode(defaultJSON)
	})
	return defaultBasket, defaultErr
}

// Load reads a basket from a JSON file.
func Load(path string) (core.BaseBasket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.BaseBasket{}, fmt.Errorf("read base basket: %w", err)
	}
	return Decode(data)
}

// Decode parses and validates a basket document.
func Decode(data []byte) (core.BaseBasket, error) {
	var b core.BaseBasket
	if err := json.Unmarshal(data, &b); err != nil {
		return core.BaseBasket{}, fmt.Errorf("%w: %v", core.ErrInvalidBasket, err)
	}
	if err := b.Validate(); err != nil {
		return core.BaseBasket{}, err
	}
	return b, nil
}

// Provider serves one basket for the lifetime of the process.
type Provider struct {
	path string

	once   sync.Once
	basket core.BaseBasket
	err    error
}

// NewProvider returns a provider reading path, or the embedded basket when
// path is empty.
func NewProvider(path string) *Provider {
	return &Provider{path: path}
}

// Basket loads the basket on first use and returns the same value after.
func (p *Provider) Basket() (core.BaseBasket, error) {
	p.once.Do(func() {
		if p.path == "" {
			p.basket, p.err = Default()
			return
		}
		p.basket, p.err = Load(p.path)
	})
	return p.basket, p.err
}
