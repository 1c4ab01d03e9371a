// Package cart holds the active cart of the signed-in customer.
package cart

import (
	"fmt"
	"sync"

	"swick/internal/models"
)

// Cart is an ordered sequence of line items. It is owned by the user session; reads hand out
// deep copies so a snapshot taken for a payment attempt is unaffected by later edits.
type Cart struct {
	mu    sync.Mutex
	items []models.CartItem
	// ids[i] identifies items[i] for the life of the cart
	ids  []uint64
	next uint64
}

// Mark identifies the lines captured by Snapshot
type Mark struct {
	ids []uint64
}

// New returns an empty cart, optionally seeded with items
func New(items ...models.CartItem) *Cart {
	c := &Cart{}
	for _, item := range items {
		c.append(item.Clone())
	}
	return c
}

func (c *Cart) append(item models.CartItem) {
	c.next++
	c.items = append(c.items, item)
	c.ids = append(c.ids, c.next)
}

// Add appends a validated item
func (c *Cart) Add(item models.CartItem) error {
	if err := ValidateItem(item); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.append(item.Clone())
	return nil
}

// Remove deletes the items at the given positions. Positions refer to the cart as it was
// before the call, so removing several rows at once behaves like a list swipe-delete.
func (c *Cart) Remove(positions ...int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	drop := make(map[int]bool, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(c.items) {
			return fmt.Errorf("cart position %d out of range (len %d)", p, len(c.items))
		}
		drop[p] = true
	}

	c.keep(func(i int) bool { return !drop[i] })
	return nil
}

// keep retains the lines at positions where fn reports true
func (c *Cart) keep(fn func(i int) bool) {
	items := c.items[:0:0]
	ids := c.ids[:0:0]
	for i, item := range c.items {
		if fn(i) {
			items = append(items, item)
			ids = append(ids, c.ids[i])
		}
	}
	c.items, c.ids = items, ids
}

// Items returns a deep copy of the cart contents
func (c *Cart) Items() []models.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.CloneItems(c.items)
}

// Snapshot returns a deep copy of the contents and a Mark naming those lines
func (c *Cart) Snapshot() ([]models.CartItem, Mark) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.CloneItems(c.items), Mark{ids: append([]uint64(nil), c.ids...)}
}

// Consume removes the lines named by m that are still in the cart. Lines added after
// the snapshot stay.
func (c *Cart) Consume(m Mark) {
	taken := make(map[uint64]bool, len(m.ids))
	for _, id := range m.ids {
		taken[id] = true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keep(func(i int) bool { return !taken[c.ids[i]] })
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// Clear empties the cart in one step
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.ids = nil
}
