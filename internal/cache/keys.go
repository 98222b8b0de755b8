package cache

import (
	"sort"
	"strings"
	"time"
)

const (
	courierFeePrefix        = "courier_fee|"
	modifiedByCourierPrefix = "modified_by_courier|"
)

func CourierFeeKey(courierID, date string) string {
	return courierFeePrefix + strings.TrimSpace(courierID) + "|" + strings.TrimSpace(date)
}

func ModifiedByCourierKey(orderID string) string {
	return modifiedByCourierPrefix + strings.TrimSpace(orderID)
}

// CourierFees records the per-day fee an admin agreed with a courier.
type CourierFees struct {
	store *Store
}

func NewCourierFees(s *Store) *CourierFees {
	return &CourierFees{store: s}
}

func (c *CourierFees) Get(courierID, date string) (float64, bool) {
	v, ok := c.store.Get(CourierFeeKey(courierID, date))
	if !ok {
		return 0, false
	}
	fee, ok := v.(float64)
	return fee, ok
}

func (c *CourierFees) Set(courierID, date string, fee float64) {
	c.store.Set(CourierFeeKey(courierID, date), fee, 0)
}

// ModifiedOrders flags orders a courier touched so admin views can highlight them.
type ModifiedOrders struct {
	store *Store
	ttl   time.Duration
}

func NewModifiedOrders(s *Store, ttl time.Duration) *ModifiedOrders {
	return &ModifiedOrders{store: s, ttl: ttl}
}

func (m *ModifiedOrders) Mark(orderID string) {
	m.store.Set(ModifiedByCourierKey(orderID), true, m.ttl)
}

func (m *ModifiedOrders) Clear(orderID string) {
	m.store.Delete(ModifiedByCourierKey(orderID))
}

func (m *ModifiedOrders) IsModified(orderID string) bool {
	_, ok := m.store.Get(ModifiedByCourierKey(orderID))
	return ok
}

func (m *ModifiedOrders) List() []string {
	keys := m.store.Keys(modifiedByCourierPrefix)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, modifiedByCourierPrefix))
	}
	sort.Strings(out)
	return out
}
