package simulation

import (
	"cmp"
	"slices"

	"github.com/kilianp07/fleetops/core/model"
)

// QueuedOrder is an order with its route resolved. Route is nil when the
// order has no route reference or the reference is broken.
type QueuedOrder struct {
	Order model.Order
	Route *model.Route
}

// BuildQueue returns the orders sorted by delivery time, earliest first.
// Orders sharing a delivery time keep their input order.
func BuildQueue(orders []model.Order, routes []model.Route) []QueuedOrder {
	byID := make(map[int]*model.Route, len(routes))
	for i := range routes {
		if _, dup := byID[routes[i].RouteID]; !dup {
			r := routes[i]
			byID[r.RouteID] = &r
		}
	}
	queue := make([]QueuedOrder, 0, len(orders))
	for _, o := range orders {
		q := QueuedOrder{Order: o}
		if o.RouteID != nil {
			q.Route = byID[*o.RouteID]
		}
		queue = append(queue, q)
	}
	slices.SortStableFunc(queue, func(a, b QueuedOrder) int {
		return cmp.Compare(a.Order.DeliveryTime, b.Order.DeliveryTime)
	})
	return queue
}
